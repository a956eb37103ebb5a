package image

import (
	"context"

	"studio/internal/domain"
	"studio/internal/middleware"
	"studio/internal/providers/genai"
	"studio/internal/studio"
)

type geminiCompositeClient interface {
	GenerateComposite(context.Context, genai.CompositeRequest) (domain.EncodedImage, error)
}

// GeminiGenerator sends both photos to Gemini in a single request.
type GeminiGenerator struct {
	client geminiCompositeClient
}

func NewGeminiGenerator(client geminiCompositeClient) *GeminiGenerator {
	return &GeminiGenerator{client: client}
}

func (g *GeminiGenerator) Generate(ctx context.Context, childhood, present domain.EncodedImage) (domain.EncodedImage, error) {
	return g.client.GenerateComposite(ctx, genai.CompositeRequest{
		Prompt:    BuildHugPrompt(),
		Childhood: childhood,
		Present:   present,
		RequestID: middleware.RequestIDFromContext(ctx),
	})
}

var _ studio.Generator = (*GeminiGenerator)(nil)
