package image

import (
	"context"
	"fmt"

	"studio/internal/domain"
	"studio/internal/middleware"
	"studio/internal/providers/qwen"
	"studio/internal/studio"
)

type qwenEditClient interface {
	Edit(context.Context, qwen.EditRequest) (domain.EncodedImage, error)
	HasCredentials() bool
	Model() string
}

// QwenGenerator calls DashScope's Qwen image edit model and hands off to
// fallback when credentials are missing. A failed remote call is returned
// as is; it never falls back.
type QwenGenerator struct {
	client   qwenEditClient
	fallback studio.Generator
}

// NewQwenGenerator wires a Qwen client with an optional fallback generator.
func NewQwenGenerator(client qwenEditClient, fallback studio.Generator) *QwenGenerator {
	return &QwenGenerator{client: client, fallback: fallback}
}

func (g *QwenGenerator) Generate(ctx context.Context, childhood, present domain.EncodedImage) (domain.EncodedImage, error) {
	if g.client == nil || !g.client.HasCredentials() {
		if g.fallback != nil {
			return g.fallback.Generate(ctx, childhood, present)
		}
		return domain.EncodedImage{}, fmt.Errorf("qwen generator: %w", domain.ErrMissingAPIKey)
	}
	return g.client.Edit(ctx, qwen.EditRequest{
		Prompt:         BuildHugPrompt(),
		NegativePrompt: DefaultNegativePrompt,
		Images:         []domain.EncodedImage{childhood, present},
		RequestID:      middleware.RequestIDFromContext(ctx),
	})
}

var _ studio.Generator = (*QwenGenerator)(nil)
