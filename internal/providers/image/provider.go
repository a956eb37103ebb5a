package image

import (
	"fmt"
	"strings"

	"studio/internal/infra"
	"studio/internal/providers/genai"
	"studio/internal/providers/qwen"
	"studio/internal/studio"
)

const (
	ProviderGemini    = "gemini"
	ProviderQwen      = "qwen"
	ProviderSynthetic = "synthetic"
)

// NormalizeProvider lowercases name and maps empty to ProviderGemini.
func NormalizeProvider(name string) (string, error) {
	switch p := strings.ToLower(strings.TrimSpace(name)); p {
	case "":
		return ProviderGemini, nil
	case ProviderGemini, ProviderQwen, ProviderSynthetic:
		return p, nil
	default:
		return "", fmt.Errorf("unsupported image provider %q", name)
	}
}

// NewGenerator selects the generator for provider. The synthetic provider
// composes locally through a keyless Gemini client; qwen falls back to it
// when DashScope credentials are missing.
func NewGenerator(provider string, gemini *genai.Client, qwenClient qwenEditClient) (studio.Generator, error) {
	name, err := NormalizeProvider(provider)
	if err != nil {
		return nil, err
	}
	synthetic, err := genai.NewClient(genai.Options{})
	if err != nil {
		return nil, err
	}
	switch name {
	case ProviderQwen:
		return NewQwenGenerator(qwenClient, NewGeminiGenerator(synthetic)), nil
	case ProviderSynthetic:
		return NewGeminiGenerator(synthetic), nil
	default:
		if gemini == nil {
			return NewGeminiGenerator(synthetic), nil
		}
		return NewGeminiGenerator(gemini), nil
	}
}

// FromConfig builds the provider clients described by cfg and returns the
// selected generator. It reports whether generation falls back to the local
// synthetic composer.
func FromConfig(cfg *infra.Config, logger *infra.Logger) (studio.Generator, bool, error) {
	gemini, err := genai.NewClient(genai.Options{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Logger:  logger,
	})
	if err != nil {
		return nil, false, fmt.Errorf("image: gemini client: %w", err)
	}
	qwenClient, err := qwen.NewClient(qwen.Options{
		APIKey:  cfg.DashScopeAPIKey,
		BaseURL: cfg.QwenBaseURL,
		Model:   cfg.QwenModel,
		Logger:  logger,
	})
	if err != nil {
		return nil, false, fmt.Errorf("image: qwen client: %w", err)
	}
	gen, err := NewGenerator(cfg.ImageProvider, gemini, qwenClient)
	if err != nil {
		return nil, false, err
	}
	var synthetic bool
	switch cfg.ImageProvider {
	case ProviderSynthetic:
		synthetic = true
	case ProviderQwen:
		synthetic = !qwenClient.HasCredentials()
	default:
		synthetic = !gemini.HasCredentials()
	}
	return gen, synthetic, nil
}
