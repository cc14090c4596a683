package aiengine

import (
	"context"
	"fmt"

	"github.com/WhiteDevil-93/hermes-go/internal/config"
)

// NewProvider builds the configured provider. A missing API key (or, for
// the HTTP provider, a missing base URL) is not a construction error: a nil
// provider is returned, and Engine.Initialize then reports the engine
// unavailable. An unknown provider name is returned as an error.
func NewProvider(ctx context.Context, cfg config.ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "gemini":
		if cfg.APIKey == "" {
			return nil, nil
		}
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
	case "anthropic", "http":
		if cfg.APIKey == "" || cfg.BaseURL == "" {
			return nil, nil
		}
		return NewHTTPProvider(cfg.Provider, cfg.APIKey, cfg.BaseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("aiengine: unknown provider %q", cfg.Provider)
	}
}
