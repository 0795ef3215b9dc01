package completion

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
)

// New builds the configured completer.
func New(ctx context.Context, cfg config.CompletionConfig) (Completer, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAICompleter(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.Timeout), nil
	case "ollama":
		return NewOllamaCompleter(cfg.BaseURL, cfg.Model, cfg.Temperature, cfg.Timeout)
	case "gemini":
		return NewGeminiCompleter(ctx, cfg.APIKey, cfg.Model, cfg.Temperature)
	case "mock":
		return NewMockCompleter(""), nil
	default:
		return nil, fmt.Errorf("unknown completion provider: %s (supported: openai, ollama, gemini, mock)", cfg.Provider)
	}
}
