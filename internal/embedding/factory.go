package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

// Provider names an embedding backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
	ProviderGemini Provider = "gemini"
	ProviderONNX   Provider = "onnx"
	ProviderMock   Provider = "mock"
)

// New builds the configured embedder, wrapped with rate limiting and
// caching when enabled.
func New(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	logger = utils.OrNop(logger)

	var (
		e   Embedder
		err error
	)
	switch Provider(cfg.Provider) {
	case ProviderOpenAI, "":
		e = NewOpenAIEmbedder(OpenAIOptions{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          cfg.Model,
			EncodingFormat: cfg.EncodingFormat,
			Dimensions:     cfg.Dimensions,
			Timeout:        cfg.Timeout,
		})
	case ProviderOllama:
		e, err = NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimensions, cfg.Timeout)
	case ProviderGemini:
		e, err = NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.Dimensions)
	case ProviderONNX:
		e, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case ProviderMock:
		e = NewMockEmbedder(cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, ollama, gemini, onnx, mock)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerSecond > 0 {
		e = NewRateLimited(e, cfg.RequestsPerSecond)
	}

	switch cfg.Cache.Type {
	case "", "none":
	case "memory":
		e = NewCached(e, NewMemoryCache(cfg.Cache.Size), cfg.Model, logger)
	case "redis":
		rc, err := NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.TTL)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		e = NewCached(e, rc, cfg.Model, logger)
	default:
		_ = e.Close()
		return nil, fmt.Errorf("unknown embedding cache type: %s (supported: none, memory, redis)", cfg.Cache.Type)
	}

	logger.Info("embedder ready",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", cfg.Dimensions),
		zap.String("cache", cfg.Cache.Type),
	)
	return e, nil
}
