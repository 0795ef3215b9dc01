package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	format     openai.EmbeddingEncodingFormat
	dimensions int
	// sendDimensions is false for models with a fixed output size, which
	// reject the dimensions parameter.
	sendDimensions bool
}

// fixedDimensionModels do not accept a requested output size.
var fixedDimensionModels = map[string]bool{
	string(openai.AdaEmbeddingV2): true,
}

// OpenAIOptions configures an OpenAIEmbedder.
type OpenAIOptions struct {
	APIKey  string
	BaseURL string
	Model   string
	// EncodingFormat is "float" or "base64"; the client decodes either.
	EncodingFormat string
	Dimensions     int
	Timeout        time.Duration
}

// NewOpenAIEmbedder creates an embedder for the OpenAI embeddings API.
func NewOpenAIEmbedder(opts OpenAIOptions) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	format := openai.EmbeddingEncodingFormatFloat
	if opts.EncodingFormat == string(openai.EmbeddingEncodingFormatBase64) {
		format = openai.EmbeddingEncodingFormatBase64
	}
	fixed := fixedDimensionModels[strings.ToLower(strings.TrimSpace(opts.Model))]
	return &OpenAIEmbedder{
		client:         openai.NewClientWithConfig(cfg),
		model:          opts.Model,
		format:         format,
		dimensions:     opts.Dimensions,
		sendDimensions: opts.Dimensions > 0 && !fixed,
	}
}

// Embed requests the embedding of a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          openai.EmbeddingModel(e.model),
		EncodingFormat: e.format,
	}
	if e.sendDimensions {
		req.Dimensions = e.dimensions
	}
	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, upstream("embedding.openai", fmt.Errorf("failed to create embeddings: %w", err))
	}
	if len(resp.Data) == 0 {
		return nil, upstream("embedding.openai", fmt.Errorf("no embeddings returned"))
	}
	vec := resp.Data[0].Embedding
	if err := checkDimensions("embedding.openai", vec, e.dimensions); err != nil {
		return nil, err
	}
	return vec, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
