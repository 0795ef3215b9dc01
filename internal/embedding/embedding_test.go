package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openAIServer(t *testing.T, vec []float32, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Input          []string `json:"input"`
			Model          string   `json:"model"`
			EncodingFormat string   `json:"encoding_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": vec},
			},
		})
	}))
}

func TestOpenAIEmbedder_Embed(t *testing.T) {
	srv := openAIServer(t, []float32{0.1, 0.2, 0.3}, nil)
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIOptions{BaseURL: srv.URL, Model: "text-embedding-ada-002", Dimensions: 3})
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, 3, e.Dimensions())
}

func TestOpenAIEmbedder_SendsDimensions(t *testing.T) {
	tests := []struct {
		model string
		want  any
	}{
		{"text-embedding-3-small", float64(2)},
		{"text-embedding-ada-002", nil},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			var body map[string]any
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]any{
					"object": "list",
					"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": []float32{0.6, 0.8}}},
				})
			}))
			defer srv.Close()

			e := NewOpenAIEmbedder(OpenAIOptions{BaseURL: srv.URL, Model: tt.model, Dimensions: 2})
			_, err := e.Embed(context.Background(), "hi")
			require.NoError(t, err)
			assert.Equal(t, tt.model, body["model"])
			assert.Equal(t, tt.want, body["dimensions"])
		})
	}
}

func TestOpenAIEmbedder_DimensionMismatch(t *testing.T) {
	srv := openAIServer(t, []float32{0.1, 0.2}, nil)
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIOptions{BaseURL: srv.URL, Model: "m", Dimensions: 3})
	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUpstream))
}

func TestOpenAIEmbedder_ServerError(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(OpenAIOptions{BaseURL: srv.URL, Model: "m", Dimensions: 3})
	_, err := e.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, models.KindUpstream, models.KindOf(err))
	assert.Equal(t, int64(1), calls.Load(), "no retry expected")
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"nomic-embed-text","embeddings":[[1,0,0]]}`))
	}))
	defer srv.Close()

	e, err := NewOllamaEmbedder(srv.URL, "nomic-embed-text", 3, time.Second)
	require.NoError(t, err)
	vec, err := e.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)
}

func TestOllamaEmbedder_NoEmbeddings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"m","embeddings":[]}`))
	}))
	defer srv.Close()

	e, err := NewOllamaEmbedder(srv.URL, "m", 3, time.Second)
	require.NoError(t, err)
	_, err = e.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(8)
	a, err := e.Embed(context.Background(), "same")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "same")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, 8)
	assert.Equal(t, 2, e.Calls())
}

func TestMemoryCache_LRU(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)
	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", []float32{1}))
	require.NoError(t, c.Set(ctx, "b", []float32{2}))
	_, ok, _ = c.Get(ctx, "a") // a becomes most recent
	assert.True(t, ok)
	require.NoError(t, c.Set(ctx, "c", []float32{3})) // evicts b

	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok)
	_, ok, _ = c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCached_SkipsProviderOnHit(t *testing.T) {
	ctx := context.Background()
	inner := NewMockEmbedder(4)
	e := NewCached(inner, NewMemoryCache(10), "m", nil)

	first, err := e.Embed(ctx, "text")
	require.NoError(t, err)
	second, err := e.Embed(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.Calls())
	assert.Equal(t, 4, e.Dimensions())
}

func TestRateLimited_HonorsContext(t *testing.T) {
	e := NewRateLimited(NewMockEmbedder(4), 0.001)
	ctx := context.Background()
	_, err := e.Embed(ctx, "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = e.Embed(ctx, "second")
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestNew(t *testing.T) {
	e, err := New(context.Background(), config.EmbeddingConfig{
		Provider:          "mock",
		Dimensions:        16,
		RequestsPerSecond: 100,
		Cache:             config.CacheConfig{Type: "memory", Size: 4},
	}, nil)
	require.NoError(t, err)
	defer e.Close()
	assert.IsType(t, &Cached{}, e)
	assert.Equal(t, 16, e.Dimensions())

	_, err = New(context.Background(), config.EmbeddingConfig{Provider: "nope"}, nil)
	assert.Error(t, err)

	_, err = New(context.Background(), config.EmbeddingConfig{Provider: "mock", Cache: config.CacheConfig{Type: "disk"}}, nil)
	assert.Error(t, err)
}
