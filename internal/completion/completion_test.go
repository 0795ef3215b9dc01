package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

func TestOpenAICompleter_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Employees get 20 days."},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter("key", srv.URL, "gpt-4o-mini", 0.2, time.Second)
	out, err := c.Complete(context.Background(), "You are an HR expert.", []Message{User("How much leave?")})
	require.NoError(t, err)
	assert.Equal(t, "Employees get 20 days.", out)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, Message{Role: "system", Content: "You are an HR expert."}, got.Messages[0])
	assert.Equal(t, Message{Role: "user", Content: "How much leave?"}, got.Messages[1])
}

func TestOpenAICompleter_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter("key", srv.URL, "m", 0, time.Second)
	_, err := c.Complete(context.Background(), "", []Message{User("hi")})
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestOpenAICompleter_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter("key", srv.URL, "m", 0, time.Second)
	_, err := c.Complete(context.Background(), "", []Message{User("hi")})
	require.Error(t, err)
	assert.Equal(t, models.KindUpstream, models.KindOf(err))
}

func TestOllamaCompleter_Complete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"ok"},"done":true}`))
	}))
	defer srv.Close()

	c, err := NewOllamaCompleter(srv.URL, "llama3", 0, time.Second)
	require.NoError(t, err)
	out, err := c.Complete(context.Background(), "system role", []Message{User("q")})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
}

func TestMockCompleter(t *testing.T) {
	m := NewMockCompleter("")
	out, err := m.Complete(context.Background(), "sys", []Message{User("  hello ")})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", out)
	require.Len(t, m.Calls(), 1)
	assert.Equal(t, "sys", m.Calls()[0].System)

	m.Err = errors.New("down")
	_, err = m.Complete(context.Background(), "sys", nil)
	assert.ErrorIs(t, err, models.ErrUpstream)
}

func TestNew(t *testing.T) {
	c, err := New(context.Background(), config.CompletionConfig{Provider: "mock"})
	require.NoError(t, err)
	assert.IsType(t, &MockCompleter{}, c)

	c, err = New(context.Background(), config.CompletionConfig{Provider: "ollama", Model: "llama3"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaCompleter{}, c)

	_, err = New(context.Background(), config.CompletionConfig{Provider: "unknown"})
	assert.Error(t, err)
}
