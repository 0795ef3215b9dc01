package completion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	ollama "github.com/ollama/ollama/api"
)

// OllamaCompleter calls a local Ollama server's chat endpoint.
type OllamaCompleter struct {
	client      *ollama.Client
	model       string
	temperature float32
}

// NewOllamaCompleter creates a completer for the Ollama server at baseURL.
func NewOllamaCompleter(baseURL, model string, temperature float32, timeout time.Duration) (*OllamaCompleter, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base URL: %w", err)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaCompleter{
		client:      ollama.NewClient(u, &http.Client{Timeout: timeout}),
		model:       model,
		temperature: temperature,
	}, nil
}

// Complete runs a non-streaming chat request.
func (c *OllamaCompleter) Complete(ctx context.Context, system string, turns []Message) (string, error) {
	messages := make([]ollama.Message, 0, len(turns)+1)
	if system != "" {
		messages = append(messages, ollama.Message{Role: "system", Content: system})
	}
	for _, t := range turns {
		messages = append(messages, ollama.Message{Role: t.Role, Content: t.Content})
	}

	stream := false
	var content string
	var done bool
	err := c.client.Chat(ctx, &ollama.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options:  map[string]any{"temperature": c.temperature},
	}, func(resp ollama.ChatResponse) error {
		content += resp.Message.Content
		done = done || resp.Done
		return nil
	})
	if err != nil {
		return "", upstream("completion.ollama", fmt.Errorf("failed to chat with ollama: %w", err))
	}
	if !done && content == "" {
		return "", upstream("completion.ollama", errNoChoices)
	}
	return content, nil
}
