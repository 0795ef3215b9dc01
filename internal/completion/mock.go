package completion

import (
	"context"
	"strings"
	"sync"
)

// Call records one Complete invocation.
type Call struct {
	System string
	Turns  []Message
}

// MockCompleter returns a fixed reply, or an echo of the last turn when
// Reply is empty. It records every call.
type MockCompleter struct {
	Reply string
	Err   error

	mu    sync.Mutex
	calls []Call
}

// NewMockCompleter returns a completer that always answers reply.
func NewMockCompleter(reply string) *MockCompleter {
	return &MockCompleter{Reply: reply}
}

// Complete records the call and returns the configured reply or error.
func (m *MockCompleter) Complete(ctx context.Context, system string, turns []Message) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{System: system, Turns: append([]Message(nil), turns...)})
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", upstream("completion.mock", err)
	}
	if m.Err != nil {
		return "", upstream("completion.mock", m.Err)
	}
	if m.Reply != "" {
		return m.Reply, nil
	}
	if len(turns) == 0 {
		return "", nil
	}
	return "echo: " + strings.TrimSpace(turns[len(turns)-1].Content), nil
}

// Calls returns a copy of the recorded calls.
func (m *MockCompleter) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}
