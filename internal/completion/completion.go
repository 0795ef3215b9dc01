// Package completion generates text from a system role and a list of
// conversation turns.
package completion

import (
	"context"
	"errors"

	"github.com/hyperjump/kotae/internal/models"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// User returns a user turn.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Completer produces a single, complete response. Implementations make one
// round trip per call and do not stream or retry.
type Completer interface {
	Complete(ctx context.Context, system string, turns []Message) (string, error)
}

func upstream(op string, err error) error {
	return models.NewError(models.KindUpstream, op, err)
}

var errNoChoices = errors.New("no completion returned")
