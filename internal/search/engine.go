// Package search answers questions from the documents in the vector index.
package search

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/completion"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

// TopK is the number of chunks retrieved for each question.
const TopK = 3

// contextSeparator joins retrieved chunk texts in the prompt.
const contextSeparator = "\n\n"

// Engine runs retrieval-augmented question answering.
type Engine struct {
	embedder    embedding.Embedder
	vectorIndex vector.VectorIndex
	completer   completion.Completer
	expertRole  string
	logger      *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets a logger for query events.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithExpertRole sets the system role used when answering.
func WithExpertRole(role string) EngineOption {
	return func(e *Engine) { e.expertRole = role }
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	completer completion.Completer,
	opts ...EngineOption,
) *Engine {
	e := &Engine{
		embedder:    embedder,
		vectorIndex: vectorIndex,
		completer:   completer,
		expertRole:  config.DefaultExpertRole,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = utils.OrNop(e.logger)
	return e
}

// Ask embeds query, retrieves the TopK closest chunks and asks the
// completer to answer from them.
func (e *Engine) Ask(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", models.NewError(models.KindValidation, "query", errors.New("query must not be empty"))
	}

	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return "", upstream("embedding", err)
	}
	matches, err := e.vectorIndex.Query(ctx, vec, TopK, true)
	if err != nil {
		return "", upstream("vector.query", err)
	}

	answer, err := e.completer.Complete(ctx, e.expertRole, []completion.Message{
		completion.User(BuildPrompt(query, matches)),
	})
	if err != nil {
		return "", upstream("completion.answer", err)
	}
	e.logger.Debug("query answered",
		zap.String("query", utils.Truncate(query, 80)),
		zap.Int("matches", len(matches)),
	)
	return answer, nil
}

// BuildContext joins the chunk texts of matches in rank order.
func BuildContext(matches []*vector.Match) string {
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Text())
	}
	return strings.Join(texts, contextSeparator)
}

// BuildPrompt embeds the literal query and the retrieved context.
func BuildPrompt(query string, matches []*vector.Match) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(BuildContext(matches))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	return b.String()
}

func upstream(op string, err error) error {
	if models.KindOf(err) != "" {
		return err
	}
	return models.NewError(models.KindUpstream, op, err)
}
