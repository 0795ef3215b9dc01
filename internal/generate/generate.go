// Package generate drafts HR documents and analyzes performance review
// spreadsheets with the completion provider.
package generate

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/completion"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

const (
	writerRole = "You are an experienced HR document writer. Draft clear, complete and professional " +
		"HR documents in plain text with headings and numbered sections where appropriate."
	reviewerRole = "You are an HR performance analyst. Summarise the performance review records you are given, " +
		"highlight strengths, concerns and trends, and recommend concrete next steps."
)

// MaxReviewRecords caps how many CSV rows are sent to the completer.
const MaxReviewRecords = 500

// Generator produces documents and analyses with a Completer.
type Generator struct {
	completer completion.Completer
	logger    *zap.Logger
}

// NewGenerator returns a Generator. logger may be nil.
func NewGenerator(completer completion.Completer, logger *zap.Logger) *Generator {
	return &Generator{completer: completer, logger: utils.OrNop(logger)}
}

// GenerateDocument drafts a document of the requested type.
func (g *Generator) GenerateDocument(ctx context.Context, req models.GenerateRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	prompt := fmt.Sprintf("Write a %s.", strings.TrimSpace(req.DocumentType))
	if info := strings.TrimSpace(req.AdditionalInfo); info != "" {
		prompt += "\n\nAdditional information:\n" + info
	}
	doc, err := g.completer.Complete(ctx, writerRole, []completion.Message{completion.User(prompt)})
	if err != nil {
		return "", upstream("generate.document", err)
	}
	g.logger.Info("document generated", zap.String("type", req.DocumentType), zap.Int("length", len(doc)))
	return doc, nil
}

// AnalyzeReviews parses a CSV of review records (header row first) and asks
// for an analysis of them.
func (g *Generator) AnalyzeReviews(ctx context.Context, data []byte) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", models.NewError(models.KindValidation, "reviews", errors.New("CSV file is empty"))
	}
	records, dropped, err := formatReviews(data)
	if err != nil {
		return "", err
	}
	if dropped > 0 {
		g.logger.Warn("review records truncated",
			zap.Int("max", MaxReviewRecords), zap.Int("dropped", dropped))
	}
	prompt := "Analyze the following performance reviews:\n\n" + records
	analysis, err := g.completer.Complete(ctx, reviewerRole, []completion.Message{completion.User(prompt)})
	if err != nil {
		return "", upstream("generate.reviews", err)
	}
	return analysis, nil
}

// FormatReviews renders each CSV record as "header: value" lines, records
// separated by a blank line. Records past MaxReviewRecords are skipped.
func FormatReviews(data []byte) (string, error) {
	s, _, err := formatReviews(data)
	return s, err
}

// formatReviews also reports how many records were skipped.
func formatReviews(data []byte) (string, int, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return "", 0, models.NewError(models.KindExtraction, "reviews", fmt.Errorf("read CSV header: %w", err))
	}

	var b strings.Builder
	n, dropped := 0, 0
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", 0, models.NewError(models.KindExtraction, "reviews", fmt.Errorf("read CSV: %w", err))
		}
		if n == MaxReviewRecords {
			dropped++
			continue
		}
		if n > 0 {
			b.WriteString("\n")
		}
		for i, col := range header {
			fmt.Fprintf(&b, "%s: %s\n", strings.TrimSpace(col), strings.TrimSpace(row[i]))
		}
		n++
	}
	if n == 0 {
		return "", 0, models.NewError(models.KindValidation, "reviews", errors.New("CSV file has no records"))
	}
	return b.String(), dropped, nil
}

func upstream(op string, err error) error {
	if models.KindOf(err) != "" {
		return err
	}
	return models.NewError(models.KindUpstream, op, err)
}
