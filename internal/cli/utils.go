// Package cli formats command output for kotae.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat returns the format named by s.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json)", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes the answer to a query.
func WriteAnswer(w io.Writer, query, answer string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, models.QueryResponse{Result: answer})
	}
	fmt.Fprintf(w, "\nQ: %s\n\n%s\n", query, strings.TrimSpace(answer))
	return nil
}

// FileResult is the outcome of ingesting one file.
type FileResult struct {
	Path    string               `json:"path"`
	Result  *models.IngestResult `json:"result,omitempty"`
	Skipped bool                 `json:"skipped,omitempty"`
	Error   string               `json:"error,omitempty"`
}

// WriteIngestResults writes the outcome of an ingest run.
func WriteIngestResults(w io.Writer, results []FileResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, results)
	}
	var ok, failed int
	for _, r := range results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		switch {
		case r.Error != "":
			failed++
			fmt.Fprintf(w, "FAILED  %s\n  %s\n", r.Path, r.Error)
		case r.Skipped:
			fmt.Fprintf(w, "SKIPPED %s (unchanged)\n", r.Path)
		default:
			ok++
			fmt.Fprintf(w, "OK      %s\n", r.Path)
			fmt.Fprintf(w, "  ingestion %s, %d chunk(s)\n", r.Result.IngestionID, r.Result.Chunks)
			if r.Result.Analysis != "" {
				fmt.Fprintf(w, "\n%s\n", TruncateWords(r.Result.Analysis, 80))
			}
		}
	}
	fmt.Fprintf(w, "\nIngested %d file(s), %d failed\n", ok, failed)
	return nil
}

// WriteText writes a generated document or analysis.
func WriteText(w io.Writer, key, text string, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]string{key: text})
	}
	fmt.Fprintln(w, strings.TrimSpace(text))
	return nil
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	return writeJSON(w, v)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
