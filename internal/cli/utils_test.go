package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
)

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{" JSON ", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteAnswer(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, "How much leave?", "Twenty days.\n", OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Q: How much leave?") || !strings.Contains(out, "Twenty days.") {
		t.Errorf("unexpected text output: %q", out)
	}

	buf.Reset()
	if err := WriteAnswer(&buf, "q", "a", OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.QueryResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Result != "a" {
		t.Errorf("result = %q", decoded.Result)
	}
}

func TestWriteIngestResults_Text(t *testing.T) {
	results := []FileResult{
		{Path: "/inbox/a.pdf", Result: &models.IngestResult{IngestionID: "ing-1", Chunks: 4, Analysis: "Looks complete."}},
		{Path: "/inbox/b.txt", Skipped: true},
		{Path: "/inbox/c.docx", Error: "extract: corrupt archive"},
	}
	var buf bytes.Buffer
	if err := WriteIngestResults(&buf, results, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"OK      /inbox/a.pdf", "ing-1, 4 chunk(s)", "Looks complete.", "SKIPPED /inbox/b.txt", "FAILED  /inbox/c.docx", "Ingested 1 file(s), 1 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteIngestResults_JSON(t *testing.T) {
	results := []FileResult{{Path: "a.txt", Result: &models.IngestResult{IngestionID: "x", Chunks: 1}}}
	var buf bytes.Buffer
	if err := WriteIngestResults(&buf, results, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded []FileResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded) != 1 || decoded[0].Result.IngestionID != "x" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	_ = WriteText(&buf, "document", "  # Policy\n", OutputText)
	if buf.String() != "# Policy\n" {
		t.Errorf("text output = %q", buf.String())
	}
	buf.Reset()
	_ = WriteText(&buf, "document", "# Policy", OutputJSON)
	if !strings.Contains(buf.String(), `"document": "# Policy"`) {
		t.Errorf("json output = %q", buf.String())
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		s        string
		maxWords int
		want     string
	}{
		{"one two three", 5, "one two three"},
		{"one two three four", 2, "one two..."},
		{"", 3, ""},
	}
	for _, tt := range tests {
		if got := TruncateWords(tt.s, tt.maxWords); got != tt.want {
			t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.s, tt.maxWords, got, tt.want)
		}
	}
}
