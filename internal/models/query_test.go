package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestQueryRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{"empty query", "", true},
		{"blank query", "  \n\t", true},
		{"valid query", "what is the leave policy?", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &QueryRequest{Query: tt.query}
			err := q.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGenerateRequest_Validate(t *testing.T) {
	if err := (&GenerateRequest{}).Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("empty documentType: got %v", err)
	}
	if err := (&GenerateRequest{DocumentType: "Leave Policy"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestError_KindMatching(t *testing.T) {
	base := fmt.Errorf("connection refused")
	err := fmt.Errorf("ingest: %w", NewError(KindUpstream, "embed chunk 1", base))

	if !errors.Is(err, ErrUpstream) {
		t.Error("expected ErrUpstream match")
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrExtraction) {
		t.Error("unexpected match on other kinds")
	}
	if !errors.Is(err, base) {
		t.Error("expected underlying error to remain reachable")
	}
	if KindOf(err) != KindUpstream {
		t.Errorf("KindOf = %q", KindOf(err))
	}
	if KindOf(base) != "" {
		t.Errorf("KindOf(plain) = %q, want empty", KindOf(base))
	}
}
