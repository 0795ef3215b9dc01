package models

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	// KindValidation is a missing or empty input payload or query.
	KindValidation Kind = "validation"
	// KindExtraction is an unsupported or corrupt document format.
	KindExtraction Kind = "extraction"
	// KindUpstream is a failed embedding, vector index, or completion call,
	// including dimensionality mismatches and malformed responses.
	KindUpstream Kind = "upstream"
)

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrValidation = errors.New("validation error")
	ErrExtraction = errors.New("extraction error")
	ErrUpstream   = errors.New("upstream service error")
)

// Error is the single failure value returned at a pipeline boundary.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError wraps err with kind and operation name.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrExtraction:
		return e.Kind == KindExtraction
	case ErrUpstream:
		return e.Kind == KindUpstream
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
