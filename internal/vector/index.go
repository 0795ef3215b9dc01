// Package vector stores chunk embeddings and answers nearest-neighbour queries.
package vector

import (
	"context"
	"errors"
	"fmt"
)

// MetadataText is the metadata key holding the chunk text.
const MetadataText = "text"

var (
	// ErrDimensionMismatch is returned when a vector's length differs from the index dimensionality.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidTopK is returned for a query with topK < 1.
	ErrInvalidTopK = errors.New("topK must be at least 1")
)

// Entry is one vector to store, keyed by a unique ID.
type Entry struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Match is a single query hit.
type Match struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Text returns the chunk text carried in the match metadata.
func (m *Match) Text() string {
	return m.Metadata[MetadataText]
}

// VectorIndex is a similarity index over chunk embeddings.
//
// Upsert overwrites vector and metadata for an existing ID. Query returns at
// most topK matches ordered by descending score. Failures are returned as-is
// and never retried.
type VectorIndex interface {
	Upsert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]*Match, error)
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// Persister is implemented by indexes that keep their contents in memory and
// must be saved explicitly.
type Persister interface {
	Save(path string) error
	Load(path string) error
}

func checkEntries(entries []Entry, dimensions int) error {
	for _, e := range entries {
		if e.ID == "" {
			return errors.New("entry id must not be empty")
		}
		if len(e.Vector) != dimensions {
			return fmt.Errorf("%w: entry %s has %d, index expects %d", ErrDimensionMismatch, e.ID, len(e.Vector), dimensions)
		}
	}
	return nil
}

func checkQuery(vector []float32, topK, dimensions int) error {
	if topK < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}
	if len(vector) != dimensions {
		return fmt.Errorf("%w: query has %d, index expects %d", ErrDimensionMismatch, len(vector), dimensions)
	}
	return nil
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
