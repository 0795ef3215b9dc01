// Package embedding turns text into fixed-dimension vectors through a
// configurable provider.
package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// Embedder produces vector embeddings for text.
//
// Embed makes at most one round trip to the provider and never retries.
// Failures are reported as upstream errors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}

func upstream(op string, err error) error {
	return models.NewError(models.KindUpstream, op, err)
}

// checkDimensions rejects vectors whose length differs from want.
// A non-positive want accepts any length.
func checkDimensions(op string, vec []float32, want int) error {
	if len(vec) == 0 {
		return upstream(op, fmt.Errorf("empty embedding returned"))
	}
	if want > 0 && len(vec) != want {
		return upstream(op, fmt.Errorf("embedding has %d dimensions, want %d", len(vec), want))
	}
	return nil
}
