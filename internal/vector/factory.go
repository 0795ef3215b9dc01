package vector

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/config"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeSQLite keeps vectors in a local SQLite file. This is the default.
	IndexTypeSQLite IndexType = "sqlite"
	// IndexTypeMemory keeps vectors in memory, optionally saved to a file on shutdown.
	IndexTypeMemory IndexType = "memory"
	// IndexTypePostgres uses PostgreSQL with the pgvector extension.
	IndexTypePostgres IndexType = "postgres"
	// IndexTypeMilvus uses a Milvus collection.
	IndexTypeMilvus IndexType = "milvus"
)

// New creates the vector index selected by cfg.Vector.Type with the given dimensionality.
// A memory index is loaded from cfg.Storage.VectorIndexPath if that file exists.
func New(ctx context.Context, cfg *config.Config, dimensions int) (VectorIndex, error) {
	switch IndexType(cfg.Vector.Type) {
	case IndexTypeSQLite, "":
		return NewSQLiteIndex(cfg.Storage.DatabasePath, dimensions)
	case IndexTypeMemory:
		idx, err := NewMemoryIndex(dimensions)
		if err != nil {
			return nil, err
		}
		if err := idx.Load(cfg.Storage.VectorIndexPath); err != nil {
			return nil, fmt.Errorf("failed to load vector index: %w", err)
		}
		return idx, nil
	case IndexTypePostgres:
		return NewPostgresIndex(ctx, cfg.Vector.PostgresDSN, "", dimensions)
	case IndexTypeMilvus:
		return NewMilvusIndex(ctx, cfg.Vector.MilvusAddress, cfg.Vector.MilvusCollection, dimensions)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: sqlite, memory, postgres, milvus)", cfg.Vector.Type)
	}
}
