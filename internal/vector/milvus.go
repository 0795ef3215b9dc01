package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	milvusFieldID        = "id"
	milvusFieldEmbedding = "embedding"
	milvusFieldMetadata  = "metadata"

	milvusMaxIDLength       = 256
	milvusMaxMetadataLength = 65535
)

// MilvusIndex stores vectors in a Milvus collection using cosine similarity.
type MilvusIndex struct {
	client     client.Client
	collection string
	dimensions int
}

// NewMilvusIndex connects to addr and creates, indexes and loads the
// collection if it does not exist.
func NewMilvusIndex(ctx context.Context, addr, collection string, dimensions int) (*MilvusIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	c, err := client.NewClient(ctx, client.Config{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus at %s: %w", addr, err)
	}
	m := &MilvusIndex{client: c, collection: collection, dimensions: dimensions}
	if err := m.ensureCollection(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return m, nil
}

func (m *MilvusIndex) ensureCollection(ctx context.Context) error {
	exists, err := m.client.HasCollection(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", m.collection, err)
	}
	if !exists {
		schema := entity.NewSchema().
			WithName(m.collection).
			WithDescription("kotae chunk embeddings").
			WithField(entity.NewField().
				WithName(milvusFieldID).
				WithDataType(entity.FieldTypeVarChar).
				WithIsPrimaryKey(true).
				WithMaxLength(milvusMaxIDLength)).
			WithField(entity.NewField().
				WithName(milvusFieldEmbedding).
				WithDataType(entity.FieldTypeFloatVector).
				WithDim(int64(m.dimensions))).
			WithField(entity.NewField().
				WithName(milvusFieldMetadata).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(milvusMaxMetadataLength))
		if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("failed to create collection %s: %w", m.collection, err)
		}
		idx, err := entity.NewIndexIvfFlat(entity.COSINE, 128)
		if err != nil {
			return fmt.Errorf("failed to build index params: %w", err)
		}
		if err := m.client.CreateIndex(ctx, m.collection, milvusFieldEmbedding, idx, false); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", m.collection, err)
		}
	}
	if err := m.client.LoadCollection(ctx, m.collection, false); err != nil {
		return fmt.Errorf("failed to load collection %s: %w", m.collection, err)
	}
	return nil
}

// Type returns the index type identifier.
func (m *MilvusIndex) Type() string {
	return string(IndexTypeMilvus)
}

// Dimensions returns the vector dimensionality.
func (m *MilvusIndex) Dimensions() int {
	return m.dimensions
}

// Upsert writes all entries in a single Milvus upsert.
func (m *MilvusIndex) Upsert(ctx context.Context, entries []Entry) error {
	if err := checkEntries(entries, m.dimensions); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	vectors := make([][]float32, len(entries))
	metas := make([]string, len(entries))
	for i, e := range entries {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if len(meta) > milvusMaxMetadataLength {
			return fmt.Errorf("metadata for %s exceeds %d bytes", e.ID, milvusMaxMetadataLength)
		}
		ids[i], vectors[i], metas[i] = e.ID, e.Vector, string(meta)
	}

	_, err := m.client.Upsert(ctx, m.collection, "",
		entity.NewColumnVarChar(milvusFieldID, ids),
		entity.NewColumnFloatVector(milvusFieldEmbedding, m.dimensions, vectors),
		entity.NewColumnVarChar(milvusFieldMetadata, metas),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert into milvus: %w", err)
	}
	if err := m.client.Flush(ctx, m.collection, false); err != nil {
		return fmt.Errorf("failed to flush milvus collection: %w", err)
	}
	return nil
}

// Query runs a cosine search for vector.
func (m *MilvusIndex) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]*Match, error) {
	if err := checkQuery(vector, topK, m.dimensions); err != nil {
		return nil, err
	}
	sp, err := entity.NewIndexIvfFlatSearchParam(10)
	if err != nil {
		return nil, err
	}
	outputFields := []string{milvusFieldID}
	if includeMetadata {
		outputFields = append(outputFields, milvusFieldMetadata)
	}
	results, err := m.client.Search(
		ctx, m.collection, []string{}, "", outputFields,
		[]entity.Vector{entity.FloatVector(vector)},
		milvusFieldEmbedding, entity.COSINE, topK, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search in milvus: %w", err)
	}

	var matches []*Match
	for _, res := range results {
		var ids, metas []string
		for _, field := range res.Fields {
			col, ok := field.(*entity.ColumnVarChar)
			if !ok {
				continue
			}
			switch field.Name() {
			case milvusFieldID:
				ids = col.Data()
			case milvusFieldMetadata:
				metas = col.Data()
			}
		}
		if ids == nil {
			if col, ok := res.IDs.(*entity.ColumnVarChar); ok {
				ids = col.Data()
			}
		}
		for i := 0; i < res.ResultCount && i < len(ids); i++ {
			match := &Match{ID: ids[i], Score: float64(res.Scores[i])}
			if includeMetadata && i < len(metas) && metas[i] != "" {
				if err := json.Unmarshal([]byte(metas[i]), &match.Metadata); err != nil {
					return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
				}
			}
			matches = append(matches, match)
		}
	}
	return topMatches(matches, topK), nil
}

// Size returns the collection row count, or 0 if statistics are unavailable.
func (m *MilvusIndex) Size() int {
	stats, err := m.client.GetCollectionStatistics(context.Background(), m.collection)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return 0
	}
	return n
}

// Close closes the Milvus client.
func (m *MilvusIndex) Close() error {
	return m.client.Close()
}
