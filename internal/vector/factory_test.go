package vector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, indexType string) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Storage: config.StorageConfig{
			DatabasePath:    filepath.Join(dir, "vectors.db"),
			VectorIndexPath: filepath.Join(dir, "vectors.idx"),
		},
		Vector: config.VectorConfig{Type: indexType},
	}
}

func TestNew_SQLite(t *testing.T) {
	idx, err := New(context.Background(), testConfig(t, "sqlite"), 3)
	require.NoError(t, err)
	defer idx.Close()
	assert.Equal(t, "sqlite", idx.Type())
}

func TestNew_EmptyDefaultsToSQLite(t *testing.T) {
	idx, err := New(context.Background(), testConfig(t, ""), 3)
	require.NoError(t, err)
	defer idx.Close()
	assert.Equal(t, "sqlite", idx.Type())
}

func TestNew_MemoryLoadsSavedIndex(t *testing.T) {
	cfg := testConfig(t, "memory")
	mem, err := NewMemoryIndex(3)
	require.NoError(t, err)
	require.NoError(t, mem.Upsert(context.Background(), entries()))
	require.NoError(t, mem.Save(cfg.Storage.VectorIndexPath))

	idx, err := New(context.Background(), cfg, 3)
	require.NoError(t, err)
	defer idx.Close()
	assert.Equal(t, 3, idx.Size())
	_, ok := idx.(Persister)
	assert.True(t, ok)
}

func TestNew_Unknown(t *testing.T) {
	_, err := New(context.Background(), testConfig(t, "faiss"), 3)
	assert.Error(t, err)
}

func TestNew_InvalidDimension(t *testing.T) {
	_, err := New(context.Background(), testConfig(t, "memory"), 0)
	assert.Error(t, err)
}

func TestPostgresIndex_Contract(t *testing.T) {
	dsn := os.Getenv("KOTAE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("KOTAE_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	idx, err := NewPostgresIndex(ctx, dsn, "kotae_contract_test", 3)
	require.NoError(t, err)
	defer idx.Close()
	_, err = idx.db.ExecContext(ctx, "TRUNCATE kotae_contract_test")
	require.NoError(t, err)
	indexContract(t, idx)
}

func TestNewPostgresIndex_RejectsBadTableName(t *testing.T) {
	_, err := NewPostgresIndex(context.Background(), "postgres://localhost/none", "chunks; DROP TABLE x", 3)
	assert.Error(t, err)
}

func TestMilvusIndex_Contract(t *testing.T) {
	addr := os.Getenv("KOTAE_TEST_MILVUS_ADDR")
	if addr == "" {
		t.Skip("KOTAE_TEST_MILVUS_ADDR not set")
	}
	ctx := context.Background()
	idx, err := NewMilvusIndex(ctx, addr, "kotae_contract_test", 3)
	require.NoError(t, err)
	defer func() {
		_ = idx.client.DropCollection(ctx, "kotae_contract_test")
		_ = idx.Close()
	}()
	indexContract(t, idx)
}
