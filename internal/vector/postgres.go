package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// PostgresIndex stores vectors in a pgvector column and lets Postgres rank them.
type PostgresIndex struct {
	db         *sql.DB
	table      string
	dimensions int
}

// NewPostgresIndex connects to dsn and creates the extension and table if needed.
func NewPostgresIndex(ctx context.Context, dsn, table string, dimensions int) (*PostgresIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if table == "" {
		table = "kotae_chunks"
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	p := &PostgresIndex{db: db, table: table, dimensions: dimensions}
	if err := p.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return p, nil
}

func (p *PostgresIndex) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			metadata JSONB,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, p.table, p.dimensions),
	}
	for _, s := range stmts {
		if _, err := p.db.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Type returns the index type identifier.
func (p *PostgresIndex) Type() string {
	return string(IndexTypePostgres)
}

// Dimensions returns the vector dimensionality.
func (p *PostgresIndex) Dimensions() int {
	return p.dimensions
}

// Upsert writes all entries in one transaction.
func (p *PostgresIndex) Upsert(ctx context.Context, entries []Entry) error {
	if err := checkEntries(entries, p.dimensions); err != nil {
		return err
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, embedding, metadata) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding,
		 metadata = EXCLUDED.metadata, updated_at = now()`, p.table))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, pgvector.NewVector(e.Vector), string(meta)); err != nil {
			return fmt.Errorf("upsert %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Query orders rows by cosine distance and converts distance to similarity.
func (p *PostgresIndex) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]*Match, error) {
	if err := checkQuery(vector, topK, p.dimensions); err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, metadata, 1 - (embedding <=> $1) AS score
		 FROM %s ORDER BY embedding <=> $1, id LIMIT $2`, p.table),
		pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		var (
			m    Match
			meta []byte
		)
		if err := rows.Scan(&m.ID, &meta, &m.Score); err != nil {
			return nil, err
		}
		if includeMetadata && len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}

// Size returns the row count, or 0 if the count fails.
func (p *PostgresIndex) Size() int {
	var n int
	if err := p.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s`, p.table)).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close closes the connection pool.
func (p *PostgresIndex) Close() error {
	return p.db.Close()
}
