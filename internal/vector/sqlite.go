package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/pkg/utils"
)

// SQLiteIndex persists vectors in a SQLite table and scores them by brute
// force at query time.
type SQLiteIndex struct {
	db         *sql.DB
	dimensions int
}

// NewSQLiteIndex opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. An existing database
// built for a different dimensionality is rejected.
func NewSQLiteIndex(dbPath string, dimensions int) (*SQLiteIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db, dimensions); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteIndex{db: db, dimensions: dimensions}, nil
}

func initSchema(db *sql.DB, dimensions int) error {
	schema := `
	CREATE TABLE IF NOT EXISTS index_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunk_vectors (
		id TEXT PRIMARY KEY,
		vector BLOB NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}

	var stored string
	err := db.QueryRow(`SELECT value FROM index_meta WHERE key = 'dimensions'`).Scan(&stored)
	if err == sql.ErrNoRows {
		_, err = db.Exec(`INSERT INTO index_meta (key, value) VALUES ('dimensions', ?)`, strconv.Itoa(dimensions))
		return err
	}
	if err != nil {
		return err
	}
	if stored != strconv.Itoa(dimensions) {
		return fmt.Errorf("%w: database has %s, index expects %d", ErrDimensionMismatch, stored, dimensions)
	}
	return nil
}

// Type returns the index type identifier.
func (s *SQLiteIndex) Type() string {
	return string(IndexTypeSQLite)
}

// Dimensions returns the vector dimensionality.
func (s *SQLiteIndex) Dimensions() int {
	return s.dimensions
}

// Upsert writes all entries in one transaction.
func (s *SQLiteIndex) Upsert(ctx context.Context, entries []Entry) error {
	if err := checkEntries(entries, s.dimensions); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunk_vectors (id, vector, metadata) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET vector = excluded.vector, metadata = excluded.metadata,
		 updated_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, utils.Float32sToBytes(e.Vector), string(meta)); err != nil {
			return fmt.Errorf("upsert %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Query scans all stored vectors and returns the topK by cosine similarity.
func (s *SQLiteIndex) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]*Match, error) {
	if err := checkQuery(vector, topK, s.dimensions); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, vector, metadata FROM chunk_vectors`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		var (
			id       string
			blob     []byte
			metadata sql.NullString
		)
		if err := rows.Scan(&id, &blob, &metadata); err != nil {
			return nil, err
		}
		vec, err := utils.BytesToFloat32s(blob)
		if err != nil {
			return nil, fmt.Errorf("decode vector %s: %w", id, err)
		}
		match := &Match{ID: id, Score: CosineSimilarity(vector, vec)}
		if includeMetadata && metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &match.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return topMatches(matches, topK), nil
}

// Size returns the number of stored vectors, or 0 if the count fails.
func (s *SQLiteIndex) Size() int {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chunk_vectors`).Scan(&n); err != nil {
		return 0
	}
	return n
}

// Close closes the database connection.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}
