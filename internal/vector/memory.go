package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hyperjump/kotae/pkg/utils"
)

// MemoryIndex is an in-memory vector index using brute-force cosine search.
// Contents survive restarts only through Save and Load.
type MemoryIndex struct {
	dimensions int
	entries    map[string]Entry
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		dimensions: dimensions,
		entries:    make(map[string]Entry),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Dimensions returns the vector dimensionality.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Upsert stores entries, replacing any with the same ID. Either all entries
// are stored or none.
func (m *MemoryIndex) Upsert(ctx context.Context, entries []Entry) error {
	if err := checkEntries(entries, m.dimensions); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		vec := make([]float32, m.dimensions)
		copy(vec, e.Vector)
		m.entries[e.ID] = Entry{ID: e.ID, Vector: vec, Metadata: copyMetadata(e.Metadata)}
	}
	return nil
}

// Query returns the topK entries closest to vector.
func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, includeMetadata bool) ([]*Match, error) {
	if err := checkQuery(vector, topK, m.dimensions); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	matches := make([]*Match, 0, len(m.entries))
	for id, e := range m.entries {
		match := &Match{ID: id, Score: CosineSimilarity(vector, e.Vector)}
		if includeMetadata {
			match.Metadata = copyMetadata(e.Metadata)
		}
		matches = append(matches, match)
	}
	return topMatches(matches, topK), nil
}

// Size returns the number of vectors in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

// Save persists the index to path, creating the directory if needed.
// Format: dimension (4), n (4), then per entry: idLen (4), id, metaLen (4),
// metadata JSON, vector (dimension*4 bytes). Integers are little-endian.
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := m.write(w); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("flush index file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close index file: %w", err)
	}
	return os.Rename(tmp, path)
}

func (m *MemoryIndex) write(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.entries))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for id, e := range m.entries {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", id, err)
		}
		for _, field := range [][]byte{[]byte(id), meta} {
			if err := binary.Write(w, binary.LittleEndian, uint32(len(field))); err != nil {
				return fmt.Errorf("write length: %w", err)
			}
			if _, err := w.Write(field); err != nil {
				return fmt.Errorf("write entry: %w", err)
			}
		}
		if _, err := w.Write(utils.Float32sToBytes(e.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents. Dimensions must match.
// If the file does not exist, no error is returned and the index is unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, dim, m.dimensions)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	entries := make(map[string]Entry, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		id, err := readField(r)
		if err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		meta, err := readField(r)
		if err != nil {
			return fmt.Errorf("read metadata: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		vec, err := utils.BytesToFloat32s(buf)
		if err != nil {
			return err
		}
		e := Entry{ID: string(id), Vector: vec}
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return fmt.Errorf("decode metadata for %s: %w", id, err)
		}
		entries[e.ID] = e
	}

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return nil
}

func readField(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}
