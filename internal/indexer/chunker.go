// Package indexer splits documents into chunks and writes their embeddings
// to the vector index.
package indexer

import (
	"iter"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
)

// DefaultChunkSize is the chunk length, in characters, used when none is configured.
const DefaultChunkSize = 1000

// Splitter cuts text into consecutive, non-overlapping chunks of a fixed
// number of characters. The final chunk may be shorter.
type Splitter struct {
	size int
}

// NewSplitter creates a splitter producing chunks of size characters.
// A non-positive size falls back to DefaultChunkSize.
func NewSplitter(size int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &Splitter{size: size}
}

// Size returns the configured chunk length.
func (s *Splitter) Size() int {
	return s.size
}

// Chunks returns a lazy sequence over the chunks of text. Each call to the
// returned sequence starts from the beginning of text.
func (s *Splitter) Chunks(text string) iter.Seq[models.Chunk] {
	return func(yield func(models.Chunk) bool) {
		index := 0
		start := 0
		n := 0
		for i := range text {
			if n == s.size {
				if !yield(models.Chunk{Index: index, Text: text[start:i]}) {
					return
				}
				index++
				start = i
				n = 0
			}
			n++
		}
		if start < len(text) {
			yield(models.Chunk{Index: index, Text: text[start:]})
		}
	}
}

// Split collects all chunks of text.
func (s *Splitter) Split(text string) []models.Chunk {
	chunks := make([]models.Chunk, 0, utf8.RuneCountInString(text)/s.size+1)
	for c := range s.Chunks(text) {
		chunks = append(chunks, c)
	}
	return chunks
}
