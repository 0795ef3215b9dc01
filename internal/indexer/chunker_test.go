package indexer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitter_Split(t *testing.T) {
	s := NewSplitter(1000)
	text := strings.Repeat("a", 2500)

	chunks := s.Split(text)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Text, 1000)
	assert.Len(t, chunks[1].Text, 1000)
	assert.Len(t, chunks[2].Text, 500)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
}

func TestSplitter_SplitEmpty(t *testing.T) {
	s := NewSplitter(10)
	assert.Empty(t, s.Split(""))
}

func TestSplitter_SplitShortText(t *testing.T) {
	s := NewSplitter(10)
	chunks := s.Split("hello")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello", chunks[0].Text)

	chunks = s.Split("0123456789")
	require.Len(t, chunks, 1)
	assert.Equal(t, "0123456789", chunks[0].Text)
}

func TestSplitter_ConcatenationRestoresText(t *testing.T) {
	texts := []string{
		"The quick brown fox jumps over the lazy dog.",
		strings.Repeat("policy ", 301),
		"line one\nline two\n\n\tindented",
	}
	for _, size := range []int{1, 3, 7, 100} {
		s := NewSplitter(size)
		for _, text := range texts {
			var b strings.Builder
			chunks := s.Split(text)
			for i, c := range chunks {
				b.WriteString(c.Text)
				n := utf8.RuneCountInString(c.Text)
				if i < len(chunks)-1 {
					assert.Equal(t, size, n)
				} else {
					assert.True(t, n > 0 && n <= size, "last chunk length %d", n)
				}
			}
			assert.Equal(t, text, b.String())
		}
	}
}

func TestSplitter_MultiByteCharacters(t *testing.T) {
	s := NewSplitter(2)
	chunks := s.Split("日本語テキ")
	require.Len(t, chunks, 3)
	assert.Equal(t, "日本", chunks[0].Text)
	assert.Equal(t, "語テ", chunks[1].Text)
	assert.Equal(t, "キ", chunks[2].Text)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c.Text))
	}
}

func TestSplitter_ChunksRestartable(t *testing.T) {
	s := NewSplitter(4)
	seq := s.Chunks("abcdefghij")

	var first, second []string
	for c := range seq {
		first = append(first, c.Text)
	}
	for c := range seq {
		second = append(second, c.Text)
	}
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, first)
	assert.Equal(t, first, second)
}

func TestSplitter_ChunksEarlyStop(t *testing.T) {
	s := NewSplitter(1)
	var got []string
	for c := range s.Chunks("abcdef") {
		got = append(got, c.Text)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestNewSplitter_NonPositiveSize(t *testing.T) {
	assert.Equal(t, DefaultChunkSize, NewSplitter(0).Size())
	assert.Equal(t, DefaultChunkSize, NewSplitter(-5).Size())
}
