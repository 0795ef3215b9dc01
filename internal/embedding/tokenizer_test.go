package embedding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.Tokenize("hello world", 10)
	require.Len(t, ids, 10)
	require.Len(t, attn, 10)
	require.Len(t, types, 10)

	assert.Equal(t, int64(tokenCLS), ids[0])
	assert.Equal(t, int64(tokenSEP), ids[3])
	assert.Equal(t, []int64{1, 1, 1, 1, 0}, attn[:5])
}

func TestSimpleTokenizer_Truncates(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize("a b c d e f g h i j k l", 4)
	require.Len(t, ids, 4)
	assert.Equal(t, int64(tokenSEP), ids[3])
	for i, v := range attn {
		assert.Equal(t, int64(1), v, "attention[%d]", i)
	}
}

func TestHashString(t *testing.T) {
	assert.NotZero(t, HashString("abc"))
	assert.Equal(t, HashString("abc"), HashString("abc"), "hash should be deterministic")
	assert.GreaterOrEqual(t, HashString("a very long string that overflows the accumulator many times over"), 0)
}
