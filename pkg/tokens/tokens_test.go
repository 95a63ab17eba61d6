package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokens(t *testing.T) {
	counter, err := NewCounter()
	require.NoError(t, err)

	assert.Zero(t, counter.CountTokens(""))
	assert.Positive(t, counter.CountTokens("hello world"))

	short := counter.CountTokens("hi")
	long := counter.CountTokens("a considerably longer sentence with many more words in it")
	assert.Greater(t, long, short)
}

func TestNilCounterFallback(t *testing.T) {
	var counter *Counter
	// 4 chars per token estimate.
	assert.Equal(t, 3, counter.CountTokens("twelve chars"))
}

func TestPackageLevelCount(t *testing.T) {
	assert.Positive(t, Count("hello world"))
}
