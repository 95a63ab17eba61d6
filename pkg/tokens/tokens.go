// Package tokens provides tiktoken-based token counting. Used to estimate
// usage when a provider responds without usage numbers.
package tokens

import (
	"fmt"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens for a model family.
type Counter struct {
	codec tokenizer.Codec
}

// NewCounter creates a token counter. All supported models approximate well
// enough with the GPT-4 encoding.
func NewCounter() (*Counter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &Counter{codec: codec}, nil
}

// CountTokens returns the number of tokens in the given text. Falls back to
// a 4-chars-per-token estimate if the codec is unavailable.
func (c *Counter) CountTokens(text string) int {
	if c == nil || c.codec == nil {
		return len(text) / 4
	}
	count, err := c.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

//nolint:gochecknoglobals // Shared codec, expensive to construct
var (
	defaultCounter *Counter
	defaultOnce    sync.Once
)

// Count counts tokens using a shared default counter.
func Count(text string) int {
	defaultOnce.Do(func() {
		defaultCounter, _ = NewCounter() // nil counter falls back to estimation
	})
	return defaultCounter.CountTokens(text)
}
