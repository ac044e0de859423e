package workflow

import (
	"github.com/tiktoken-go/tokenizer"
)

// tokenCounter counts prompt tokens with the GPT-4 encoding, which is close
// enough for every provider we talk to.
type tokenCounter struct {
	codec tokenizer.Codec
}

func newTokenCounter() *tokenCounter {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return &tokenCounter{}
	}
	return &tokenCounter{codec: codec}
}

func (tc *tokenCounter) count(text string) int {
	if tc.codec == nil {
		return len(text) / 4
	}
	n, err := tc.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return n
}

// fit drops items from the front of entries until render(entries) fits in
// limit tokens. The last entry is always kept. A non-positive limit disables trimming.
func fit[T any](tc *tokenCounter, limit int, entries []T, render func([]T) string) []T {
	if limit <= 0 {
		return entries
	}
	for len(entries) > 1 && tc.count(render(entries)) > limit {
		entries = entries[1:]
	}
	return entries
}
