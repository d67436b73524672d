// Package tokenutil counts tokens for context-budget accounting. Counting
// uses the cl100k_base encoding from tiktoken-go; when the encoding cannot
// be loaded (offline, missing registry) a cheap heuristic takes over so
// callers always get a usable number.
package tokenutil

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var loadEncoding = sync.OnceValue(func() *tiktoken.Tiktoken {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil
	}
	return enc
})

// CountTokens returns the token count of text under cl100k_base, or the
// EstimateFast heuristic when the encoding is unavailable.
func CountTokens(text string) int {
	if enc := loadEncoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	return EstimateFast(text)
}

// EstimateFast approximates the token count without touching tiktoken:
// one token per four runes, floored at one token per whitespace-separated
// word, and at one token for any non-blank text.
func EstimateFast(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	n := len([]rune(trimmed)) / 4
	if words := len(strings.Fields(trimmed)); n < words {
		n = words
	}
	if n < 1 {
		n = 1
	}
	return n
}
