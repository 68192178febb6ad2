package ingest

import (
	"strings"
	"unicode/utf8"
)

// TokenCounter estimates how many model tokens a string costs.
type TokenCounter func(string) int

// ApproxTokens is a cheap token estimator (~4 chars ≈ 1 token). It is not
// exact and does not try to be; the chunker only needs it to be consistent
// across calls.
func ApproxTokens(s string) int {
	t := strings.TrimSpace(s)
	if t == "" {
		return 0
	}
	n := utf8.RuneCountInString(t) / 4
	if n < 1 {
		return 1
	}
	return n
}
