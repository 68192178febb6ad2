package ingest

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// FilterConfig holds the low-value chunk thresholds. The defaults are
// hand-tuned operating constants, not derived values; treat them as
// configuration.
type FilterConfig struct {
	MinChars         int     // chunks strictly shorter than this are dropped
	MinAlphaRatio    float64 // minimum letters / total characters
	MinDistinctWords int     // repetition floor, applied over 300 characters
}

func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinChars:         80,
		MinAlphaRatio:    0.35,
		MinDistinctWords: 6,
	}
}

// IsLowValue reports whether a chunk is too short, too symbol-heavy, or too
// repetitive to be worth indexing. Low-value chunks are never persisted.
func (f FilterConfig) IsLowValue(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return true
	}
	n := utf8.RuneCountInString(t)
	if n < f.MinChars {
		return true
	}

	alpha := 0
	for _, r := range t {
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	if float64(alpha)/float64(n) < f.MinAlphaRatio {
		return true
	}

	if n > 300 {
		distinct := make(map[string]struct{})
		for _, w := range strings.Fields(strings.ToLower(t)) {
			distinct[w] = struct{}{}
		}
		if len(distinct) < f.MinDistinctWords {
			return true
		}
	}
	return false
}
