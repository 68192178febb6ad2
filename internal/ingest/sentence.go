package ingest

import (
	"strings"
	"unicode"
)

// SplitSentences breaks a paragraph on sentence boundaries (terminal
// punctuation followed by whitespace). Fragments shorter than five words are
// merged into the previous sentence so abbreviations and initials do not
// produce degenerate micro-sentences. Kept as its own pure function so the
// chunker's packing logic is untouched if this is ever swapped for a real
// sentence tokenizer.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	var raw []string
	start := 0
	for i := 0; i < len(runes)-1; i++ {
		if !isSentenceEnd(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		raw = append(raw, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		raw = append(raw, string(runes[start:]))
	}

	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if len(strings.Fields(s)) < 5 && len(out) > 0 {
			out[len(out)-1] = out[len(out)-1] + " " + s
		} else {
			out = append(out, s)
		}
	}
	return out
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
