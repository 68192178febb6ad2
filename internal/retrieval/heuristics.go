package retrieval

import (
	"strings"
	"unicode"
)

var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "yo": {}, "thanks": {},
	"thank you": {}, "ok": {}, "okay": {}, "bye": {}, "goodbye": {},
}

// skipRewrite flags inputs not worth spending an LLM call on: short
// messages, greetings, and keyboard mash. Rewriting those produces
// hallucinated queries that retrieve noise.
func skipRewrite(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(q)) < 4 {
		return true
	}
	if _, ok := greetings[strings.TrimRight(q, "!.?")]; ok {
		return true
	}
	return looksGibberish(q)
}

// looksGibberish combines a vowel-ratio check with a repeated-character
// check. Real words in Latin-script languages rarely drop below one vowel
// per five letters, and rarely repeat a character four times in a row.
func looksGibberish(q string) bool {
	letters, vowels := 0, 0
	for _, r := range q {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if strings.ContainsRune("aeiou", unicode.ToLower(r)) {
			vowels++
		}
	}
	if letters >= 5 && float64(vowels)/float64(letters) < 0.2 {
		return true
	}

	run, prev := 0, rune(0)
	for _, r := range q {
		if r == prev {
			run++
			if run >= 4 {
				return true
			}
		} else {
			prev, run = r, 1
		}
	}
	return false
}
