package ingest

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// A line ending in "-" directly followed by a line break and a lowercase
	// letter is a word split across lines. Only horizontal whitespace may sit
	// between the break and the letter, so a paragraph boundary (blank line)
	// never triggers a rejoin.
	hyphenBreakRe = regexp.MustCompile(`-\n[ \t]*([a-z])`)

	pageNumberRe = regexp.MustCompile(`^\d{1,4}$`)
	upperRunRe   = regexp.MustCompile(`[A-Z]{3,}`)
	blankRunRe   = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans raw extracted text while preserving paragraph boundaries.
// It is pure and idempotent; the double-newline paragraph separator in its
// output is the contract the chunker depends on.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	t := strings.ReplaceAll(raw, "\x00", "") // some PDF text layers carry null bytes
	t = strings.ReplaceAll(t, "\r\n", "\n")
	t = strings.ReplaceAll(t, "\r", "\n")
	t = hyphenBreakRe.ReplaceAllString(t, "$1")
	t = stripHeaderFooterLines(t)
	t = blankRunRe.ReplaceAllString(t, "\n\n")

	// Inside a paragraph, single line breaks are soft wraps: merge them into
	// spaces and collapse horizontal whitespace runs at the same time.
	paras := strings.Split(t, "\n\n")
	out := make([]string, 0, len(paras))
	for _, p := range paras {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

// stripHeaderFooterLines drops lines that look like page numbers or shouty
// headers. Both triggers are deliberately narrow so legitimate short content
// is never removed.
func stripHeaderFooterLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, ln := range lines {
		s := strings.TrimSpace(ln)
		if pageNumberRe.MatchString(s) {
			continue
		}
		if s != "" && utf8.RuneCountInString(s) < 40 && isShouty(s) && upperRunRe.MatchString(s) {
			continue
		}
		kept = append(kept, ln)
	}
	return strings.Join(kept, "\n")
}

// isShouty reports whether s has at least one letter and no lowercase ones.
func isShouty(s string) bool {
	hasUpper := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}
