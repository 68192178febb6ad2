package ingest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJoinsSoftWraps(t *testing.T) {
	in := "This is a line\nthat wraps softly\nacross three lines."
	require.Equal(t, "This is a line that wraps softly across three lines.", Normalize(in))
}

func TestNormalizePreservesParagraphBoundaries(t *testing.T) {
	in := "First paragraph here.\n\nSecond paragraph here."
	require.Equal(t, "First paragraph here.\n\nSecond paragraph here.", Normalize(in))
}

func TestNormalizeRepairsHyphenation(t *testing.T) {
	require.Equal(t, "a hyphenated word", Normalize("a hyphen-\nated word"))

	// A trailing hyphen before a blank line is a paragraph boundary, not a
	// split word.
	got := Normalize("ends with dash-\n\nnext paragraph")
	require.Equal(t, "ends with dash-\n\nnext paragraph", got)
}

func TestNormalizeStripsPageNumbersAndShoutyHeaders(t *testing.T) {
	in := "CHAPTER ONE\nReal prose starts here.\n42\nAnd continues on this line."
	require.Equal(t, "Real prose starts here. And continues on this line.", Normalize(in))
}

func TestNormalizeKeepsMixedCaseShortLines(t *testing.T) {
	in := "Dr. Smith\nwrote the memo."
	require.Equal(t, "Dr. Smith wrote the memo.", Normalize(in))
}

func TestNormalizeCollapsesWhitespaceAndCRLF(t *testing.T) {
	in := "spaced\t\tout\r\ntext \r\n\r\n\r\n\r\nsecond   block"
	require.Equal(t, "spaced out text\n\nsecond block", Normalize(in))
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"hyphen-\nated text\n\nwith   a second\nparagraph.\n\n17\n\nTHE HEADER\nbody text here.",
		"plain single paragraph",
		"",
		"a-\n  lowercase continuation",
	}
	for _, in := range inputs {
		once := Normalize(in)
		require.Equal(t, once, Normalize(once))
	}
}

func TestNormalizeEmpty(t *testing.T) {
	require.Equal(t, "", Normalize(""))
	require.Equal(t, "", Normalize("\n\n  \n\t\n"))
}
