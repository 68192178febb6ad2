package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"report.pdf":   FormatPDF,
		"Report.PDF":   FormatPDF,
		"memo.docx":    FormatDocx,
		"notes.txt":    FormatTxt,
		"readme.md":    FormatMarkdown,
		"data.csv":     FormatCSV,
		"image.png":    FormatUnsupported,
		"archive.zip":  FormatUnsupported,
		"no_extension": FormatUnsupported,
	}
	for name, want := range cases {
		require.Equal(t, want, DetectFormat(name), name)
	}
}

func TestForFormatUnsupported(t *testing.T) {
	set := &ExtractorSet{Plain: NewPlainExtractor()}
	_, err := set.ForFormat(FormatUnsupported)
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	ex, err := set.ForFormat(FormatCSV)
	require.NoError(t, err)
	require.NotNil(t, ex)
}

func richPageText() string {
	return strings.TrimSpace(strings.Repeat("ordinary page prose with words ", 15))
}

func TestNeedsOCRTriggers(t *testing.T) {
	p := DefaultOCRPolicy()

	// Plenty of word boxes does not save a page with too few characters.
	short := strings.Repeat("abcdefghij ", 13) // ~150 chars
	require.Less(t, len([]rune(strings.TrimSpace(short))), 180)
	require.True(t, p.NeedsOCR(short, 500))

	// A near-empty text layer forces OCR even when the text itself is fine.
	require.True(t, p.NeedsOCR(richPageText(), 10))

	// Too few words.
	fewWords := strings.Repeat("abcdefghijklmnopqrstuvwxyz", 10)
	require.True(t, p.NeedsOCR(fewWords, 500))

	// Symbol soup.
	digits := strings.Repeat("123 456 789 000 111 222 333 444 555 666 ", 10)
	require.True(t, p.NeedsOCR(digits, 500))
}

func TestNeedsOCRRichTextLayer(t *testing.T) {
	p := DefaultOCRPolicy()
	require.False(t, p.NeedsOCR(richPageText(), 60))
}
