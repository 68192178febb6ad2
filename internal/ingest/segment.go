package ingest

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// NoPage marks segments from formats without page numbers (DOCX, plain text).
const NoPage = -1

// SegmentKind labels how a segment's content was obtained. Stored verbatim
// in chunk metadata under "type".
type SegmentKind string

const (
	SegmentText       SegmentKind = "text"
	SegmentTable      SegmentKind = "table"
	SegmentImage      SegmentKind = "image"
	SegmentPDFOCR     SegmentKind = "pdf_ocr"
	SegmentDocxLinear SegmentKind = "docx_linear"
	SegmentTxt        SegmentKind = "txt"
	SegmentMarkdown   SegmentKind = "md"
	SegmentCSV        SegmentKind = "csv"
)

// RawSegment is an intermediate unit emitted by an extractor before
// chunking. PDF extraction emits one per page; a DOCX collapses to a single
// ordered segment.
type RawSegment struct {
	Content string
	Source  string // originating filename
	Page    int    // NoPage when the format has no pages
	Kind    SegmentKind
}

// Format is the closed set of ingestible file formats. New formats are added
// by extending this enum and the extractor set, not by scattering extension
// checks across call sites.
type Format int

const (
	FormatUnsupported Format = iota
	FormatPDF
	FormatDocx
	FormatTxt
	FormatMarkdown
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatPDF:
		return "pdf"
	case FormatDocx:
		return "docx"
	case FormatTxt:
		return "txt"
	case FormatMarkdown:
		return "md"
	case FormatCSV:
		return "csv"
	default:
		return "unsupported"
	}
}

// DetectFormat maps a filename to its Format by extension.
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDocx
	case ".txt":
		return FormatTxt
	case ".md", ".markdown":
		return FormatMarkdown
	case ".csv":
		return FormatCSV
	default:
		return FormatUnsupported
	}
}

// ErrUnsupportedFormat is returned when no extractor exists for a file.
// Fatal for that file; a batch rebuild logs it and moves on, a single-file
// append propagates it to the caller.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrIndexMissing is returned by AppendFile when the target index has not
// been built yet.
var ErrIndexMissing = errors.New("index does not exist; run a build first")

// OCRPolicy decides when a PDF page's native text layer is too poor to trust
// and the page must be rasterized and sent to the vision model instead. Any
// single trigger forces OCR.
type OCRPolicy struct {
	MinChars      int     // extracted characters below this → OCR
	MinWords      int     // extracted words below this → OCR
	MinAlphaRatio float64 // letters / characters below this → OCR
	MinWordBoxes  int     // embedded word boxes below this → OCR (scanned page)
	Zoom          float64 // rasterization scale; >=3 keeps small print legible
}

func DefaultOCRPolicy() OCRPolicy {
	return OCRPolicy{
		MinChars:      180,
		MinWords:      40,
		MinAlphaRatio: 0.12,
		MinWordBoxes:  25,
		Zoom:          3,
	}
}

// NeedsOCR applies the policy to a page's extracted text and its embedded
// word-box count. A near-empty text layer strongly implies a scanned page
// regardless of how many characters the extractor managed to recover.
func (p OCRPolicy) NeedsOCR(text string, wordBoxes int) bool {
	t := strings.TrimSpace(text)
	chars := len([]rune(t))
	if chars < p.MinChars {
		return true
	}
	if len(strings.Fields(t)) < p.MinWords {
		return true
	}
	alpha := 0
	for _, r := range t {
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	if float64(alpha)/float64(chars) < p.MinAlphaRatio {
		return true
	}
	return wordBoxes < p.MinWordBoxes
}

// Options tunes the whole ingestion pipeline.
type Options struct {
	MaxTokens     int
	OverlapTokens int
	BatchSize     int           // chunks per upsert batch
	BatchPause    time.Duration // throttle between batches, not a correctness knob
	FileWorkers   int           // parallel files in a build; per-file order preserved
	TableMinChars int           // native text needed before table detection runs
	Filter        FilterConfig
	OCR           OCRPolicy
}

func DefaultOptions() Options {
	return Options{
		MaxTokens:     1000,
		OverlapTokens: 150,
		BatchSize:     100,
		BatchPause:    2 * time.Second,
		FileWorkers:   1,
		TableMinChars: 200,
		Filter:        DefaultFilterConfig(),
		OCR:           DefaultOCRPolicy(),
	}
}
