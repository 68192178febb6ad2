package ingest

import (
	"context"
	"fmt"
)

// Extractor turns one source file into raw segments carrying source/page/type
// metadata. Implementations must not chunk or normalize; that happens
// downstream so every format shares one pipeline.
type Extractor interface {
	Extract(ctx context.Context, path, filename string) ([]RawSegment, error)
}

// ExtractorSet holds one extractor per supported format.
type ExtractorSet struct {
	PDF   Extractor
	Docx  Extractor
	Plain Extractor // txt, md, csv pass-through
}

// ForFormat resolves the extractor for a format. Unsupported formats get an
// ErrUnsupportedFormat instead of a nil extractor, so callers branch on the
// error rather than guarding against panics.
func (s *ExtractorSet) ForFormat(f Format) (Extractor, error) {
	switch f {
	case FormatPDF:
		return s.PDF, nil
	case FormatDocx:
		return s.Docx, nil
	case FormatTxt, FormatMarkdown, FormatCSV:
		return s.Plain, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
}
