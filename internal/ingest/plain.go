package ingest

import (
	"bytes"
	"context"
	"fmt"
	"os"
)

// PlainExtractor is the pass-through loader for txt, markdown and CSV files:
// the whole file becomes one segment tagged with its native format. No OCR
// or table logic applies.
type PlainExtractor struct{}

func NewPlainExtractor() *PlainExtractor {
	return &PlainExtractor{}
}

func (e *PlainExtractor) Extract(_ context.Context, path, filename string) ([]RawSegment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	return []RawSegment{{
		Content: string(data),
		Source:  filename,
		Page:    NoPage,
		Kind:    SegmentKind(DetectFormat(filename).String()),
	}}, nil
}
