package ingest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/harmattan-labs/docent/internal/core"
)

// PDFExtractor emits one segment per page that has any text. Each page is
// read from the embedded text layer first (layout-aware, then a raw fallback
// if that comes back empty); pages whose text layer fails the OCR policy are
// rasterized and transcribed through the vision bridge instead. Pages with a
// rich text layer additionally get geometric table detection, and each
// detected table region is cropped, archived to object storage and
// transcribed to Markdown, appended inline under a [TABLE] marker.
type PDFExtractor struct {
	vision  *VisionBridge
	raster  Rasterizer
	storage core.ObjectClient // optional; table crops are archived when set
	bucket  string
	opts    Options
	log     *zap.Logger
}

func NewPDFExtractor(vision *VisionBridge, raster Rasterizer, storage core.ObjectClient, bucket string, opts Options, log *zap.Logger) *PDFExtractor {
	return &PDFExtractor{
		vision:  vision,
		raster:  raster,
		storage: storage,
		bucket:  bucket,
		opts:    opts,
		log:     log,
	}
}

func (e *PDFExtractor) Extract(ctx context.Context, path, filename string) ([]RawSegment, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", filename, err)
	}
	defer f.Close()

	var segs []RawSegment
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		seg, err := e.extractPage(ctx, path, filename, page, pageNum)
		if err != nil {
			// A corrupt page should not sink the rest of the file.
			e.log.Warn("pdf page extraction failed, skipping page",
				zap.String("file", filename), zap.Int("page", pageNum), zap.Error(err))
			continue
		}
		if strings.TrimSpace(seg.Content) == "" {
			continue
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func (e *PDFExtractor) extractPage(ctx context.Context, path, filename string, page pdf.Page, pageNum int) (RawSegment, error) {
	text, boxes, rows, err := pageLayoutText(page)
	if err != nil {
		return RawSegment{}, err
	}
	if strings.TrimSpace(text) == "" {
		text = rawPageText(page)
	}

	kind := SegmentText
	if e.opts.OCR.NeedsOCR(text, boxes) {
		if ocr := e.ocrPage(ctx, path, filename, pageNum); ocr != "" {
			text = ocr
			kind = SegmentPDFOCR
		}
	} else if utf8.RuneCountInString(text) >= e.opts.TableMinChars {
		text = e.appendTables(ctx, path, filename, pageNum, rows, text)
	}

	return RawSegment{Content: text, Source: filename, Page: pageNum, Kind: kind}, nil
}

// ocrPage rasterizes the full page and asks the vision model for a verbatim
// transcription. Returns "" when rendering or transcription fails; the
// caller keeps whatever native text the page had.
func (e *PDFExtractor) ocrPage(ctx context.Context, path, filename string, pageNum int) string {
	img, err := e.raster.Page(path, pageNum, e.opts.OCR.Zoom)
	if err != nil {
		e.log.Warn("page rasterization failed, keeping native text",
			zap.String("file", filename), zap.Int("page", pageNum), zap.Error(err))
		return ""
	}
	return e.vision.Transcribe(ctx, img, pageOCRPrompt)
}

// appendTables runs table detection over the page geometry and appends each
// transcribed table to the page text under a [TABLE] marker.
func (e *PDFExtractor) appendTables(ctx context.Context, path, filename string, pageNum int, rows []textRow, text string) string {
	for i, reg := range detectTableRegions(rows) {
		crop, err := e.raster.Region(path, pageNum, e.opts.OCR.Zoom, reg.x0, reg.y0, reg.x1, reg.y1)
		if err != nil {
			e.log.Warn("table region rasterization failed",
				zap.String("file", filename), zap.Int("page", pageNum), zap.Error(err))
			continue
		}
		e.archiveTableCrop(ctx, filename, pageNum, i, crop)

		md := e.vision.Transcribe(ctx, crop, tableOCRPrompt)
		if md == "" {
			continue
		}
		text += "\n\n[TABLE]\n" + md
	}
	return text
}

// archiveTableCrop keeps the cropped table image around for audit/debugging.
// Best effort: archival failures never block ingestion.
func (e *PDFExtractor) archiveTableCrop(ctx context.Context, filename string, pageNum, tableIdx int, crop []byte) {
	if e.storage == nil {
		return
	}
	key := fmt.Sprintf("table-crops/%s/page-%d-table-%d.jpg", filename, pageNum, tableIdx)
	if _, err := e.storage.UploadFile(ctx, e.bucket, key, crop, "image/jpeg"); err != nil {
		e.log.Warn("table crop archival failed", zap.String("key", key), zap.Error(err))
	}
}

// textRow is one horizontal band of the page's text-layer boxes.
type textRow struct {
	y     float64
	items []pdf.Text
}

// tableRegion is a bounding box in PDF points, origin bottom-left.
type tableRegion struct {
	x0, y0, x1, y1 float64
}

const rowYTolerance = 2.0

// pageLayoutText reassembles the page's text layer in reading order from the
// positioned text boxes and reports the box count. The underlying parser
// panics on some malformed content streams, so this recovers and reports
// the page as failed instead.
func pageLayoutText(page pdf.Page) (text string, boxes int, rows []textRow, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("text layer parse: %v", r)
		}
	}()

	items := page.Content().Text
	if len(items) == 0 {
		return "", 0, nil, nil
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Y != items[j].Y {
			return items[i].Y > items[j].Y // top of page first
		}
		return items[i].X < items[j].X
	})

	for _, it := range items {
		if len(rows) > 0 && rows[len(rows)-1].y-it.Y < rowYTolerance {
			rows[len(rows)-1].items = append(rows[len(rows)-1].items, it)
			continue
		}
		rows = append(rows, textRow{y: it.Y, items: []pdf.Text{it}})
	}

	var sb strings.Builder
	for ri, row := range rows {
		if ri > 0 {
			sb.WriteByte('\n')
		}
		lastEnd := 0.0
		for i, it := range row.items {
			if i > 0 && it.X-lastEnd > 1.5 {
				sb.WriteByte(' ')
			}
			sb.WriteString(it.S)
			lastEnd = it.X + it.W
		}
	}
	return sb.String(), len(items), rows, nil
}

// rawPageText is the unpositioned fallback when the layout pass yields
// nothing.
func rawPageText(page pdf.Page) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

// detectTableRegions looks for runs of at least three consecutive rows that
// each hold three or more boxes with a stable column count, the geometric
// signature of a grid. It errs toward missing tables rather than cropping
// prose; the vision pass is expensive and a false positive pollutes the
// page with a bogus [TABLE] block.
func detectTableRegions(rows []textRow) []tableRegion {
	const (
		minCols = 3
		minRows = 3
	)

	var regions []tableRegion
	runStart := -1

	flush := func(end int) {
		if runStart < 0 || end-runStart < minRows {
			runStart = -1
			return
		}
		reg := tableRegion{x0: 1e18, y0: 1e18, x1: -1e18, y1: -1e18}
		for _, row := range rows[runStart:end] {
			for _, it := range row.items {
				reg.x0 = min(reg.x0, it.X)
				reg.x1 = max(reg.x1, it.X+it.W)
				reg.y0 = min(reg.y0, it.Y-it.FontSize)
				reg.y1 = max(reg.y1, it.Y+it.FontSize)
			}
		}
		regions = append(regions, reg)
		runStart = -1
	}

	prevCols := 0
	for i, row := range rows {
		cols := len(row.items)
		gridLike := cols >= minCols && (runStart < 0 || abs(cols-prevCols) <= 1)
		if gridLike {
			if runStart < 0 {
				runStart = i
			}
			prevCols = cols
			continue
		}
		flush(i)
	}
	flush(len(rows))
	return regions
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
