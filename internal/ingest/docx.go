package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"code.sajari.com/docconv"
	"go.uber.org/zap"
)

const docxMimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DocxExtractor walks the document body in strict document order so that
// narrative text, inline images and tables come out in the sequence a reader
// sees them. Images are transcribed through the vision bridge with the last
// few paragraphs as context; tables are serialized as pipe-joined rows. Both
// are wrapped in explicit markers so the chunker sees a hard semantic break.
// The whole document collapses into a single segment: document order is the
// only structural signal DOCX gives the chunker, and splitting here would
// destroy it.
type DocxExtractor struct {
	vision *VisionBridge
	log    *zap.Logger
}

func NewDocxExtractor(vision *VisionBridge, log *zap.Logger) *DocxExtractor {
	return &DocxExtractor{vision: vision, log: log}
}

const contextWindowSize = 3

func (e *DocxExtractor) Extract(ctx context.Context, filePath, filename string) ([]RawSegment, error) {
	content, err := e.walkDocument(ctx, filePath)
	if err != nil {
		// The structured walk only understands well-formed OOXML; hand
		// anything else to docconv and take plain text over nothing.
		e.log.Warn("structured docx walk failed, falling back to plain extraction",
			zap.String("file", filename), zap.Error(err))
		content, err = e.fallbackText(filePath)
		if err != nil {
			return nil, fmt.Errorf("extract docx %s: %w", filename, err)
		}
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	return []RawSegment{{
		Content: content,
		Source:  filename,
		Page:    NoPage,
		Kind:    SegmentDocxLinear,
	}}, nil
}

func (e *DocxExtractor) fallbackText(filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	res, err := docconv.Convert(f, docxMimeType, false)
	if err != nil {
		return "", err
	}
	return res.Body, nil
}

// walkDocument streams word/document.xml and emits blocks in document order.
func (e *DocxExtractor) walkDocument(ctx context.Context, filePath string) (string, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}
	defer zr.Close()

	docXML, err := readZipFile(&zr.Reader, "word/document.xml")
	if err != nil {
		return "", err
	}
	rels, err := loadRelationships(&zr.Reader)
	if err != nil {
		return "", err
	}

	w := &docxWalker{
		extractor: e,
		archive:   &zr.Reader,
		rels:      rels,
	}
	if err := w.run(ctx, docXML); err != nil {
		return "", err
	}
	return strings.Join(w.blocks, "\n\n"), nil
}

// docxWalker holds the state of one ordered pass over the document body.
type docxWalker struct {
	extractor *DocxExtractor
	archive   *zip.Reader
	rels      map[string]string

	blocks []string
	window []string // last few non-empty paragraph texts
}

func (w *docxWalker) run(ctx context.Context, docXML []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(docXML))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("parse document.xml: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "p":
			if err := w.paragraph(ctx, dec); err != nil {
				return err
			}
		case "tbl":
			if err := w.table(dec); err != nil {
				return err
			}
		}
	}
}

// paragraph consumes one w:p element: the run text becomes a block and feeds
// the context window, and any embedded images are transcribed right after it.
func (w *docxWalker) paragraph(ctx context.Context, dec *xml.Decoder) error {
	var sb strings.Builder
	var imageIDs []string

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("parse paragraph: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				depth++
			case "t":
				text, err := elementText(dec)
				if err != nil {
					return err
				}
				sb.WriteString(text)
			case "blip":
				if id := relationshipID(t); id != "" {
					imageIDs = append(imageIDs, id)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				depth--
			}
		}
	}

	if text := strings.TrimSpace(sb.String()); text != "" {
		w.blocks = append(w.blocks, text)
		w.window = append(w.window, text)
		if len(w.window) > contextWindowSize {
			w.window = w.window[len(w.window)-contextWindowSize:]
		}
	}
	for _, id := range imageIDs {
		w.image(ctx, id)
	}
	return nil
}

// image resolves a relationship id to media bytes and transcribes it. A
// missing or untranscribable image degrades to no block at all; the
// surrounding text still flows through.
func (w *docxWalker) image(ctx context.Context, relID string) {
	target, ok := w.rels[relID]
	if !ok {
		w.extractor.log.Warn("docx image relationship not found", zap.String("rel_id", relID))
		return
	}
	data, err := readZipFile(w.archive, path.Join("word", target))
	if err != nil {
		w.extractor.log.Warn("docx image payload unreadable",
			zap.String("target", target), zap.Error(err))
		return
	}

	prompt := "Transcribe the content of this image verbatim. " +
		"If it is a table, reproduce it as a Markdown table. Do not summarize. " +
		"Surrounding document context:\n" + strings.Join(w.window, "\n")
	text := w.extractor.vision.Transcribe(ctx, data, prompt)
	if text == "" {
		return
	}
	w.blocks = append(w.blocks, w.wrapBlock("IMAGE", text))
}

// table consumes one w:tbl element, serializing each row as pipe-joined cell
// text and rows joined by newlines.
func (w *docxWalker) table(dec *xml.Decoder) error {
	var rows []string
	var cells []string
	var cell strings.Builder

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("parse table: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				depth++
			case "t":
				text, err := elementText(dec)
				if err != nil {
					return err
				}
				cell.WriteString(text)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				depth--
			case "tc":
				cells = append(cells, strings.TrimSpace(cell.String()))
				cell.Reset()
			case "tr":
				rows = append(rows, strings.Join(cells, " | "))
				cells = nil
			}
		}
	}

	if len(rows) == 0 {
		return nil
	}
	w.blocks = append(w.blocks, w.wrapBlock("TABLE", strings.Join(rows, "\n")))
	return nil
}

// wrapBlock tags transcribed content with its type and the paragraphs that
// preceded it, giving the chunker an explicit semantic break.
func (w *docxWalker) wrapBlock(kind, content string) string {
	ctxLine := strings.Join(w.window, " / ")
	if ctxLine == "" {
		ctxLine = "document start"
	}
	return fmt.Sprintf("[%s | context: %s]\n%s\n[/%s]", kind, ctxLine, content, kind)
}

// elementText reads the character data up to the current element's close tag.
func elementText(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("parse text run: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(t)
		}
	}
	return sb.String(), nil
}

// relationshipID pulls the r:embed (or r:id) attribute off a blip element.
func relationshipID(se xml.StartElement) string {
	for _, attr := range se.Attr {
		if attr.Name.Local == "embed" || attr.Name.Local == "id" {
			return attr.Value
		}
	}
	return ""
}

type relationships struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

func loadRelationships(zr *zip.Reader) (map[string]string, error) {
	data, err := readZipFile(zr, "word/_rels/document.xml.rels")
	if err != nil {
		// Documents without images or hyperlinks may omit the part.
		return map[string]string{}, nil
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("parse relationships: %w", err)
	}
	out := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		out[r.ID] = r.Target
	}
	return out, nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", name, err)
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("%s not found in archive", name)
}
