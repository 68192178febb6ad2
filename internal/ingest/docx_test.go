package ingest

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testDocumentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"
            xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"
            xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
  <w:body>
    <w:p><w:r><w:t>Opening paragraph with some narrative text.</w:t></w:r></w:p>
    <w:p><w:r><w:drawing><a:blip r:embed="rId1"/></w:drawing></w:r></w:p>
    <w:tbl>
      <w:tr>
        <w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>Value</w:t></w:r></w:p></w:tc>
      </w:tr>
      <w:tr>
        <w:tc><w:p><w:r><w:t>alpha</w:t></w:r></w:p></w:tc>
        <w:tc><w:p><w:r><w:t>1</w:t></w:r></w:p></w:tc>
      </w:tr>
    </w:tbl>
    <w:p><w:r><w:t>Closing paragraph after the table.</w:t></w:r></w:p>
  </w:body>
</w:document>`

const testRelsXML = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/>
</Relationships>`

func writeTestDocx(t *testing.T, withImage bool) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.docx")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	files := map[string]string{
		"word/document.xml": testDocumentXML,
	}
	if withImage {
		files["word/_rels/document.xml.rels"] = testRelsXML
		files["word/media/image1.png"] = "not-a-real-png"
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

// stubVision returns a fixed transcription for every image.
type stubVision struct {
	out     string
	prompts []string
}

func (s *stubVision) Invoke(_ context.Context, _ []byte, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.out, nil
}

func TestDocxExtractPreservesDocumentOrder(t *testing.T) {
	vision := &stubVision{out: "a diagram of the process"}
	e := NewDocxExtractor(NewVisionBridge(vision, zap.NewNop()), zap.NewNop())

	segs, err := e.Extract(context.Background(), writeTestDocx(t, true), "test.docx")
	require.NoError(t, err)
	require.Len(t, segs, 1)

	seg := segs[0]
	require.Equal(t, SegmentDocxLinear, seg.Kind)
	require.Equal(t, NoPage, seg.Page)
	require.Equal(t, "test.docx", seg.Source)

	content := seg.Content
	opening := strings.Index(content, "Opening paragraph with some narrative text.")
	image := strings.Index(content, "a diagram of the process")
	table := strings.Index(content, "Name | Value")
	closing := strings.Index(content, "Closing paragraph after the table.")

	require.GreaterOrEqual(t, opening, 0)
	require.Greater(t, image, opening)
	require.Greater(t, table, image)
	require.Greater(t, closing, table)
}

func TestDocxExtractWrapsBlocksWithContextMarkers(t *testing.T) {
	vision := &stubVision{out: "a diagram of the process"}
	e := NewDocxExtractor(NewVisionBridge(vision, zap.NewNop()), zap.NewNop())

	segs, err := e.Extract(context.Background(), writeTestDocx(t, true), "test.docx")
	require.NoError(t, err)
	content := segs[0].Content

	require.Contains(t, content, "[IMAGE | context: Opening paragraph with some narrative text.]")
	require.Contains(t, content, "[/IMAGE]")
	require.Contains(t, content, "[TABLE | context:")
	require.Contains(t, content, "Name | Value\nalpha | 1")
	require.Contains(t, content, "[/TABLE]")

	// The vision prompt carries the surrounding paragraphs.
	require.Len(t, vision.prompts, 1)
	require.Contains(t, vision.prompts[0], "Opening paragraph with some narrative text.")
}

func TestDocxExtractTableRowsArePipeJoined(t *testing.T) {
	vision := &stubVision{out: ""}
	e := NewDocxExtractor(NewVisionBridge(vision, zap.NewNop()), zap.NewNop())

	segs, err := e.Extract(context.Background(), writeTestDocx(t, false), "test.docx")
	require.NoError(t, err)
	require.Len(t, segs, 1)
	require.Contains(t, segs[0].Content, "Name | Value\nalpha | 1")
}

func TestDocxExtractMissingArchiveFails(t *testing.T) {
	e := NewDocxExtractor(NewVisionBridge(&stubVision{}, zap.NewNop()), zap.NewNop())
	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "absent.docx"), "absent.docx")
	require.Error(t, err)
}
