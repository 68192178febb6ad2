package ingest

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
)

// Rasterizer renders a PDF page, or a region of it, to an encoded JPEG.
// Region coordinates are PDF points with the origin at the bottom-left, the
// way the text-layer geometry reports them.
type Rasterizer interface {
	Page(path string, page int, zoom float64) ([]byte, error)
	Region(path string, page int, zoom float64, x0, y0, x1, y1 float64) ([]byte, error)
}

// fitzRasterizer renders through MuPDF. Pages are rendered at 72*zoom DPI so
// one PDF point maps to exactly zoom pixels, which keeps the region math
// trivial.
type fitzRasterizer struct{}

func NewRasterizer() Rasterizer {
	return fitzRasterizer{}
}

func (fitzRasterizer) Page(path string, page int, zoom float64) ([]byte, error) {
	img, err := renderPage(path, page, zoom)
	if err != nil {
		return nil, err
	}
	return encodeJPEG(img)
}

func (fitzRasterizer) Region(path string, page int, zoom float64, x0, y0, x1, y1 float64) ([]byte, error) {
	img, err := renderPage(path, page, zoom)
	if err != nil {
		return nil, err
	}

	sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("rendered page does not support cropping")
	}

	// Flip the vertical axis: the raster origin is top-left.
	pageH := float64(img.Bounds().Dy())
	rect := image.Rect(
		int(x0*zoom),
		int(pageH-y1*zoom),
		int(x1*zoom),
		int(pageH-y0*zoom),
	)
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region (%f,%f)-(%f,%f) is outside page %d", x0, y0, x1, y1, page)
	}
	return encodeJPEG(sub.SubImage(rect))
}

func renderPage(path string, page int, zoom float64) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf for rendering: %w", err)
	}
	defer doc.Close()

	img, err := doc.ImageDPI(page-1, 72*zoom)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	return img, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
