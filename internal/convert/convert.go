// Package convert rasterizes uploaded documents into normalized JPEG pages.
package convert

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// ErrUnsupported is returned when a file can be opened neither as a raster
// image nor as a paged document.
var ErrUnsupported = errors.New("unsupported document format")

// Converter turns one document into zero or more JPEG files written to
// outDir. The returned paths are in page order and also sort lexically in
// page order.
type Converter interface {
	Convert(ctx context.Context, src, outDir string) ([]string, error)
}

// PagedDocument is a multi-page document that can be rendered page by page.
// *fitz.Document satisfies it.
type PagedDocument interface {
	NumPage() int
	ImageDPI(pageNumber int, dpi float64) (*image.RGBA, error)
	Close() error
}

// OpenFunc opens a paged document.
type OpenFunc func(path string) (PagedDocument, error)

var rasterExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".gif":  true,
	".tiff": true,
	".tif":  true,
	".webp": true,
}

var pagedExtensions = map[string]bool{
	".pdf":  true,
	".xps":  true,
	".oxps": true,
	".epub": true,
	".mobi": true,
	".fb2":  true,
	".cbz":  true,
	".svg":  true,
	".docx": true,
	".pptx": true,
	".xlsx": true,
}

// FileConverter converts raster images directly and renders every other
// document through MuPDF.
type FileConverter struct {
	dpi     int
	quality int
	open    OpenFunc
}

// Option configures a FileConverter.
type Option func(*FileConverter)

// WithOpener replaces the MuPDF document opener.
func WithOpener(open OpenFunc) Option {
	return func(c *FileConverter) { c.open = open }
}

// NewFileConverter returns a converter rendering paged documents at dpi and
// encoding JPEGs at quality.
func NewFileConverter(dpi, quality int, opts ...Option) *FileConverter {
	c := &FileConverter{
		dpi:     dpi,
		quality: quality,
		open:    openFitz,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func openFitz(path string) (PagedDocument, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

var _ PagedDocument = (*fitz.Document)(nil)

// Convert implements Converter. Unknown extensions are tried as a raster
// image first and then as a paged document.
func (c *FileConverter) Convert(ctx context.Context, src, outDir string) ([]string, error) {
	if _, err := os.Stat(src); err != nil {
		return nil, fmt.Errorf("convert %s: %w", filepath.Base(src), err)
	}

	ext := strings.ToLower(filepath.Ext(src))
	switch {
	case rasterExtensions[ext]:
		return c.convertImage(src, outDir)
	case pagedExtensions[ext]:
		return c.convertPaged(ctx, src, outDir)
	}

	pages, imgErr := c.convertImage(src, outDir)
	if imgErr == nil {
		return pages, nil
	}
	pages, docErr := c.convertPaged(ctx, src, outDir)
	if docErr == nil {
		return pages, nil
	}
	return nil, fmt.Errorf("%w: %s (as image: %v; as document: %v)", ErrUnsupported, filepath.Base(src), imgErr, docErr)
}

func (c *FileConverter) convertImage(src, outDir string) ([]string, error) {
	img, err := decodeImage(src)
	if err != nil {
		return nil, err
	}
	out := pagePath(outDir, 1)
	if err := writeJPEG(out, flatten(img), c.quality); err != nil {
		return nil, err
	}
	return []string{out}, nil
}

func (c *FileConverter) convertPaged(ctx context.Context, src, outDir string) ([]string, error) {
	doc, err := c.open(src)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", filepath.Base(src), err)
	}
	defer doc.Close()

	n := doc.NumPage()
	pages := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			removeAll(pages)
			return nil, err
		}

		img, err := doc.ImageDPI(i, float64(c.dpi))
		if err != nil {
			removeAll(pages)
			return nil, fmt.Errorf("render page %d of %s: %w", i+1, filepath.Base(src), err)
		}

		out := pagePath(outDir, i+1)
		if err := writeJPEG(out, img, c.quality); err != nil {
			removeAll(pages)
			return nil, err
		}
		pages = append(pages, out)
	}
	return pages, nil
}

// pagePath zero-pads the page number so lexical order equals page order.
func pagePath(dir string, page int) string {
	return filepath.Join(dir, fmt.Sprintf("page_%04d.jpeg", page))
}

func removeAll(paths []string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
