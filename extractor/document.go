package extractor

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// Document is the page source the extractor reads from. The production
// implementation wraps go-fitz; tests substitute in-memory fakes.
type Document interface {
	NumPages() int
	// PageText returns the text layer of a zero-based page.
	PageText(page int) (string, error)
	// PageImage rasterizes a zero-based page at the given DPI.
	PageImage(page int, dpi float64) (image.Image, error)
	Close() error
}

// Opener turns raw document bytes into a Document.
type Opener func(data []byte) (Document, error)

// OpenFitz is the default Opener, backed by MuPDF via go-fitz.
func OpenFitz(data []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

type fitzDocument struct {
	doc *fitz.Document
}

func (f *fitzDocument) NumPages() int { return f.doc.NumPage() }

func (f *fitzDocument) PageText(page int) (string, error) {
	return f.doc.Text(page)
}

func (f *fitzDocument) PageImage(page int, dpi float64) (image.Image, error) {
	return f.doc.ImageDPI(page, dpi)
}

func (f *fitzDocument) Close() error { return f.doc.Close() }
