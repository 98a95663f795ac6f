//go:build cgo

package render

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// Pages rasterises every page of doc at dpi.
func Pages(doc []byte, dpi int) ([]image.Image, error) {
	d, err := fitz.NewFromMemory(doc)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer d.Close()

	n := d.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	pages := make([]image.Image, n)
	for i := 0; i < n; i++ {
		img, err := d.ImageDPI(i, float64(dpi))
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		pages[i] = img
	}
	return pages, nil
}

// PageTexts returns the plain text of each page.
func PageTexts(doc []byte) ([]string, error) {
	d, err := fitz.NewFromMemory(doc)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer d.Close()

	texts := make([]string, d.NumPage())
	for i := range texts {
		t, err := d.Text(i)
		if err != nil {
			return nil, fmt.Errorf("text of page %d: %w", i+1, err)
		}
		texts[i] = t
	}
	return texts, nil
}

// Available reports whether this build can rasterise PDFs.
func Available() bool { return true }
