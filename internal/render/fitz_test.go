//go:build cgo

package render

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/imlakshy/fileway-backend/internal/pdfops"
)

func samplePDF(t *testing.T, n int) []byte {
	t.Helper()
	var imgs [][]byte
	for i := 0; i < n; i++ {
		var buf bytes.Buffer
		if err := png.Encode(&buf, page(120, 160)); err != nil {
			t.Fatal(err)
		}
		imgs = append(imgs, buf.Bytes())
	}
	doc, err := pdfops.FromImages(imgs)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestPages(t *testing.T) {
	pages, err := Pages(samplePDF(t, 2), 72)
	if err != nil {
		t.Fatalf("pages: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("pages: got %d, want 2", len(pages))
	}
	var zero image.Rectangle
	if pages[0].Bounds() == zero {
		t.Error("empty page image")
	}
}

func TestPageTexts_ImageOnlyPDF(t *testing.T) {
	texts, err := PageTexts(samplePDF(t, 3))
	if err != nil {
		t.Fatalf("texts: %v", err)
	}
	if len(texts) != 3 {
		t.Errorf("texts: got %d, want 3", len(texts))
	}
}

func TestDarkMode(t *testing.T) {
	out, err := DarkMode(context.Background(), samplePDF(t, 2), 72)
	if err != nil {
		t.Fatalf("dark mode: %v", err)
	}
	n, err := pdfops.PageCount(out)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pages: got %d, want 2", n)
	}
}

func TestPages_Garbage(t *testing.T) {
	if _, err := Pages([]byte("nope"), 72); err == nil {
		t.Error("expected an error")
	}
}
