package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/imlakshy/fileway-backend/internal/encoder"
	"github.com/imlakshy/fileway-backend/internal/pdfops"
)

func page(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 127 + 120*math.Sin(float64(x*y)/50)
			img.Set(x, y, color.RGBA{uint8(v), uint8(x % 256), uint8(y % 256), 255})
		}
	}
	return img
}

func TestCompressPages_FirstQualityUnderTarget(t *testing.T) {
	pages := []image.Image{page(200, 260), page(200, 260)}
	c, err := compressPages(context.Background(), pages, 1<<20, &encoder.StdJPEGEncoder{})
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if c.Quality != compressMaxQuality {
		t.Errorf("quality: got %d, want %d", c.Quality, compressMaxQuality)
	}
	n, err := pdfops.PageCount(c.Data)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("pages: got %d, want 2", n)
	}
}

func TestCompressPages_LowersQuality(t *testing.T) {
	pages := []image.Image{page(300, 300)}
	enc := &encoder.StdJPEGEncoder{}

	hi, err := compressPages(context.Background(), pages, 1<<20, enc)
	if err != nil {
		t.Fatal(err)
	}
	// A target just under the q80 size forces at least one more step.
	c, err := compressPages(context.Background(), pages, hi.SizeKB()-0.5, enc)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if c.Quality >= compressMaxQuality {
		t.Errorf("quality: got %d, want below %d", c.Quality, compressMaxQuality)
	}
	if c.SizeKB() > hi.SizeKB()-0.5 {
		t.Errorf("size %.1f KB over target", c.SizeKB())
	}
}

func TestCompressPages_CannotReachTarget(t *testing.T) {
	pages := []image.Image{page(300, 300)}
	_, err := compressPages(context.Background(), pages, 0.1, &encoder.StdJPEGEncoder{})

	var ce *CompressError
	if !errors.As(err, &ce) {
		t.Fatalf("error: got %v, want *CompressError", err)
	}
	if ce.MinKB <= 0.1 {
		t.Errorf("min KB: got %.2f", ce.MinKB)
	}
	if ce.BestQuality < compressMinQuality || ce.BestQuality > compressMaxQuality {
		t.Errorf("best quality: got %d", ce.BestQuality)
	}
}

func TestCompressPages_BadTarget(t *testing.T) {
	if _, err := compressPages(context.Background(), nil, 0, &encoder.StdJPEGEncoder{}); err == nil {
		t.Error("expected an error")
	}
}

func TestInvertPages(t *testing.T) {
	doc, err := invertPages(context.Background(), []image.Image{page(80, 100), page(80, 100), page(80, 100)})
	if err != nil {
		t.Fatalf("invert: %v", err)
	}
	n, err := pdfops.PageCount(doc)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("pages: got %d, want 3", n)
	}
}

func TestInvertPages_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := invertPages(ctx, []image.Image{page(10, 10)}); !errors.Is(err, context.Canceled) {
		t.Errorf("error: got %v, want context.Canceled", err)
	}
}
