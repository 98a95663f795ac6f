// Package render rasterises PDF pages with MuPDF (go-fitz) and rebuilds
// image-only PDFs from them. Builds without cgo keep the API but every call
// fails with ErrUnavailable.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"

	"github.com/dustin/go-humanize"

	"github.com/imlakshy/fileway-backend/internal/encoder"
	"github.com/imlakshy/fileway-backend/internal/imageproc"
	"github.com/imlakshy/fileway-backend/internal/pdfops"
)

// ErrUnavailable is returned when the binary was built without cgo.
var ErrUnavailable = errors.New("pdf rendering not supported (built without cgo/fitz)")

const (
	DarkModeDPI = 150
	CompressDPI = 100

	compressMaxQuality = 80
	compressMinQuality = 10
	compressStep       = 5
)

// CompressError reports the smallest output reached when no quality met the
// target.
type CompressError struct {
	TargetKB    float64
	MinKB       float64
	BestQuality int
}

func (e *CompressError) Error() string {
	return fmt.Sprintf("cannot compress to %.0f KB: smallest is %s at quality %d",
		e.TargetKB, humanize.IBytes(uint64(e.MinKB*1024)), e.BestQuality)
}

// Compressed is a rebuilt PDF and the JPEG quality used for its pages.
type Compressed struct {
	Data    []byte
	Quality int
}

// SizeKB is the output size in kilobytes.
func (c *Compressed) SizeKB() float64 { return float64(len(c.Data)) / 1024 }

// DarkMode renders doc at dpi, inverts every page and rebuilds a PDF of PNG pages.
func DarkMode(ctx context.Context, doc []byte, dpi int) ([]byte, error) {
	if dpi <= 0 {
		dpi = DarkModeDPI
	}
	pages, err := Pages(doc, dpi)
	if err != nil {
		return nil, err
	}
	return invertPages(ctx, pages)
}

func invertPages(ctx context.Context, pages []image.Image) ([]byte, error) {
	encoded := make([][]byte, len(pages))
	for i, p := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, imageproc.Invert(p)); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		encoded[i] = buf.Bytes()
	}
	return pdfops.FromImages(encoded)
}

// Compress renders doc at CompressDPI and rebuilds it with JPEG pages,
// lowering quality from 80 to 10 in steps of 5. The first result at or below
// targetKB is returned; otherwise a *CompressError.
func Compress(ctx context.Context, doc []byte, targetKB float64) (*Compressed, error) {
	pages, err := Pages(doc, CompressDPI)
	if err != nil {
		return nil, err
	}
	return compressPages(ctx, pages, targetKB, &encoder.JPEGEncoder{})
}

func compressPages(ctx context.Context, pages []image.Image, targetKB float64, enc encoder.Encoder) (*Compressed, error) {
	if targetKB <= 0 {
		return nil, fmt.Errorf("target must be positive, got %g KB", targetKB)
	}

	var best *Compressed
	for q := compressMaxQuality; q >= compressMinQuality; q -= compressStep {
		encoded := make([][]byte, len(pages))
		for i, p := range pages {
			data, err := enc.Encode(ctx, imageproc.Flatten(p), encoder.Options{
				Quality:     q,
				Optimize:    true,
				Subsampling: encoder.SubsamplingQuarter,
			})
			if err != nil {
				return nil, fmt.Errorf("encode page %d at q%d: %w", i+1, q, err)
			}
			encoded[i] = data
		}
		out, err := pdfops.FromImages(encoded)
		if err != nil {
			return nil, err
		}

		c := &Compressed{Data: out, Quality: q}
		if best == nil || c.SizeKB() < best.SizeKB() {
			best = c
		}
		if c.SizeKB() <= targetKB {
			return c, nil
		}
	}
	return nil, &CompressError{TargetKB: targetKB, MinKB: best.SizeKB(), BestQuality: best.Quality}
}

// Text extracts every page's text, joined with form feeds.
func Text(doc []byte) (string, error) {
	pages, err := PageTexts(doc)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for i, p := range pages {
		if i > 0 {
			buf.WriteByte('\f')
		}
		buf.WriteString(p)
	}
	return buf.String(), nil
}
