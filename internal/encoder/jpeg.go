package encoder

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"

	"github.com/gen2brain/jpegli"
)

// JPEGEncoder encodes images to JPEG with jpegli, which exposes the chroma
// subsampling and Huffman table optimisation that image/jpeg does not.
type JPEGEncoder struct{}

func (e *JPEGEncoder) Format() string    { return "jpeg" }
func (e *JPEGEncoder) Extension() string { return "jpg" }
func (e *JPEGEncoder) MIME() string      { return "image/jpeg" }
func (e *JPEGEncoder) Available() bool   { return true }

func (e *JPEGEncoder) Encode(ctx context.Context, img image.Image, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(256 * 1024)

	err := jpegli.Encode(&buf, img, &jpegli.EncodingOptions{
		Quality:           opts.quality(),
		ChromaSubsampling: opts.Subsampling.ratio(),
		OptimizeCoding:    opts.Optimize,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StdJPEGEncoder encodes images to JPEG using Go's standard library.
// It always writes baseline 4:2:0 with the default Huffman tables, so only
// Quality has an effect.
type StdJPEGEncoder struct{}

func (e *StdJPEGEncoder) Format() string    { return "jpeg" }
func (e *StdJPEGEncoder) Extension() string { return "jpg" }
func (e *StdJPEGEncoder) MIME() string      { return "image/jpeg" }
func (e *StdJPEGEncoder) Available() bool   { return true }

func (e *StdJPEGEncoder) Encode(ctx context.Context, img image.Image, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(256 * 1024) // typical photo size

	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.quality()}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
