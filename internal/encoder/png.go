package encoder

import (
	"bytes"
	"context"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// PNGEncoder encodes images to PNG using Go's standard library.
// Used for conversions that must keep alpha transparency.
type PNGEncoder struct{}

func (e *PNGEncoder) Format() string    { return "png" }
func (e *PNGEncoder) Extension() string { return "png" }
func (e *PNGEncoder) MIME() string      { return "image/png" }
func (e *PNGEncoder) Available() bool   { return true }

func (e *PNGEncoder) Encode(ctx context.Context, img image.Image, _ Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(512 * 1024) // pre-alloc 512KB

	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// imagingEncoder covers the lossless formats imaging can write (gif, bmp, tiff).
type imagingEncoder struct {
	format imaging.Format
	name   string
	ext    string
	mime   string
}

// GIFEncoder, BMPEncoder and TIFFEncoder write through imaging.Encode.
func GIFEncoder() Encoder  { return &imagingEncoder{imaging.GIF, "gif", "gif", "image/gif"} }
func BMPEncoder() Encoder  { return &imagingEncoder{imaging.BMP, "bmp", "bmp", "image/bmp"} }
func TIFFEncoder() Encoder { return &imagingEncoder{imaging.TIFF, "tiff", "tiff", "image/tiff"} }

func (e *imagingEncoder) Format() string    { return e.name }
func (e *imagingEncoder) Extension() string { return e.ext }
func (e *imagingEncoder) MIME() string      { return e.mime }
func (e *imagingEncoder) Available() bool   { return true }

func (e *imagingEncoder) Encode(ctx context.Context, img image.Image, _ Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, e.format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
