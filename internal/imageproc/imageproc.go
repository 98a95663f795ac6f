// Package imageproc holds the decode/resize collaborators shared by the
// size search, the image endpoints and the batch pipeline.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned when input bytes are not a decodable image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Decode decodes data, applying EXIF orientation, and returns the image and
// its format name as registered with the image package.
func Decode(data []byte) (image.Image, string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s: %v", ErrUnsupportedFormat, format, err)
	}
	return img, format, nil
}

// Resize resizes img with a Lanczos filter. A zero width or height keeps
// the aspect ratio.
func Resize(img image.Image, w, h int) (image.Image, error) {
	if w < 0 || h < 0 || (w == 0 && h == 0) {
		return nil, fmt.Errorf("invalid dimensions %dx%d", w, h)
	}
	return imaging.Resize(img, w, h, imaging.Lanczos), nil
}

// ScaledSize returns the dimensions of img scaled by factor, at least 1x1.
func ScaledSize(img image.Image, factor float64) (int, int) {
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * factor))
	h := int(math.Round(float64(b.Dy()) * factor))
	return max(w, 1), max(h, 1)
}

// Flatten composites img onto a white background when it has transparency.
func Flatten(img image.Image) image.Image {
	if !HasAlpha(img) {
		return img
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// Invert returns the negative of img, used for the dark-mode rendering.
func Invert(img image.Image) image.Image {
	return imaging.Invert(img)
}

// HasAlpha reports whether any pixel of img is not fully opaque.
func HasAlpha(img image.Image) bool {
	switch src := img.(type) {
	case *image.NRGBA:
		return anyAlphaBelowMax(src.Pix, src.Stride, src.Rect)
	case *image.RGBA:
		return anyAlphaBelowMax(src.Pix, src.Stride, src.Rect)
	case *image.YCbCr, *image.Gray, *image.CMYK:
		return false
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a < 0xffff {
				return true
			}
		}
	}
	return false
}

func anyAlphaBelowMax(pix []byte, stride int, r image.Rectangle) bool {
	rowLen := r.Dx() * 4
	for y := 0; y < r.Dy(); y++ {
		row := pix[y*stride : y*stride+rowLen]
		for i := 3; i < len(row); i += 4 {
			if row[i] < 255 {
				return true
			}
		}
	}
	return false
}
