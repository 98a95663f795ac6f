//go:build ignore

// gen_fixtures creates test inputs for the E2E smoke test: a few images for
// "fileway fit" and a small PDF the HTTP endpoints can fetch.
// Usage: go run gen_fixtures.go <output_dir>
package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/imlakshy/fileway-backend/internal/pdfops"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: gen_fixtures <output_dir>")
		os.Exit(1)
	}
	dir := os.Args[1]
	os.MkdirAll(filepath.Join(dir, "cards"), 0o755)

	// Textured photo (JPEG, 1200x800), large enough to need downscaling
	// for small targets.
	writeFile(filepath.Join(dir, "photo.jpg"), encodeJPEG(textured(1200, 800, 1)))

	// Cards (PNG, 200x150 each)
	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("card-%d.png", i)
		writeFile(filepath.Join(dir, "cards", name), encodePNG(solidWithBorder(200, 150, uint8(i*60))))
	}

	// Small alpha image, flattened on white by the fitter.
	writeFile(filepath.Join(dir, "logo.png"), encodePNG(alphaGradient(100, 100)))

	// Three-page PDF for the PDF endpoints.
	var pages [][]byte
	for i := 0; i < 3; i++ {
		pages = append(pages, encodePNG(textured(300, 420, uint64(i+2))))
	}
	doc, err := pdfops.FromImages(pages)
	if err != nil {
		panic(err)
	}
	writeFile(filepath.Join(dir, "sample.pdf"), doc)

	fmt.Fprintf(os.Stderr, "[gen_fixtures] created 6 fixtures in %s\n", dir)
}

func textured(w, h int, seed uint64) *image.NRGBA {
	rng := rand.New(rand.NewPCG(seed, 7))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := rng.IntN(48)
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x*200/w + n),
				G: uint8(y*200/h + n),
				B: uint8(128 + n),
				A: 255,
			})
		}
	}
	return img
}

func solidWithBorder(w, h int, base uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: base, G: base + 40, B: base + 80, A: 255}
			if x < 4 || x >= w-4 || y < 4 || y >= h-4 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func alphaGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: 220, G: 60, B: 30,
				A: uint8(x * 255 / w),
			})
		}
	}
	return img
}

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func encodeJPEG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 92}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func writeFile(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		panic(err)
	}
}
