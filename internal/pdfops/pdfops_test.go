package pdfops

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func pagePNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 60, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 60; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// samplePDF builds an n-page PDF from solid-colour images.
func samplePDF(t *testing.T, n int) []byte {
	t.Helper()
	var pages [][]byte
	for i := 0; i < n; i++ {
		pages = append(pages, pagePNG(t, color.RGBA{uint8(40 * i), 100, 200, 255}))
	}
	doc, err := FromImages(pages)
	if err != nil {
		t.Fatalf("from images: %v", err)
	}
	return doc
}

func pageCount(t *testing.T, doc []byte) int {
	t.Helper()
	n, err := PageCount(doc)
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	return n
}

func TestFromImages(t *testing.T) {
	doc := samplePDF(t, 3)
	if !bytes.HasPrefix(doc, []byte("%PDF-")) {
		t.Fatalf("output is not a pdf: %q", doc[:8])
	}
	if got := pageCount(t, doc); got != 3 {
		t.Errorf("pages: got %d, want 3", got)
	}
	if _, err := FromImages(nil); !errors.Is(err, ErrNoInput) {
		t.Errorf("empty input: got %v, want ErrNoInput", err)
	}
}

func TestMerge(t *testing.T) {
	merged, err := Merge([][]byte{samplePDF(t, 2), samplePDF(t, 3)})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got := pageCount(t, merged); got != 5 {
		t.Errorf("pages: got %d, want 5", got)
	}
	if _, err := Merge(nil); !errors.Is(err, ErrNoInput) {
		t.Errorf("empty input: got %v, want ErrNoInput", err)
	}
}

func TestSplit(t *testing.T) {
	doc := samplePDF(t, 5)

	out, err := Split(doc, 2, 4)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if got := pageCount(t, out); got != 3 {
		t.Errorf("pages: got %d, want 3", got)
	}

	for _, r := range [][2]int{{0, 2}, {3, 2}, {1, 6}} {
		if _, err := Split(doc, r[0], r[1]); !errors.Is(err, ErrInvalidRange) {
			t.Errorf("range %v: got %v, want ErrInvalidRange", r, err)
		}
	}
}

func TestEncryptUnlock(t *testing.T) {
	doc := samplePDF(t, 2)

	enc, err := IsEncrypted(doc)
	if err != nil || enc {
		t.Fatalf("plain doc: encrypted=%v err=%v", enc, err)
	}
	if _, err := Unlock(doc, "pw"); !errors.Is(err, ErrNotEncrypted) {
		t.Errorf("unlock plain: got %v, want ErrNotEncrypted", err)
	}

	locked, err := Encrypt(doc, "s3cret")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if enc, err := IsEncrypted(locked); err != nil || !enc {
		t.Fatalf("locked doc: encrypted=%v err=%v", enc, err)
	}

	if _, err := Unlock(locked, "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("wrong password: got %v, want ErrWrongPassword", err)
	}

	plain, err := Unlock(locked, "s3cret")
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if enc, err := IsEncrypted(plain); err != nil || enc {
		t.Errorf("unlocked doc: encrypted=%v err=%v", enc, err)
	}
	if got := pageCount(t, plain); got != 2 {
		t.Errorf("pages: got %d, want 2", got)
	}
}

func TestPasswordRequired(t *testing.T) {
	doc := samplePDF(t, 1)
	if _, err := Encrypt(doc, ""); !errors.Is(err, ErrNoPassword) {
		t.Errorf("encrypt: got %v, want ErrNoPassword", err)
	}
	if _, err := Unlock(doc, ""); !errors.Is(err, ErrNoPassword) {
		t.Errorf("unlock: got %v, want ErrNoPassword", err)
	}
}

func TestPageCount_Garbage(t *testing.T) {
	if _, err := PageCount([]byte("not a pdf")); err == nil {
		t.Error("expected an error")
	}
}
