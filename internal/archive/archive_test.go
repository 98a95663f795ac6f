package archive

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
)

func TestBundle_DedupesNames(t *testing.T) {
	b := New(time.Time{})
	got := []string{
		b.Add("page.png", []byte("a")),
		b.Add("page.png", []byte("b")),
		b.Add("page.png", []byte("c")),
		b.Add("../../etc/passwd", []byte("d")),
		b.Add("", []byte("e")),
	}
	want := []string{"page.png", "page-2.png", "page-3.png", "passwd", "file"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if b.Len() != 5 {
		t.Errorf("len: got %d, want 5", b.Len())
	}
}

func TestBundle_Bytes(t *testing.T) {
	b := New(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	b.Add("a.jpg", bytes.Repeat([]byte{0xff}, 100))
	b.Add("report.json", []byte(`{"ok":true}`))

	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("bytes: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("files: got %d, want 2", len(zr.File))
	}
	if zr.File[0].Method != zip.Store {
		t.Errorf("jpg method: got %d, want store", zr.File[0].Method)
	}
	if zr.File[1].Method != zip.Deflate {
		t.Errorf("json method: got %d, want deflate", zr.File[1].Method)
	}

	rc, err := zr.File[1].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	body, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("content: got %q", body)
	}
}

func TestBundle_ZeroValue(t *testing.T) {
	var b Bundle
	b.Add("x.txt", []byte("x"))
	if _, err := b.Bytes(); err != nil {
		t.Fatalf("bytes: %v", err)
	}
}
