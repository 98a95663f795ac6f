package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/imlakshy/fileway-backend/internal/encoder"
	"github.com/imlakshy/fileway-backend/internal/manifest"
	"github.com/imlakshy/fileway-backend/internal/profile"
	"github.com/imlakshy/fileway-backend/internal/sizefit"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 255 / w), uint8(y * 255 / h), uint8((x ^ y) & 0xff), 255})
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func testConfig(t *testing.T, in string) Config {
	t.Helper()
	tg, err := sizefit.KB(6, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	return Config{
		InputDir:  in,
		OutputDir: filepath.Join(t.TempDir(), "out"),
		Target:    tg,
		Profile:   profile.Get("fast"),
		Workers:   2,
		Encoder:   &encoder.StdJPEGEncoder{},
	}
}

func TestScanImages(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 4, 4)
	writePNG(t, filepath.Join(dir, "nested", "a.png"), 4, 4)
	writePNG(t, filepath.Join(dir, ".hidden", "x.png"), 4, 4)
	writePNG(t, filepath.Join(dir, "out", "old.png"), 4, 4)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "photo.JPG"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ScanImages(dir, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatal(err)
	}
	want := []struct{ key, format string }{
		{"b", "png"},
		{"nested/a", "png"},
		{"photo", "jpeg"},
	}
	if len(got) != len(want) {
		t.Fatalf("sources: got %+v", got)
	}
	for i, w := range want {
		if got[i].Key != w.key || got[i].Format != w.format {
			t.Errorf("source %d: got %s/%s, want %s/%s", i, got[i].Key, got[i].Format, w.key, w.format)
		}
	}
}

func TestRun(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "one.png"), 200, 150)
	writePNG(t, filepath.Join(in, "sub", "two.png"), 160, 160)
	if err := os.WriteFile(filepath.Join(in, "broken.jpg"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t, in)
	var lines atomic.Int32
	cfg.Logf = func(string, ...any) { lines.Add(1) }

	m, err := New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if lines.Load() == 0 {
		t.Error("no progress lines logged")
	}
	if m.Operation != "fit" || m.Target == nil || m.Target.Bytes != 6*1024 {
		t.Errorf("header: got %s %+v", m.Operation, m.Target)
	}
	if m.Stats.TotalEntries != 3 || m.Stats.Failed != 1 {
		t.Errorf("stats: got %+v", m.Stats)
	}

	if !m.Entries["broken"].Failed() {
		t.Error("broken.jpg should be recorded as failed")
	}
	for _, key := range []string{"one", "sub/two"} {
		e, ok := m.Entries[key]
		if !ok {
			t.Fatalf("entry %s missing", key)
		}
		if e.Failed() {
			t.Errorf("%s: unexpected error %s", key, e.Error)
			continue
		}
		if e.Outcome != manifest.OutcomeWithin && e.Outcome != manifest.OutcomeBestEffort {
			t.Errorf("%s: outcome %q", key, e.Outcome)
		}
		info, err := os.Stat(filepath.Join(cfg.OutputDir, filepath.FromSlash(e.Path)))
		if err != nil {
			t.Errorf("%s: output missing: %v", key, err)
			continue
		}
		if info.Size() != e.Size {
			t.Errorf("%s: size on disk %d, manifest %d", key, info.Size(), e.Size)
		}
		if len(e.Hash) != 16 {
			t.Errorf("%s: hash %q", key, e.Hash)
		}
	}
}

func TestRun_AllFail(t *testing.T) {
	in := t.TempDir()
	if err := os.WriteFile(filepath.Join(in, "a.png"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New(testConfig(t, in)).Run(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}

func TestRun_NoImages(t *testing.T) {
	if _, err := New(testConfig(t, t.TempDir())).Run(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}

func TestRun_Canceled(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "one.png"), 50, 50)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(testConfig(t, in)).Run(ctx); err == nil {
		t.Fatal("expected an error")
	}
}

func TestRun_RecordsDefaultTolerance(t *testing.T) {
	in := t.TempDir()
	writePNG(t, filepath.Join(in, "one.png"), 200, 150)
	cfg := testConfig(t, in)
	cfg.Target = sizefit.Target{Bytes: 6 * 1024}

	m, err := New(cfg).Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if m.Target == nil || m.Target.Tolerance != sizefit.DefaultTolerance {
		t.Errorf("target: got %+v, want tolerance %g", m.Target, sizefit.DefaultTolerance)
	}
}
