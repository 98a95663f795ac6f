package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/imlakshy/fileway-backend/internal/hasher"
	"github.com/imlakshy/fileway-backend/internal/manifest"
)

func writeOutput(t *testing.T, dir, rel string, data []byte) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func validManifest(t *testing.T, dir string) *manifest.Manifest {
	t.Helper()
	data := []byte("jpeg bytes")
	writeOutput(t, dir, "a/cat.1234abcd.jpg", data)

	m := manifest.New("fit")
	m.Entries["a/cat"] = manifest.Entry{
		Source:  "a/cat.png",
		Format:  "jpeg",
		Width:   10,
		Height:  10,
		Size:    int64(len(data)),
		Outcome: manifest.OutcomeWithin,
		Quality: 80,
		Hash:    hasher.ContentHash(data, 16),
		Path:    "a/cat.1234abcd.jpg",
	}
	m.Entries["broken"] = manifest.Entry{Source: "broken.png", Error: "decode failed"}
	m.ComputeStats()
	return m
}

func TestValidateManifest_OK(t *testing.T) {
	dir := t.TempDir()
	m := validManifest(t, dir)
	if errs := validateManifest(m, dir); len(errs) != 0 {
		t.Errorf("unexpected errors: %v", errs)
	}
}

func TestValidateManifest_Problems(t *testing.T) {
	dir := t.TempDir()
	m := validManifest(t, dir)

	e := m.Entries["a/cat"]
	e.Hash = "ffffffffffffffff"
	m.Entries["a/cat"] = e
	m.Entries["missing"] = manifest.Entry{
		Format: "jpeg", Width: 5, Height: 5, Size: 3,
		Outcome: "sideways", Path: "missing.jpg",
	}

	errs := strings.Join(validateManifest(m, dir), "\n")
	for _, want := range []string{"content hash mismatch", "file not found", "unknown outcome", "stats mismatch"} {
		if !strings.Contains(errs, want) {
			t.Errorf("errors %q: missing %q", errs, want)
		}
	}
}
