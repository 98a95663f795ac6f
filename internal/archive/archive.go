// Package archive bundles multiple outputs into a single zip response.
package archive

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// Formats that are already compressed are stored as-is.
var stored = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".avif": true, ".pdf": true, ".zip": true, ".docx": true, ".pptx": true, ".xlsx": true,
}

type entry struct {
	name string
	data []byte
}

// Bundle collects named files. Names are de-duplicated on Add.
type Bundle struct {
	entries []entry
	names   map[string]bool
	modTime time.Time
}

// New returns an empty bundle whose entries carry modTime.
func New(modTime time.Time) *Bundle {
	return &Bundle{names: make(map[string]bool), modTime: modTime}
}

// Add stores data under name and returns the name actually used.
func (b *Bundle) Add(name string, data []byte) string {
	if b.names == nil {
		b.names = make(map[string]bool)
	}
	name = clean(name)
	unique := name
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; b.names[unique]; i++ {
		unique = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
	b.names[unique] = true
	b.entries = append(b.entries, entry{name: unique, data: data})
	return unique
}

// Len is the number of entries.
func (b *Bundle) Len() int { return len(b.entries) }

// Bytes writes the zip archive.
func (b *Bundle) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range b.entries {
		method := zip.Deflate
		if stored[strings.ToLower(path.Ext(e.name))] {
			method = zip.Store
		}
		hdr := &zip.FileHeader{Name: e.name, Method: method}
		if !b.modTime.IsZero() {
			hdr.Modified = b.modTime
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return nil, fmt.Errorf("zip %s: %w", e.name, err)
		}
		if _, err := w.Write(e.data); err != nil {
			return nil, fmt.Errorf("zip %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// clean keeps only the base name so entries cannot escape the archive root.
func clean(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}
