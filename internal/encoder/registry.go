package encoder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFormat is returned by Resolve for formats no encoder handles.
var ErrUnknownFormat = errors.New("unknown output format")

// Registry holds all available encoders and selects one per format.
type Registry struct {
	encoders map[string]Encoder
}

// NewRegistry creates a registry, probing all encoders for availability.
func NewRegistry() *Registry {
	return NewRegistryWith(
		&JPEGEncoder{},
		&PNGEncoder{},
		&WebPEncoder{},
		&AVIFEncoder{},
		GIFEncoder(),
		BMPEncoder(),
		TIFFEncoder(),
	)
}

// NewRegistryWith registers the given encoders. Only available ones will be
// used; the first encoder for a format wins.
func NewRegistryWith(all ...Encoder) *Registry {
	r := &Registry{
		encoders: make(map[string]Encoder),
	}
	for _, enc := range all {
		if _, dup := r.encoders[enc.Format()]; dup {
			continue
		}
		if enc.Available() {
			r.encoders[enc.Format()] = enc
		}
	}
	return r
}

// Normalize maps format aliases to their canonical names.
func Normalize(format string) string {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	switch f {
	case "jpg", "jfif":
		return "jpeg"
	case "tif":
		return "tiff"
	}
	return f
}

// Get returns an encoder for the given format, or nil if unavailable.
func (r *Registry) Get(format string) Encoder {
	return r.encoders[Normalize(format)]
}

// Resolve is Get with an error for unknown or unavailable formats.
func (r *Registry) Resolve(format string) (Encoder, error) {
	if enc := r.Get(format); enc != nil {
		return enc, nil
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownFormat, format, strings.Join(r.Available(), ", "))
}

// Available returns all available format names.
func (r *Registry) Available() []string {
	var result []string
	// Maintain priority order.
	for _, f := range []string{"jpeg", "png", "webp", "avif", "gif", "bmp", "tiff"} {
		if _, ok := r.encoders[f]; ok {
			result = append(result, f)
		}
	}
	return result
}

// String returns a summary of available encoders.
func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	return fmt.Sprintf("encoders: %s", strings.Join(avail, ", "))
}
