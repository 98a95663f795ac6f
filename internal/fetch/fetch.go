// Package fetch downloads the remote documents and images a request refers to.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/h2non/filetype"
)

var (
	// ErrDownload covers every failure to obtain a remote file.
	ErrDownload = errors.New("download failed")
	// ErrTooLarge means the body exceeded the configured limit.
	ErrTooLarge = errors.New("download exceeds size limit")
)

// StatusError reports a non-200 upstream response.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned %d", ErrDownload, e.URL, e.Status)
}

func (e *StatusError) Unwrap() error { return ErrDownload }

// Document is a downloaded body with its sniffed type.
type Document struct {
	URL  string
	Data []byte
	MIME string
	Ext  string // without the dot, empty when unknown
}

// Fetcher downloads over HTTP(S). The zero value uses http.DefaultClient and
// no size limit.
type Fetcher struct {
	Client    *http.Client
	MaxBytes  int64
	UserAgent string
}

// New returns a Fetcher with its own client and timeout.
func New(timeout time.Duration, maxBytes int64, userAgent string) *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: timeout},
		MaxBytes:  maxBytes,
		UserAgent: userAgent,
	}
}

// Get downloads one URL.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Document, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported url %q", ErrDownload, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: u.String(), Status: resp.StatusCode}
	}
	if f.MaxBytes > 0 && resp.ContentLength > f.MaxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, u, resp.ContentLength)
	}

	var body io.Reader = resp.Body
	if f.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrDownload, u, err)
	}
	if f.MaxBytes > 0 && int64(len(data)) > f.MaxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, u, f.MaxBytes)
	}

	doc := &Document{URL: u.String(), Data: data}
	doc.MIME, doc.Ext = sniff(data, resp.Header.Get("Content-Type"))
	return doc, nil
}

// GetAll downloads urls one after another and stops at the first failure.
func (f *Fetcher) GetAll(ctx context.Context, urls []string) ([]*Document, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no urls given", ErrDownload)
	}
	docs := make([]*Document, 0, len(urls))
	for _, u := range urls {
		d, err := f.Get(ctx, u)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// sniff prefers the magic bytes and falls back to the declared header.
func sniff(data []byte, header string) (mimeType, ext string) {
	if t, _ := filetype.Match(data); t != filetype.Unknown {
		return t.MIME.Value, t.Extension
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil || mt == "" {
		return "application/octet-stream", ""
	}
	if exts, _ := mime.ExtensionsByType(mt); len(exts) > 0 {
		ext = strings.TrimPrefix(exts[0], ".")
	}
	return mt, ext
}

// IsPDF reports whether the document looks like a PDF.
func (d *Document) IsPDF() bool {
	return d.MIME == "application/pdf" || d.Ext == "pdf"
}

// IsImage reports whether the document looks like an image.
func (d *Document) IsImage() bool {
	return strings.HasPrefix(d.MIME, "image/")
}
