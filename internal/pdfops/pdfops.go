// Package pdfops performs structural PDF edits in memory with pdfcpu.
package pdfops

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	ErrNoInput       = errors.New("no pdf given")
	ErrInvalidRange  = errors.New("invalid page range")
	ErrNotEncrypted  = errors.New("pdf is not encrypted")
	ErrWrongPassword = errors.New("incorrect password")
	ErrNoPassword    = errors.New("password is required")
)

// AES key length used for Encrypt.
const keyLength = 256

func newConf() *model.Configuration {
	return model.NewDefaultConfiguration()
}

// Merge concatenates docs in order.
func Merge(docs [][]byte) ([]byte, error) {
	if len(docs) == 0 {
		return nil, ErrNoInput
	}
	rsc := make([]io.ReadSeeker, len(docs))
	for i, d := range docs {
		rsc[i] = bytes.NewReader(d)
	}
	var out bytes.Buffer
	if err := api.MergeRaw(rsc, &out, false, newConf()); err != nil {
		return nil, fmt.Errorf("merge %d pdfs: %w", len(docs), err)
	}
	return out.Bytes(), nil
}

// PageCount returns the number of pages in doc.
func PageCount(doc []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(doc), newConf())
	if err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return n, nil
}

// Split keeps pages start through end, 1-based and inclusive.
func Split(doc []byte, start, end int) ([]byte, error) {
	n, err := PageCount(doc)
	if err != nil {
		return nil, err
	}
	if start < 1 || end > n || start > end {
		return nil, fmt.Errorf("%w: %d-%d of %d pages", ErrInvalidRange, start, end, n)
	}

	var out bytes.Buffer
	pages := []string{fmt.Sprintf("%d-%d", start, end)}
	if err := api.Trim(bytes.NewReader(doc), &out, pages, newConf()); err != nil {
		return nil, fmt.Errorf("split %d-%d: %w", start, end, err)
	}
	return out.Bytes(), nil
}

// Encrypt protects doc with AES-256. The password is both the user and the
// owner password.
func Encrypt(doc []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrNoPassword
	}
	conf := model.NewAESConfiguration(password, password, keyLength)
	var out bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(doc), &out, conf); err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return out.Bytes(), nil
}

// IsEncrypted reports whether doc carries an encryption dictionary.
func IsEncrypted(doc []byte) (bool, error) {
	ctx, err := api.ReadContext(bytes.NewReader(doc), newConf())
	if err != nil {
		if errors.Is(err, pdfcpu.ErrWrongPassword) {
			// Opening needs a user password, so it is encrypted.
			return true, nil
		}
		return false, fmt.Errorf("read pdf: %w", err)
	}
	return ctx.Encrypt != nil, nil
}

// Unlock removes encryption from doc using password.
func Unlock(doc []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, ErrNoPassword
	}
	enc, err := IsEncrypted(doc)
	if err != nil {
		return nil, err
	}
	if !enc {
		return nil, ErrNotEncrypted
	}

	conf := newConf()
	conf.UserPW = password
	conf.OwnerPW = password
	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(doc), &out, conf); err != nil {
		if errors.Is(err, pdfcpu.ErrWrongPassword) {
			return nil, ErrWrongPassword
		}
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return out.Bytes(), nil
}

// FromImages builds a PDF with one page per JPEG or PNG image.
func FromImages(images [][]byte) ([]byte, error) {
	if len(images) == 0 {
		return nil, ErrNoInput
	}
	readers := make([]io.Reader, len(images))
	for i, img := range images {
		readers[i] = bytes.NewReader(img)
	}
	var out bytes.Buffer
	if err := api.ImportImages(nil, &out, readers, nil, newConf()); err != nil {
		return nil, fmt.Errorf("import %d images: %w", len(images), err)
	}
	return out.Bytes(), nil
}
