package fetch

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func newServer(t *testing.T, pngData []byte) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/img", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(pngData)
	})
	mux.HandleFunc("/doc.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4\n%fake\n"))
	})
	mux.HandleFunc("/text", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("hello"))
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("x"), 4096))
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.UserAgent()))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGet_SniffsContent(t *testing.T) {
	data := pngBytes(t)
	srv := newServer(t, data)
	f := &Fetcher{}

	doc, err := f.Get(context.Background(), srv.URL+"/img")
	require.NoError(t, err)
	require.Equal(t, "image/png", doc.MIME)
	require.Equal(t, "png", doc.Ext)
	require.Equal(t, data, doc.Data)
	require.True(t, doc.IsImage())

	doc, err = f.Get(context.Background(), srv.URL+"/doc.pdf")
	require.NoError(t, err)
	require.True(t, doc.IsPDF())

	doc, err = f.Get(context.Background(), srv.URL+"/text")
	require.NoError(t, err)
	require.Equal(t, "text/plain", doc.MIME)
	require.False(t, doc.IsImage())
}

func TestGet_StatusError(t *testing.T) {
	srv := newServer(t, nil)
	_, err := (&Fetcher{}).Get(context.Background(), srv.URL+"/missing")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusNotFound, se.Status)
	require.ErrorIs(t, err, ErrDownload)
}

func TestGet_TooLarge(t *testing.T) {
	srv := newServer(t, nil)
	f := &Fetcher{MaxBytes: 1024}
	_, err := f.Get(context.Background(), srv.URL+"/big")
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestGet_RejectsNonHTTP(t *testing.T) {
	for _, u := range []string{"file:///etc/passwd", "ftp://example.com/a.pdf", "not a url"} {
		_, err := (&Fetcher{}).Get(context.Background(), u)
		require.ErrorIs(t, err, ErrDownload, u)
	}
}

func TestGet_SendsUserAgent(t *testing.T) {
	srv := newServer(t, nil)
	doc, err := New(0, 0, "fileway-test").Get(context.Background(), srv.URL+"/ua")
	require.NoError(t, err)
	require.Equal(t, "fileway-test", string(doc.Data))
}

func TestGetAll_StopsAtFirstFailure(t *testing.T) {
	srv := newServer(t, pngBytes(t))
	f := &Fetcher{}

	docs, err := f.GetAll(context.Background(), []string{srv.URL + "/img", srv.URL + "/doc.pdf"})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	_, err = f.GetAll(context.Background(), []string{srv.URL + "/img", srv.URL + "/nope", srv.URL + "/doc.pdf"})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "/nope"))

	_, err = f.GetAll(context.Background(), nil)
	require.ErrorIs(t, err, ErrDownload)
}

func TestGet_CanceledContext(t *testing.T) {
	srv := newServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Fetcher{}).Get(ctx, srv.URL+"/img")
	require.ErrorIs(t, err, ErrDownload)
}
