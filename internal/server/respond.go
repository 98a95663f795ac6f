package server

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/imlakshy/fileway-backend/internal/hasher"
)

type disposition string

const (
	attachment disposition = "attachment"
	inline     disposition = "inline"
)

// sendFile writes a complete body with its content headers.
func sendFile(w http.ResponseWriter, data []byte, contentType, filename string, disp disposition) {
	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	h.Set("Content-Disposition", mime.FormatMediaType(string(disp), map[string]string{"filename": filename}))
	h.Set("ETag", hasher.ETag(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func sendPDF(w http.ResponseWriter, data []byte, filename string, disp disposition) {
	sendFile(w, data, "application/pdf", filename, disp)
}

func sendZip(w http.ResponseWriter, data []byte, filename string) {
	sendFile(w, data, "application/zip", filename, attachment)
}
