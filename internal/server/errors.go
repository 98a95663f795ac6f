package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/imlakshy/fileway-backend/internal/encoder"
	"github.com/imlakshy/fileway-backend/internal/fetch"
	"github.com/imlakshy/fileway-backend/internal/imageproc"
	"github.com/imlakshy/fileway-backend/internal/office"
	"github.com/imlakshy/fileway-backend/internal/pdfops"
	"github.com/imlakshy/fileway-backend/internal/render"
	"github.com/imlakshy/fileway-backend/internal/sizefit"
)

// errOfficeUnavailable means soffice is not installed.
var errOfficeUnavailable = errors.New("office conversion not available (soffice not found)")

// requestError is a client mistake; its message is returned verbatim.
type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

type errorBody struct {
	Error    string `json:"error"`
	BestSize *int   `json:"best_size,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		reqErr   *requestError
		maxBytes *http.MaxBytesError
	)
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, fetch.ErrDownload),
		errors.Is(err, imageproc.ErrUnsupportedFormat),
		errors.Is(err, encoder.ErrUnknownFormat),
		errors.Is(err, sizefit.ErrInvalidTarget),
		errors.Is(err, pdfops.ErrInvalidRange),
		errors.Is(err, pdfops.ErrNotEncrypted),
		errors.Is(err, pdfops.ErrNoPassword),
		errors.Is(err, pdfops.ErrNoInput),
		errors.Is(err, office.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, pdfops.ErrWrongPassword):
		return http.StatusUnauthorized
	case errors.As(err, &maxBytes), errors.Is(err, fetch.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, sizefit.ErrInfeasibleTarget):
		return http.StatusUnprocessableEntity
	case errors.Is(err, render.ErrUnavailable), errors.Is(err, errOfficeUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, office.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as JSON and logs server errors.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var ie *sizefit.InfeasibleError
	if errors.As(err, &ie) {
		best := ie.BestSize()
		body.BestSize = &best
	}
	if status >= 500 {
		s.log.Error("request failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
		)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
