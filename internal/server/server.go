// Package server exposes the conversions over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/imlakshy/fileway-backend/internal/config"
	"github.com/imlakshy/fileway-backend/internal/encoder"
	"github.com/imlakshy/fileway-backend/internal/fetch"
	"github.com/imlakshy/fileway-backend/internal/office"
	"github.com/imlakshy/fileway-backend/internal/profile"
	"github.com/imlakshy/fileway-backend/internal/workpool"
)

// Deps are the collaborators of a Server. Zero fields get defaults built
// from Config.
type Deps struct {
	Config   config.Config
	Logger   *zap.Logger
	Fetcher  *fetch.Fetcher
	Pool     *workpool.Pool
	Registry *encoder.Registry
	Office   *office.Converter
	// FitEncoder produces resize-image-kb output. Defaults to the registry's
	// jpeg encoder.
	FitEncoder encoder.Encoder
	// Profiles are the search tunings a request may name. Defaults to
	// Profiles(Config.Fit).
	Profiles profile.Set
}

// Server holds the handlers' shared state. It keeps no per-request data.
type Server struct {
	cfg      config.Config
	log      *zap.Logger
	fetcher  *fetch.Fetcher
	pool     *workpool.Pool
	registry *encoder.Registry
	office   *office.Converter
	fitEnc   encoder.Encoder
	profiles profile.Set
}

func New(d Deps) *Server {
	s := &Server{
		cfg:      d.Config,
		log:      d.Logger,
		fetcher:  d.Fetcher,
		pool:     d.Pool,
		registry: d.Registry,
		office:   d.Office,
		fitEnc:   d.FitEncoder,
		profiles: d.Profiles,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.fetcher == nil {
		f := d.Config.Fetch
		s.fetcher = fetch.New(f.Timeout.Duration, f.MaxBytes, f.UserAgent)
	}
	if s.pool == nil {
		s.pool = workpool.New(d.Config.Workers)
	}
	if s.registry == nil {
		s.registry = encoder.NewRegistry()
	}
	if s.office == nil {
		s.office = office.NewConverter(d.Config.Office.Soffice, d.Config.Office.Timeout.Duration)
	}
	if s.fitEnc == nil {
		s.fitEnc = s.registry.Get("jpeg")
	}
	if s.profiles == nil {
		s.profiles = Profiles(d.Config.Fit)
	}
	return s
}

// Profiles returns the built-in profiles with the default one tuned by f.
func Profiles(f config.Fit) profile.Set {
	return profile.Builtin().With(profile.Profile{
		Name:           profile.DefaultName,
		MaxQuality:     f.MaxQuality,
		MinQuality:     f.MinQuality,
		QualityStep:    f.QualityStep,
		DownscaleRatio: f.DownscaleRatio,
		MinDimension:   f.MinDimension,
		UpscaleRatio:   f.UpscaleRatio,
		MaxScale:       f.MaxScale,
	})
}

// Handler builds the router with its middleware stack.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(accessLog(s.log))
	r.Use(recoverer(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{
			"Content-Disposition", "ETag", requestIDHeader,
			headerFitOutcome, headerFitSize, headerFitQuality,
		},
		MaxAge: 300,
	}))
	if n := s.cfg.Server.RateLimit; n > 0 {
		r.Use(httprate.LimitByIP(n, time.Minute))
	}
	if d := s.cfg.Server.RequestTimeout.Duration; d > 0 {
		r.Use(middleware.Timeout(d))
	}

	r.Get("/health", s.health)

	r.Group(func(r chi.Router) {
		r.Use(limitBody(s.cfg.Server.MaxBodyBytes))

		r.Post("/merge-pdfs", s.mergePDFs)
		r.Post("/split-pdf", s.splitPDF)
		r.Post("/encrypt-pdf", s.encryptPDF)
		r.Post("/unlock-pdf", s.unlockPDF)
		r.Post("/dark-mode-pdf", s.darkModePDF)
		r.Post("/compress-pdf", s.compressPDF)
		r.Post("/pdf-to-image", s.pdfToImage)
		r.Post("/pdf-to-text", s.pdfToText)
		r.Post("/pdf-to-excel", s.pdfToExcel)
		r.Post("/pdf-to-word", s.pdfToWord)
		r.Post("/pdf-to-ppt", s.pdfToPPT)

		r.Post("/convert-image", s.convertImage)
		r.Post("/resize-image", s.resizeImage)
		r.Post("/resize-image-kb", s.resizeImageKB)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})
	return r
}
