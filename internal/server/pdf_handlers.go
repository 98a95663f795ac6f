package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/imlakshy/fileway-backend/internal/archive"
	"github.com/imlakshy/fileway-backend/internal/encoder"
	"github.com/imlakshy/fileway-backend/internal/office"
	"github.com/imlakshy/fileway-backend/internal/pdfops"
	"github.com/imlakshy/fileway-backend/internal/render"
	"github.com/imlakshy/fileway-backend/internal/workpool"
)

const defaultCompressKB = 500

// fetchPDF downloads the first of urls and checks it is a PDF.
func (s *Server) fetchPDF(ctx context.Context, urls urlList) ([]byte, error) {
	list := urls.clean()
	if len(list) == 0 {
		return nil, badRequest("Missing PDF URL")
	}
	doc, err := s.fetcher.Get(ctx, list[0])
	if err != nil {
		return nil, err
	}
	if !doc.IsPDF() {
		return nil, badRequest("%s is not a PDF (%s)", list[0], doc.MIME)
	}
	return doc.Data, nil
}

// compute runs fn on the CPU pool. The result is read only after fn has
// returned, so an abandoned fn cannot race with the caller.
func compute[T any](ctx context.Context, pool *workpool.Pool, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := pool.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		out = v
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (s *Server) mergePDFs(w http.ResponseWriter, r *http.Request) {
	req, err := decode(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	urls := req.PDFURLs.clean()
	if len(urls) == 0 {
		s.fail(w, r, badRequest("No PDF URLs provided."))
		return
	}
	docs, err := s.fetcher.GetAll(r.Context(), urls)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data := make([][]byte, len(docs))
	for i, d := range docs {
		if !d.IsPDF() {
			s.fail(w, r, badRequest("%s is not a PDF (%s)", d.URL, d.MIME))
			return
		}
		data[i] = d.Data
	}

	out, err := compute(r.Context(), s.pool, func(context.Context) ([]byte, error) {
		return pdfops.Merge(data)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendPDF(w, out, "merged.pdf", attachment)
}

func (s *Server) splitPDF(w http.ResponseWriter, r *http.Request) {
	req, err := decode(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Start == nil || req.End == nil {
		s.fail(w, r, badRequest("Missing page range."))
		return
	}
	doc, err := s.fetchPDF(r.Context(), req.PDFURLs)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out, err := compute(r.Context(), s.pool, func(context.Context) ([]byte, error) {
		return pdfops.Split(doc, int(*req.Start), int(*req.End))
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendPDF(w, out, "split_pages.pdf", attachment)
}

func (s *Server) encryptPDF(w http.ResponseWriter, r *http.Request) {
	s.passwordOp(w, r, pdfops.Encrypt, "protected.pdf")
}

func (s *Server) unlockPDF(w http.ResponseWriter, r *http.Request) {
	s.passwordOp(w, r, pdfops.Unlock, "unlocked.pdf")
}

func (s *Server) passwordOp(w http.ResponseWriter, r *http.Request, op func([]byte, string) ([]byte, error), filename string) {
	req, err := decode(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.PDFURLs.clean()) == 0 || req.Password == "" {
		s.fail(w, r, badRequest("Missing PDF URL or password."))
		return
	}
	doc, err := s.fetchPDF(r.Context(), req.PDFURLs)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out, err := compute(r.Context(), s.pool, func(context.Context) ([]byte, error) {
		return op(doc, req.Password)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendPDF(w, out, filename, attachment)
}

func (s *Server) darkModePDF(w http.ResponseWriter, r *http.Request) {
	req, err := decode(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	doc, err := s.fetchPDF(r.Context(), req.PDFURLs)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out, err := compute(r.Context(), s.pool, func(ctx context.Context) ([]byte, error) {
		return render.DarkMode(ctx, doc, intOr(req.DPI, render.DarkModeDPI))
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendPDF(w, out, "dark_mode.pdf", inline)
}

type compressReport struct {
	Message       string  `json:"message"`
	MinPossibleKB float64 `json:"min_possible_kb"`
	MinPossible   string  `json:"min_possible"`
	BestQuality   int     `json:"best_quality"`
}

func (s *Server) compressPDF(w http.ResponseWriter, r *http.Request) {
	req, err := decode(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	target := floatOr(req.TargetKB, defaultCompressKB)
	if target <= 0 {
		s.fail(w, r, badRequest("target_kb must be positive"))
		return
	}
	doc, err := s.fetchPDF(r.Context(), req.PDFURLs)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := compute(r.Context(), s.pool, func(ctx context.Context) (*render.Compressed, error) {
		return render.Compress(ctx, doc, target)
	})
	var ce *render.CompressError
	switch {
	case errors.As(err, &ce):
		writeJSON(w, http.StatusOK, compressReport{
			Message:       "Cannot compress to desired size.",
			MinPossibleKB: math.Round(ce.MinKB*100) / 100,
			MinPossible:   humanize.IBytes(uint64(ce.MinKB * 1024)),
			BestQuality:   ce.BestQuality,
		})
	case err != nil:
		s.fail(w, r, err)
	default:
		sendPDF(w, res.Data, fmt.Sprintf("compressed_q%d.pdf", res.Quality), inline)
	}
}

func (s *Server) pdfToImage(w http.ResponseWriter, r *http.Request) {
	req, err := decode(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	format := req.Format
	if format == "" {
		format = "png"
	}
	enc, err := s.registry.Resolve(format)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	dpi := intOr(req.DPI, s.cfg.Render.DPI)
	if dpi < 36 || dpi > 600 {
		s.fail(w, r, badRequest("dpi must be within 36-600, got %d", dpi))
		return
	}
	doc, err := s.fetchPDF(r.Context(), req.PDFURLs)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out, err := compute(r.Context(), s.pool, func(ctx context.Context) ([]byte, error) {
		pages, err := render.Pages(doc, dpi)
		if err != nil {
			return nil, err
		}
		b := archive.New(s.now())
		for i, p := range pages {
			data, err := enc.Encode(ctx, p, encoder.Options{Quality: intOr(req.Quality, encoder.DefaultQuality)})
			if err != nil {
				return nil, fmt.Errorf("encode page %d: %w", i+1, err)
			}
			b.Add(fmt.Sprintf("page-%03d.%s", i+1, enc.Extension()), data)
		}
		return b.Bytes()
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendZip(w, out, "pages.zip")
}

func (s *Server) pdfToText(w http.ResponseWriter, r *http.Request) {
	req, err := decode(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	doc, err := s.fetchPDF(r.Context(), req.PDFURLs)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	text, err := compute(r.Context(), s.pool, func(context.Context) (string, error) {
		return render.Text(doc)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendFile(w, []byte(text), "text/plain; charset=utf-8", "document.txt", inline)
}

func (s *Server) pdfToExcel(w http.ResponseWriter, r *http.Request) {
	req, err := decode(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	doc, err := s.fetchPDF(r.Context(), req.PDFURLs)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out, err := compute(r.Context(), s.pool, func(context.Context) ([]byte, error) {
		pages, err := render.PageTexts(doc)
		if err != nil {
			return nil, err
		}
		return office.ToExcel(pages)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendFile(w, out, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "document.xlsx", attachment)
}

var officeMIME = map[string]string{
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

func (s *Server) pdfToWord(w http.ResponseWriter, r *http.Request) { s.pdfToOffice(w, r, "docx") }

func (s *Server) pdfToPPT(w http.ResponseWriter, r *http.Request) { s.pdfToOffice(w, r, "pptx") }

func (s *Server) pdfToOffice(w http.ResponseWriter, r *http.Request, format string) {
	req, err := decode(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !s.office.Available() {
		s.fail(w, r, errOfficeUnavailable)
		return
	}
	doc, err := s.fetchPDF(r.Context(), req.PDFURLs)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// soffice runs out of process; the pool still bounds how many run at once.
	out, err := compute(r.Context(), s.pool, func(ctx context.Context) ([]byte, error) {
		return s.office.Convert(ctx, doc, format)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendFile(w, out, officeMIME[format], "document."+format, attachment)
}
