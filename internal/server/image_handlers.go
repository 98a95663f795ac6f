package server

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/imlakshy/fileway-backend/internal/archive"
	"github.com/imlakshy/fileway-backend/internal/encoder"
	"github.com/imlakshy/fileway-backend/internal/fetch"
	"github.com/imlakshy/fileway-backend/internal/hasher"
	"github.com/imlakshy/fileway-backend/internal/imageproc"
	"github.com/imlakshy/fileway-backend/internal/manifest"
	"github.com/imlakshy/fileway-backend/internal/profile"
	"github.com/imlakshy/fileway-backend/internal/render"
	"github.com/imlakshy/fileway-backend/internal/sizefit"
)

const (
	headerFitOutcome = "X-Fit-Outcome"
	headerFitSize    = "X-Fit-Size"
	headerFitQuality = "X-Fit-Quality"
)

// output is one encoded image.
type output struct {
	data          []byte
	enc           encoder.Encoder
	width, height int
	quality       int
	fit           *sizefit.Result
}

// imageOp transforms a decoded image. format is the source format.
type imageOp func(ctx context.Context, img image.Image, format string) (*output, error)

// item is the outcome for one source URL.
type item struct {
	doc   *fetch.Document
	out   *output
	entry manifest.Entry
	err   error
}

func (s *Server) now() time.Time { return time.Now().UTC() }

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"encoders": s.registry.Available(),
		"profiles": s.profiles.Names(),
		"render":   render.Available(),
		"office":   s.office.Available(),
	})
}

func (s *Server) convertImage(w http.ResponseWriter, r *http.Request) {
	req, err := decode(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Format) == "" {
		s.fail(w, r, badRequest("format is required (one of: %s)", strings.Join(s.registry.Available(), ", ")))
		return
	}
	enc, err := s.registry.Resolve(req.Format)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	quality := intOr(req.Quality, encoder.DefaultQuality)
	if quality < 1 || quality > 100 {
		s.fail(w, r, badRequest("quality must be within 1-100, got %d", quality))
		return
	}

	op := func(ctx context.Context, img image.Image, _ string) (*output, error) {
		return encodeImage(ctx, enc, img, quality)
	}
	s.serveImages(w, r, "convert-image", "converted_images.zip", req.ImageURLs, op, nil)
}

func (s *Server) resizeImage(w http.ResponseWriter, r *http.Request) {
	req, err := decode(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	width, height := intOr(req.Width, 0), intOr(req.Height, 0)
	if width < 0 || height < 0 || (width == 0 && height == 0) {
		s.fail(w, r, badRequest("width or height must be a positive number"))
		return
	}

	op := func(ctx context.Context, img image.Image, format string) (*output, error) {
		enc := s.registry.Get(format)
		if enc == nil {
			enc = s.registry.Get("png")
		}
		resized, err := imageproc.Resize(img, width, height)
		if err != nil {
			return nil, badRequest("%v", err)
		}
		return encodeImage(ctx, enc, resized, encoder.DefaultQuality)
	}
	s.serveImages(w, r, "resize-image", "resized_images.zip", req.ImageURLs, op, nil)
}

func (s *Server) resizeImageKB(w http.ResponseWriter, r *http.Request) {
	req, err := decode(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if req.TargetKB == nil {
		s.fail(w, r, badRequest("target_kb is required"))
		return
	}
	target, err := sizefit.KB(float64(*req.TargetKB), floatOr(req.Tolerance, s.cfg.Fit.Tolerance))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	name := req.Profile
	if name == "" {
		name = profile.DefaultName
	}
	if !s.profiles.Known(name) {
		s.fail(w, r, badRequest("unknown profile %q (one of: %s)", name, strings.Join(s.profiles.Names(), ", ")))
		return
	}
	opts := s.profiles.Get(name).Apply(sizefit.Options{
		Encoder: s.fitEnc,
		Logger:  s.log.With(zap.String("request_id", requestIDFrom(r.Context()))),
	})

	op := func(ctx context.Context, img image.Image, _ string) (*output, error) {
		res, err := sizefit.Fit(ctx, img, target, opts)
		if err != nil {
			return nil, err
		}
		return &output{
			data:    res.Data,
			enc:     s.fitEnc,
			width:   res.Attempt.Width,
			height:  res.Attempt.Height,
			quality: res.Attempt.Quality,
			fit:     res,
		}, nil
	}
	describe := func(m *manifest.Manifest) {
		m.Target = &manifest.Target{Bytes: target.Bytes, Tolerance: target.EffectiveTolerance(), Profile: name}
		m.RunInfo = &manifest.RunInfo{Workers: s.pool.Size(), Encoder: s.fitEnc.Format()}
	}
	s.serveImages(w, r, "fit", "fitted_images.zip", req.ImageURLs, op, describe)
}

// encodeImage encodes img with enc, flattening transparency for formats
// without an alpha channel.
func encodeImage(ctx context.Context, enc encoder.Encoder, img image.Image, quality int) (*output, error) {
	if enc.Format() == "jpeg" {
		img = imageproc.Flatten(img)
	}
	data, err := enc.Encode(ctx, img, encoder.Options{Quality: quality, Optimize: true})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", enc.Format(), err)
	}
	b := img.Bounds()
	return &output{data: data, enc: enc, width: b.Dx(), height: b.Dy(), quality: quality}, nil
}

// serveImages downloads urls and applies op to each image. A single URL is
// answered with the image itself. Several URLs produce a zip holding every
// output plus a manifest; per-image failures are recorded there and the
// request fails only when nothing succeeded.
func (s *Server) serveImages(w http.ResponseWriter, r *http.Request, operation, zipName string, urls urlList, op imageOp, describe func(*manifest.Manifest)) {
	list := urls.clean()
	if len(list) == 0 {
		s.fail(w, r, badRequest("No image URLs provided."))
		return
	}
	docs, err := s.fetcher.GetAll(r.Context(), list)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	for _, d := range docs {
		if !d.IsImage() {
			s.fail(w, r, badRequest("%s is not an image (%s)", d.URL, d.MIME))
			return
		}
	}

	items := make([]item, len(docs))
	var g errgroup.Group
	for i, d := range docs {
		g.Go(func() error {
			it, err := compute(r.Context(), s.pool, func(ctx context.Context) (item, error) {
				return process(ctx, d, op), nil
			})
			items[i] = it
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.fail(w, r, err)
		return
	}

	if len(items) == 1 {
		it := items[0]
		if it.err != nil {
			s.fail(w, r, it.err)
			return
		}
		if res := it.out.fit; res != nil {
			h := w.Header()
			h.Set(headerFitOutcome, res.Outcome.String())
			h.Set(headerFitSize, strconv.Itoa(res.Size()))
			h.Set(headerFitQuality, strconv.Itoa(res.Attempt.Quality))
		}
		name := baseName(it.doc.URL, "image") + "." + it.out.enc.Extension()
		sendFile(w, it.out.data, it.out.enc.MIME(), name, attachment)
		return
	}

	out, err := s.bundle(operation, items, describe)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sendZip(w, out, zipName)
}

func process(ctx context.Context, doc *fetch.Document, op imageOp) item {
	it := item{
		doc: doc,
		entry: manifest.Entry{
			Source:   doc.URL,
			Original: manifest.OriginalInfo{Format: doc.Ext, Size: int64(len(doc.Data))},
		},
	}
	img, format, err := imageproc.Decode(doc.Data)
	if err != nil {
		it.err = err
		return it
	}
	b := img.Bounds()
	it.entry.Original.Width = b.Dx()
	it.entry.Original.Height = b.Dy()
	it.entry.Original.Format = format
	it.entry.Original.HasAlpha = imageproc.HasAlpha(img)

	out, err := op(ctx, img, format)
	if err != nil {
		it.err = err
		return it
	}
	it.out = out
	it.entry.Format = out.enc.Format()
	it.entry.Width = out.width
	it.entry.Height = out.height
	it.entry.Size = int64(len(out.data))
	it.entry.Quality = out.quality
	it.entry.Hash = hasher.ContentHash(out.data, 16)
	if out.fit != nil {
		it.entry.Outcome = out.fit.Outcome.String()
	}
	return it
}

// bundle zips the successful outputs with a manifest of every item.
func (s *Server) bundle(operation string, items []item, describe func(*manifest.Manifest)) ([]byte, error) {
	m := manifest.New(operation)
	if describe != nil {
		describe(m)
	}
	b := archive.New(s.now())

	var firstErr error
	for i, it := range items {
		stem := baseName(it.doc.URL, fmt.Sprintf("image-%d", i+1))
		if it.err != nil {
			if firstErr == nil {
				firstErr = it.err
			}
			it.entry.Error = it.err.Error()
			m.Entries[uniqueKey(m, stem)] = it.entry
			continue
		}
		name := b.Add(stem+"."+it.out.enc.Extension(), it.out.data)
		it.entry.Path = name
		m.Entries[uniqueKey(m, name)] = it.entry
	}
	if b.Len() == 0 {
		return nil, firstErr
	}

	report, err := m.Marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	b.Add(manifest.FileName, report)
	return b.Bytes()
}

func uniqueKey(m *manifest.Manifest, key string) string {
	if _, taken := m.Entries[key]; !taken {
		return key
	}
	for n := 2; ; n++ {
		k := fmt.Sprintf("%s-%d", key, n)
		if _, taken := m.Entries[k]; !taken {
			return k
		}
	}
}
