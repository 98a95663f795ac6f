// Package sizefit re-encodes an image so that its JPEG size lands inside a
// tolerance band around a byte target.
//
// The search runs in three phases: a quality sweep at native resolution,
// then either a downscale ladder (output too large) or an upscale ladder
// (output too small). A coarse quality step that jumps across the band is
// refined one quality at a time, and when neighbouring qualities still
// straddle it the scale is bisected. The first attempt found inside the
// band is returned.
package sizefit

import (
	"context"
	"fmt"
	"image"
	"math"

	"go.uber.org/zap"

	"github.com/imlakshy/fileway-backend/internal/encoder"
	"github.com/imlakshy/fileway-backend/internal/imageproc"
)

// Fit encodes img to the target size. It returns a WithinTolerance or
// BestEffort result, or an *InfeasibleError when even the smallest allowed
// resolution at the lowest quality is too large.
//
// Fit holds no shared state; concurrent calls are safe. It is CPU bound and
// callers serving requests should run it off their accept path.
func Fit(ctx context.Context, img image.Image, target Target, opts Options) (*Result, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	s := &search{
		ctx:    ctx,
		opts:   opts,
		target: target,
		band:   target.band(),
		src:    imageproc.Flatten(img),
		seen:   make(map[attemptKey]Attempt),
	}
	s.log = opts.Logger.With(zap.Int64("target", target.Bytes))

	// Phase 1: quality sweep at native resolution. The first encode decides
	// which parameter row the sweep uses.
	first, err := s.encode(s.src, paramsFor(hold, opts.MaxQuality))
	if err != nil {
		return nil, err
	}
	if s.band.contains(first.Size) {
		return s.within(first, PhaseQuality), nil
	}
	dir := classify(first.Size, s.band)
	s.log.Debug("quality sweep", zap.Stringer("direction", dir), zap.Int("first", first.Size))

	r, err := s.sweep(s.src, dir, opts.MaxQuality)
	if err != nil {
		return nil, err
	}
	switch {
	case r.hit != nil:
		return s.within(*r.hit, PhaseQuality), nil
	case r.below == nil:
		return s.downscale()
	case r.above != nil:
		// Neighbouring qualities straddle the band; only the resolution
		// can close the gap.
		return s.settle(r.above.Quality, dir, 1, PhaseDownscale)
	case dir == shrink:
		// The neutral row was above the band but the shrink row is below
		// it from the top quality on.
		return s.settle(first.Quality, hold, 1, PhaseDownscale)
	default:
		return s.upscale()
	}
}

type search struct {
	ctx    context.Context
	opts   Options
	target Target
	band   band
	src    image.Image
	log    *zap.Logger

	best     *Attempt // closest to target so far
	attempts int
	seen     map[attemptKey]Attempt
}

// attemptKey identifies an encode. Resizes are deterministic, so equal
// dimensions and parameters give equal bytes.
type attemptKey struct {
	w, h   int
	params encoder.Options
}

func (s *search) encode(img image.Image, params encoder.Options) (Attempt, error) {
	if err := s.ctx.Err(); err != nil {
		return Attempt{}, err
	}
	b := img.Bounds()
	key := attemptKey{w: b.Dx(), h: b.Dy(), params: params}
	if a, ok := s.seen[key]; ok {
		return a, nil
	}
	data, err := s.opts.Encoder.Encode(s.ctx, img, params)
	if err != nil {
		return Attempt{}, fmt.Errorf("encode %dx%d q%d: %w", b.Dx(), b.Dy(), params.Quality, err)
	}
	s.attempts++

	a := Attempt{
		Quality:     params.Quality,
		Optimize:    params.Optimize,
		Subsampling: params.Subsampling,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Size:        len(data),
		data:        data,
	}
	s.seen[key] = a
	if s.best == nil || s.band.distance(a.Size) < s.band.distance(s.best.Size) {
		best := a
		s.best = &best
	}
	return a, nil
}

// encodeAt encodes the source scaled by factor.
func (s *search) encodeAt(factor float64, params encoder.Options) (Attempt, error) {
	w, h := imageproc.ScaledSize(s.src, factor)
	if a, ok := s.seen[attemptKey{w: w, h: h, params: params}]; ok {
		return a, s.ctx.Err()
	}
	img, err := s.scaled(factor)
	if err != nil {
		return Attempt{}, err
	}
	return s.encode(img, params)
}

// sweepResult is what a quality sweep learned at one resolution. When
// nothing hit, above is the lowest quality still above the band and below
// the highest quality already under it; either may be nil.
type sweepResult struct {
	hit          *Attempt
	above, below *Attempt
}

// sweep scans qualities from maxQ down in coarse steps. Sizes fall with
// quality, so the scan stops at the first attempt under the band. If the
// previous step was above the band, the qualities between the two are
// bisected one by one.
func (s *search) sweep(img image.Image, dir direction, maxQ int) (sweepResult, error) {
	var r sweepResult
	for _, q := range qualities(maxQ, s.opts.MinQuality, s.opts.QualityStep) {
		a, err := s.encode(img, paramsFor(dir, q))
		if err != nil {
			return r, err
		}
		switch classify(a.Size, s.band) {
		case hold:
			r.hit = &a
			return r, nil
		case shrink:
			r.above = &a
		case grow:
			r.below = &a
			if r.above == nil {
				return r, nil
			}
			return s.refineQuality(img, dir, r)
		}
	}
	return r, nil
}

// refineQuality binary searches the qualities strictly between r.below and
// r.above.
func (s *search) refineQuality(img image.Image, dir direction, r sweepResult) (sweepResult, error) {
	for r.above.Quality-r.below.Quality > 1 {
		q := (r.above.Quality + r.below.Quality) / 2
		a, err := s.encode(img, paramsFor(dir, q))
		if err != nil {
			return r, err
		}
		switch classify(a.Size, s.band) {
		case hold:
			r.hit = &a
			return r, nil
		case shrink:
			r.above = &a
		case grow:
			r.below = &a
		}
	}
	s.log.Debug("qualities straddle the band",
		zap.Int("above", r.above.Quality), zap.Int("below", r.below.Quality))
	return r, nil
}

func (s *search) scaled(factor float64) (image.Image, error) {
	w, h := imageproc.ScaledSize(s.src, factor)
	img, err := s.opts.Resize(s.src, w, h)
	if err != nil {
		return nil, fmt.Errorf("resize to %dx%d: %w", w, h, err)
	}
	return img, nil
}

func (s *search) fits(factor float64) bool {
	w, h := imageproc.ScaledSize(s.src, factor)
	return w >= s.opts.MinDimension && h >= s.opts.MinDimension
}

// downscale shrinks the source step by step, sweeping quality at each size.
// Every step before the current one was above the band at all qualities.
func (s *search) downscale() (*Result, error) {
	prev := 1.0
	for k := 1; ; k++ {
		factor := math.Pow(s.opts.DownscaleRatio, float64(k))
		if !s.fits(factor) {
			s.log.Debug("downscale floor reached", zap.Int("best", s.best.Size))
			return nil, &InfeasibleError{Target: s.target, Best: *s.best, Attempts: s.attempts}
		}

		img, err := s.scaled(factor)
		if err != nil {
			return nil, err
		}
		b := img.Bounds()
		s.log.Debug("downscale step", zap.Int("width", b.Dx()), zap.Int("height", b.Dy()))

		r, err := s.sweep(img, shrink, s.opts.MaxQuality)
		if err != nil {
			return nil, err
		}
		if r.hit != nil {
			return s.within(*r.hit, PhaseDownscale), nil
		}
		if r.below == nil {
			prev = factor
			continue
		}

		// This step dropped under the band at r.below's quality while the
		// previous one was above it at every quality.
		hit, err := s.bisectScale(r.below.Quality, shrink, prev, factor)
		if err != nil {
			return nil, err
		}
		if hit != nil {
			return s.within(*hit, PhaseDownscale), nil
		}
		return s.bestEffort(*s.best, PhaseDownscale), nil
	}
}

// settle resolves a quality that is above the band at scale from by walking
// the scale down until an encode drops under the band, then bisecting.
func (s *search) settle(quality int, dir direction, from float64, phase Phase) (*Result, error) {
	params := paramsFor(dir, quality)
	hi := from
	for {
		factor := hi * s.opts.DownscaleRatio
		if !s.fits(factor) {
			return s.bestEffort(*s.best, phase), nil
		}
		a, err := s.encodeAt(factor, params)
		if err != nil {
			return nil, err
		}
		switch classify(a.Size, s.band) {
		case hold:
			return s.within(a, phase), nil
		case shrink:
			hi = factor
			continue
		}

		hit, err := s.bisectScale(quality, dir, hi, factor)
		if err != nil {
			return nil, err
		}
		if hit != nil {
			return s.within(*hit, phase), nil
		}
		return s.bestEffort(*s.best, phase), nil
	}
}

// maxBisect bounds the scale bisection.
const maxBisect = 24

// bisectScale searches scale factors between hi, where the encode at
// quality is above the band, and lo, where it is below. It returns nil once
// the two sizes are a pixel apart.
func (s *search) bisectScale(quality int, dir direction, hi, lo float64) (*Attempt, error) {
	params := paramsFor(dir, quality)
	for i := 0; i < maxBisect; i++ {
		hw, hh := imageproc.ScaledSize(s.src, hi)
		lw, lh := imageproc.ScaledSize(s.src, lo)
		if hw-lw <= 1 && hh-lh <= 1 {
			break
		}
		mid := (hi + lo) / 2
		a, err := s.encodeAt(mid, params)
		if err != nil {
			return nil, err
		}
		switch classify(a.Size, s.band) {
		case hold:
			return &a, nil
		case shrink:
			hi = mid
		case grow:
			lo = mid
		}
	}
	s.log.Debug("scale bisection exhausted", zap.Int("quality", quality))
	return nil, nil
}

// upscale grows the source at maximum quality until the size reaches the
// band or the scale ceiling is hit.
func (s *search) upscale() (*Result, error) {
	var largest Attempt
	for k := 1; ; k++ {
		factor := math.Min(math.Pow(s.opts.UpscaleRatio, float64(k)), s.opts.MaxScale)
		w, h := imageproc.ScaledSize(s.src, factor)
		if w*h > s.opts.MaxPixels {
			s.log.Debug("upscale pixel cap reached", zap.Int("width", w), zap.Int("height", h))
			break
		}

		img, err := s.scaled(factor)
		if err != nil {
			return nil, err
		}
		a, err := s.encode(img, paramsFor(grow, 100))
		if err != nil {
			return nil, err
		}
		if a.Size > largest.Size {
			largest = a
		}
		s.log.Debug("upscale step", zap.Int("width", w), zap.Int("height", h), zap.Int("size", a.Size))

		switch classify(a.Size, s.band) {
		case hold:
			return s.within(a, PhaseUpscale), nil
		case shrink:
			// Overshot: refine quality at this resolution, then the scale.
			r, err := s.sweep(img, grow, 100)
			if err != nil {
				return nil, err
			}
			if r.hit != nil {
				return s.within(*r.hit, PhaseUpscale), nil
			}
			return s.settle(r.above.Quality, grow, factor, PhaseUpscale)
		}

		if factor >= s.opts.MaxScale {
			break
		}
	}
	if largest.data == nil {
		return s.bestEffort(*s.best, PhaseUpscale), nil
	}
	return s.bestEffort(largest, PhaseUpscale), nil
}

func (s *search) within(a Attempt, phase Phase) *Result {
	s.log.Debug("target reached", zap.Stringer("attempt", a), zap.String("phase", string(phase)))
	return &Result{
		Outcome:  WithinTolerance,
		Phase:    phase,
		Data:     a.data,
		Attempt:  a,
		Attempts: s.attempts,
	}
}

func (s *search) bestEffort(a Attempt, phase Phase) *Result {
	s.log.Debug("search budget exhausted", zap.Stringer("attempt", a), zap.String("phase", string(phase)))
	return &Result{
		Outcome:  BestEffort,
		Phase:    phase,
		Data:     a.data,
		Attempt:  a,
		Attempts: s.attempts,
	}
}
