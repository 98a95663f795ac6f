package sizefit

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/imlakshy/fileway-backend/internal/encoder"
	"github.com/imlakshy/fileway-backend/internal/imageproc"
)

// Options tune the search. The ratios and caps are configuration; only the
// phase structure and the band semantics are fixed.
type Options struct {
	// Encoder produces the candidate bytes. Defaults to the jpegli encoder.
	Encoder encoder.Encoder
	// Resize produces the rescaled working image. Defaults to imageproc.Resize.
	Resize func(img image.Image, w, h int) (image.Image, error)

	MaxQuality  int // first quality of a sweep
	MinQuality  int // last quality of a sweep
	QualityStep int

	DownscaleRatio float64 // per-axis factor per downscale step, in (0, 1)
	MinDimension   int     // downscale floor in pixels, per axis

	UpscaleRatio float64 // per-axis factor per upscale step, > 1
	MaxScale     float64 // upscale ceiling relative to the source
	MaxPixels    int     // upscale stops early past this many pixels

	Logger *zap.Logger
}

// DefaultOptions returns the balanced tuning.
func DefaultOptions() Options {
	return Options{
		MaxQuality:     95,
		MinQuality:     10,
		QualityStep:    5,
		DownscaleRatio: 0.9,
		MinDimension:   50,
		UpscaleRatio:   1.15,
		MaxScale:       4,
		MaxPixels:      64 << 20,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Encoder == nil {
		o.Encoder = &encoder.JPEGEncoder{}
	}
	if o.Resize == nil {
		o.Resize = imageproc.Resize
	}
	if o.MaxQuality == 0 {
		o.MaxQuality = d.MaxQuality
	}
	if o.MinQuality == 0 {
		o.MinQuality = d.MinQuality
	}
	if o.QualityStep == 0 {
		o.QualityStep = d.QualityStep
	}
	if o.DownscaleRatio == 0 {
		o.DownscaleRatio = d.DownscaleRatio
	}
	if o.MinDimension == 0 {
		o.MinDimension = d.MinDimension
	}
	if o.UpscaleRatio == 0 {
		o.UpscaleRatio = d.UpscaleRatio
	}
	if o.MaxScale == 0 {
		o.MaxScale = d.MaxScale
	}
	if o.MaxPixels == 0 {
		o.MaxPixels = d.MaxPixels
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Validate rejects tunings the search cannot run with.
func (o Options) Validate() error {
	switch {
	case o.MinQuality < 1 || o.MaxQuality > 100 || o.MinQuality > o.MaxQuality:
		return fmt.Errorf("quality range must be within 1-100, got %d-%d", o.MinQuality, o.MaxQuality)
	case o.QualityStep < 1:
		return fmt.Errorf("quality step must be positive, got %d", o.QualityStep)
	case o.DownscaleRatio <= 0 || o.DownscaleRatio >= 1:
		return fmt.Errorf("downscale ratio must be in (0, 1), got %g", o.DownscaleRatio)
	case o.MinDimension < 1:
		return fmt.Errorf("min dimension must be positive, got %d", o.MinDimension)
	case o.UpscaleRatio <= 1:
		return fmt.Errorf("upscale ratio must be > 1, got %g", o.UpscaleRatio)
	case o.MaxScale < 1:
		return fmt.Errorf("max scale must be >= 1, got %g", o.MaxScale)
	}
	return nil
}
