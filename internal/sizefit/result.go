package sizefit

import (
	"fmt"

	"github.com/imlakshy/fileway-backend/internal/encoder"
)

// Outcome distinguishes an exact hit from a degraded one.
type Outcome int

const (
	// WithinTolerance means the size lies in [Lower, Upper].
	WithinTolerance Outcome = iota + 1
	// BestEffort means the search budget ran out; the caller must not treat
	// the result as meeting the target.
	BestEffort
)

func (o Outcome) String() string {
	switch o {
	case WithinTolerance:
		return "within-tolerance"
	case BestEffort:
		return "best-effort"
	default:
		return "unknown"
	}
}

// Phase names the part of the search that produced a result.
type Phase string

const (
	PhaseQuality   Phase = "quality"
	PhaseDownscale Phase = "downscale"
	PhaseUpscale   Phase = "upscale"
)

// Attempt is one measured encode.
type Attempt struct {
	Quality     int
	Optimize    bool
	Subsampling encoder.Subsampling
	Width       int
	Height      int
	Size        int

	data []byte
}

func (a Attempt) String() string {
	return fmt.Sprintf("q%d %dx%d %s optimize=%t -> %d bytes",
		a.Quality, a.Width, a.Height, a.Subsampling, a.Optimize, a.Size)
}

// Result is the selected attempt.
type Result struct {
	Outcome  Outcome
	Phase    Phase
	Data     []byte
	Attempt  Attempt
	Attempts int // encodes performed
}

// Size is the encoded byte count.
func (r *Result) Size() int { return len(r.Data) }

// InfeasibleError reports the closest attempt when the downscale floor was hit.
type InfeasibleError struct {
	Target   Target
	Best     Attempt
	Attempts int
}

// BestSize is the size of the closest attempt seen.
func (e *InfeasibleError) BestSize() int { return e.Best.Size }

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("%s: wanted %d bytes ±%.0f%%, closest was %d bytes (%dx%d q%d) after %d encodes",
		ErrInfeasibleTarget, e.Target.Bytes, e.Target.EffectiveTolerance()*100,
		e.Best.Size, e.Best.Width, e.Best.Height, e.Best.Quality, e.Attempts)
}

func (e *InfeasibleError) Unwrap() error { return ErrInfeasibleTarget }
