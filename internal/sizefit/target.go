package sizefit

import (
	"errors"
	"fmt"
)

// DefaultTolerance is the relative width of the acceptance band on each side
// of the target.
const DefaultTolerance = 0.05

var (
	// ErrInvalidTarget is returned for non-positive targets or tolerances
	// outside [0, 1).
	ErrInvalidTarget = errors.New("invalid target")

	// ErrInfeasibleTarget is returned when the downscale floor is reached
	// without any attempt landing in the band.
	ErrInfeasibleTarget = errors.New("target size not reachable")
)

// Target is the requested encoded size.
type Target struct {
	Bytes     int64
	Tolerance float64 // 0 means DefaultTolerance
}

// NewTarget validates and returns a Target.
func NewTarget(bytes int64, tolerance float64) (Target, error) {
	t := Target{Bytes: bytes, Tolerance: tolerance}
	return t, t.Validate()
}

// KB is shorthand for a target expressed in kilobytes (1024 bytes).
func KB(kb float64, tolerance float64) (Target, error) {
	return NewTarget(int64(kb*1024), tolerance)
}

// Validate checks the target.
func (t Target) Validate() error {
	if t.Bytes <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidTarget, t.Bytes)
	}
	if t.Tolerance < 0 || t.Tolerance >= 1 {
		return fmt.Errorf("%w: tolerance must be in [0, 1), got %g", ErrInvalidTarget, t.Tolerance)
	}
	return nil
}

// EffectiveTolerance is the tolerance the search applies, with the default
// filled in.
func (t Target) EffectiveTolerance() float64 {
	if t.Tolerance == 0 {
		return DefaultTolerance
	}
	return t.Tolerance
}

// Lower is the smallest accepted size.
func (t Target) Lower() float64 { return float64(t.Bytes) * (1 - t.EffectiveTolerance()) }

// Upper is the largest accepted size.
func (t Target) Upper() float64 { return float64(t.Bytes) * (1 + t.EffectiveTolerance()) }

// band is the tolerance window, fixed for the whole search.
type band struct {
	target       int64
	lower, upper float64
}

func (t Target) band() band {
	return band{target: t.Bytes, lower: t.Lower(), upper: t.Upper()}
}

func (b band) contains(size int) bool {
	s := float64(size)
	return s >= b.lower && s <= b.upper
}

func (b band) distance(size int) int64 {
	d := int64(size) - b.target
	if d < 0 {
		return -d
	}
	return d
}
