package profile

import (
	"maps"
	"slices"

	"github.com/imlakshy/fileway-backend/internal/sizefit"
)

// DefaultName is used when a request or CLI run names no profile.
const DefaultName = "balanced"

// Profile is a named size-search tuning.
type Profile struct {
	Name           string
	MaxQuality     int     // first quality tried
	MinQuality     int     // last quality tried
	QualityStep    int     // sweep granularity
	DownscaleRatio float64 // per-axis shrink per ladder step
	MinDimension   int     // downscale floor in pixels
	UpscaleRatio   float64 // per-axis growth per ladder step
	MaxScale       float64 // upscale ceiling
}

// Set holds profiles by name. A Set is a value: With returns a modified
// copy and leaves the receiver alone.
type Set map[string]Profile

// builtin is never mutated; Builtin hands out copies.
var builtin = Set{
	"balanced": {
		Name:           "balanced",
		MaxQuality:     95,
		MinQuality:     10,
		QualityStep:    5,
		DownscaleRatio: 0.9,
		MinDimension:   50,
		UpscaleRatio:   1.15,
		MaxScale:       4,
	},
	"fast": {
		Name:           "fast",
		MaxQuality:     90,
		MinQuality:     20,
		QualityStep:    10,
		DownscaleRatio: 0.75,
		MinDimension:   50,
		UpscaleRatio:   1.5,
		MaxScale:       4,
	},
	"precise": {
		Name:           "precise",
		MaxQuality:     98,
		MinQuality:     5,
		QualityStep:    2,
		DownscaleRatio: 0.95,
		MinDimension:   32,
		UpscaleRatio:   1.08,
		MaxScale:       4,
	},
}

// Builtin returns a copy of the built-in profiles.
func Builtin() Set {
	return maps.Clone(builtin)
}

// With returns a copy of s in which p replaces the profile of the same
// name. Zero fields of p keep the existing values.
func (s Set) With(p Profile) Set {
	out := maps.Clone(s)
	if out == nil {
		out = Set{}
	}
	base, ok := out[p.Name]
	if !ok {
		out[p.Name] = p
		return out
	}
	if p.MaxQuality != 0 {
		base.MaxQuality = p.MaxQuality
	}
	if p.MinQuality != 0 {
		base.MinQuality = p.MinQuality
	}
	if p.QualityStep != 0 {
		base.QualityStep = p.QualityStep
	}
	if p.DownscaleRatio != 0 {
		base.DownscaleRatio = p.DownscaleRatio
	}
	if p.MinDimension != 0 {
		base.MinDimension = p.MinDimension
	}
	if p.UpscaleRatio != 0 {
		base.UpscaleRatio = p.UpscaleRatio
	}
	if p.MaxScale != 0 {
		base.MaxScale = p.MaxScale
	}
	out[p.Name] = base
	return out
}

// Get returns a profile by name. Falls back to the default profile if
// unknown.
func (s Set) Get(name string) Profile {
	if p, ok := s[name]; ok {
		return p
	}
	p, ok := s[DefaultName]
	if !ok {
		p = builtin[DefaultName]
	}
	p.Name = name // preserve requested name
	return p
}

// Known reports whether s has a profile called name.
func (s Set) Known(name string) bool {
	_, ok := s[name]
	return ok
}

// Names lists the profiles in sorted order.
func (s Set) Names() []string {
	return slices.Sorted(maps.Keys(s))
}

// Get looks name up in the built-in profiles.
func Get(name string) Profile { return builtin.Get(name) }

// Known reports whether name is a built-in profile.
func Known(name string) bool { return builtin.Known(name) }

// Names lists the built-in profiles.
func Names() []string { return builtin.Names() }

// Apply copies the tuning into opts, leaving the encoder, resizer and logger
// untouched.
func (p Profile) Apply(opts sizefit.Options) sizefit.Options {
	opts.MaxQuality = p.MaxQuality
	opts.MinQuality = p.MinQuality
	opts.QualityStep = p.QualityStep
	opts.DownscaleRatio = p.DownscaleRatio
	opts.MinDimension = p.MinDimension
	opts.UpscaleRatio = p.UpscaleRatio
	opts.MaxScale = p.MaxScale
	return opts
}
