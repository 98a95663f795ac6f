package sizefit

import "github.com/imlakshy/fileway-backend/internal/encoder"

// direction is where the encoded size has to move to reach the band.
type direction int

const (
	hold direction = iota
	shrink
	grow
)

func (d direction) String() string {
	switch d {
	case shrink:
		return "shrink"
	case grow:
		return "grow"
	default:
		return "hold"
	}
}

// classify picks the next phase from a measured size.
func classify(size int, b band) direction {
	switch {
	case float64(size) > b.upper:
		return shrink
	case float64(size) < b.lower:
		return grow
	default:
		return hold
	}
}

// paramRow is the encoder setup used for one direction. The shrink row
// favours small output, the grow row large output; hold is the neutral
// first encode.
type paramRow struct {
	optimize    bool
	subsampling encoder.Subsampling
}

var paramTable = map[direction]paramRow{
	hold:   {optimize: false, subsampling: encoder.SubsamplingHalf},
	shrink: {optimize: true, subsampling: encoder.SubsamplingQuarter},
	grow:   {optimize: false, subsampling: encoder.SubsamplingFull},
}

func paramsFor(d direction, quality int) encoder.Options {
	row := paramTable[d]
	return encoder.Options{
		Quality:     quality,
		Optimize:    row.optimize,
		Subsampling: row.subsampling,
	}
}

// qualities lists the sweep from max down to min, always ending on min.
func qualities(maxQ, minQ, step int) []int {
	var qs []int
	for q := maxQ; q >= minQ; q -= step {
		qs = append(qs, q)
	}
	if len(qs) == 0 || qs[len(qs)-1] != minQ {
		qs = append(qs, minQ)
	}
	return qs
}
