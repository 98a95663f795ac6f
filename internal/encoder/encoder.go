package encoder

import (
	"context"
	"image"
)

// DefaultQuality is used when a caller passes a quality outside 1-100.
const DefaultQuality = 82

// Subsampling selects the chroma resolution of a lossy encode.
type Subsampling int

const (
	SubsamplingFull    Subsampling = iota // 4:4:4
	SubsamplingHalf                       // 4:2:2
	SubsamplingQuarter                    // 4:2:0
)

func (s Subsampling) String() string {
	switch s {
	case SubsamplingFull:
		return "full"
	case SubsamplingHalf:
		return "half"
	case SubsamplingQuarter:
		return "quarter"
	default:
		return "unknown"
	}
}

func (s Subsampling) ratio() image.YCbCrSubsampleRatio {
	switch s {
	case SubsamplingFull:
		return image.YCbCrSubsampleRatio444
	case SubsamplingHalf:
		return image.YCbCrSubsampleRatio422
	default:
		return image.YCbCrSubsampleRatio420
	}
}

// Options are the knobs of a single encode. Lossless encoders ignore them.
type Options struct {
	Quality     int // 1-100
	Optimize    bool
	Subsampling Subsampling
}

func (o Options) quality() int {
	if o.Quality <= 0 || o.Quality > 100 {
		return DefaultQuality
	}
	return o.Quality
}

// Encoder encodes an image to a specific format.
type Encoder interface {
	// Format returns the output format name (e.g. "jpeg", "webp", "png").
	Format() string

	// Extension returns the file extension without dot.
	Extension() string

	// MIME returns the media type of the encoded output.
	MIME() string

	// Available returns true if the encoder is ready to use.
	// External encoders (cwebp, avifenc) may not be installed.
	Available() bool

	// Encode converts the image to bytes.
	Encode(ctx context.Context, img image.Image, opts Options) ([]byte, error)
}
