package pipeline

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/imlakshy/fileway-backend/internal/encoder"
	"github.com/imlakshy/fileway-backend/internal/manifest"
	"github.com/imlakshy/fileway-backend/internal/profile"
	"github.com/imlakshy/fileway-backend/internal/sizefit"
)

// Config holds all parameters for a batch fit run.
type Config struct {
	InputDir  string
	OutputDir string
	Target    sizefit.Target
	Profile   profile.Profile
	Workers   int
	Encoder   encoder.Encoder // defaults to the jpegli encoder

	// Logf receives progress lines; nil discards them.
	Logf func(format string, args ...any)
	// Logger receives the size search's debug trace; nil discards it.
	Logger *zap.Logger
}

// Pipeline fits every image under a directory to one size target.
type Pipeline struct {
	cfg Config
}

// New creates a configured pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Encoder == nil {
		cfg.Encoder = &encoder.JPEGEncoder{}
	}
	if cfg.Logf == nil {
		cfg.Logf = func(string, ...any) {}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg}
}

// Run processes all sources and returns the manifest. Failed images are
// recorded as entries with an error; Run itself fails only when nothing
// succeeded or ctx is canceled.
func (p *Pipeline) Run(ctx context.Context) (*manifest.Manifest, error) {
	if err := p.cfg.Target.Validate(); err != nil {
		return nil, err
	}

	sources, err := ScanImages(p.cfg.InputDir, p.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no images found in %s", p.cfg.InputDir)
	}
	p.cfg.Logf("found %d images, target %d bytes ±%.0f%%, profile %s",
		len(sources), p.cfg.Target.Bytes, p.cfg.Target.EffectiveTolerance()*100, p.cfg.Profile.Name)

	results := make([]processResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p.cfg.Logf("processing: %s", src.Key)
			results[i] = processImage(gctx, src, p.cfg)
			if r := results[i]; r.err == nil {
				p.cfg.Logf("done: %s (%s, %d bytes, q%d)", src.Key, r.entry.Outcome, r.entry.Size, r.entry.Quality)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := manifest.New("fit")
	m.Target = &manifest.Target{
		Bytes:     p.cfg.Target.Bytes,
		Tolerance: p.cfg.Target.EffectiveTolerance(),
		Profile:   p.cfg.Profile.Name,
	}
	m.RunInfo = &manifest.RunInfo{Workers: p.cfg.Workers, Encoder: p.cfg.Encoder.Format()}

	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			p.cfg.Logf("error: %v", r.err)
			r.entry.Error = r.err.Error()
		}
		m.Entries[r.key] = r.entry
	}
	if failed == len(sources) {
		return nil, fmt.Errorf("all %d images failed to process", failed)
	}
	if failed > 0 {
		p.cfg.Logf("warning: %d of %d images had errors", failed, len(sources))
	}

	m.ComputeStats()
	return m, nil
}
