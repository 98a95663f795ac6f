package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/imlakshy/fileway-backend/internal/hasher"
	"github.com/imlakshy/fileway-backend/internal/imageproc"
	"github.com/imlakshy/fileway-backend/internal/manifest"
	"github.com/imlakshy/fileway-backend/internal/sizefit"
)

// processResult holds the result of processing a single source image.
type processResult struct {
	key   string
	entry manifest.Entry
	err   error
}

// processImage decodes one source, fits it to the target and writes the
// output as <key>.<hash8>.<ext>.
func processImage(ctx context.Context, src Source, cfg Config) processResult {
	result := processResult{
		key: src.Key,
		entry: manifest.Entry{
			Source:   src.RelPath,
			Original: manifest.OriginalInfo{Format: src.Format, Size: src.Size},
		},
	}

	data, err := os.ReadFile(src.AbsPath)
	if err != nil {
		result.err = fmt.Errorf("read %s: %w", src.RelPath, err)
		return result
	}
	img, format, err := imageproc.Decode(data)
	if err != nil {
		result.err = fmt.Errorf("decode %s: %w", src.RelPath, err)
		return result
	}
	b := img.Bounds()
	result.entry.Original.Width = b.Dx()
	result.entry.Original.Height = b.Dy()
	result.entry.Original.Format = format
	result.entry.Original.HasAlpha = imageproc.HasAlpha(img)

	opts := cfg.Profile.Apply(sizefit.Options{
		Encoder: cfg.Encoder,
		Logger:  cfg.Logger.With(zap.String("source", src.RelPath)),
	})
	res, err := sizefit.Fit(ctx, img, cfg.Target, opts)
	if err != nil {
		result.err = fmt.Errorf("fit %s: %w", src.RelPath, err)
		return result
	}

	hash := hasher.ContentHash(res.Data, 16)
	keyDir := filepath.Dir(filepath.FromSlash(src.Key))
	name := fmt.Sprintf("%s.%s.%s", filepath.Base(src.Key), hash[:8], cfg.Encoder.Extension())
	relPath := filepath.ToSlash(filepath.Join(keyDir, name))

	outPath := filepath.Join(cfg.OutputDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		result.err = fmt.Errorf("mkdir for %s: %w", relPath, err)
		return result
	}
	if err := os.WriteFile(outPath, res.Data, 0o644); err != nil {
		result.err = fmt.Errorf("write %s: %w", relPath, err)
		return result
	}

	a := res.Attempt
	result.entry.Format = cfg.Encoder.Format()
	result.entry.Width = a.Width
	result.entry.Height = a.Height
	result.entry.Size = int64(res.Size())
	result.entry.Outcome = res.Outcome.String()
	result.entry.Quality = a.Quality
	result.entry.Hash = hash
	result.entry.Path = relPath
	return result
}
