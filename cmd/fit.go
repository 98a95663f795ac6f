package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/imlakshy/fileway-backend/internal/logging"
	"github.com/imlakshy/fileway-backend/internal/manifest"
	"github.com/imlakshy/fileway-backend/internal/pipeline"
	"github.com/imlakshy/fileway-backend/internal/profile"
	"github.com/imlakshy/fileway-backend/internal/sizefit"
)

var (
	fitOutDir    string
	fitProfile   string
	fitWorkers   int
	fitKB        float64
	fitTolerance float64
)

var fitCmd = &cobra.Command{
	Use:   "fit <input_dir>",
	Short: "Re-encode every image in a directory to a target size",
	Long: `Scans input directory for images (png, jpg, jpeg, webp, gif, bmp, tiff)
and re-encodes each one as JPEG so that its size lands within the tolerance
band around --kb. Quality is lowered first, then the image is downscaled or
upscaled as needed.

Output filenames are content-addressed: <key>.<hash8>.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runFit,
}

func init() {
	fitCmd.Flags().Float64Var(&fitKB, "kb", 0, "target size in KB (required)")
	fitCmd.Flags().Float64VarP(&fitTolerance, "tolerance", "t", sizefit.DefaultTolerance, "accepted relative deviation from the target")
	fitCmd.Flags().StringVarP(&fitOutDir, "out", "o", "./fileway_out", "output directory")
	fitCmd.Flags().StringVarP(&fitProfile, "profile", "p", profile.DefaultName, "search profile")
	fitCmd.Flags().IntVarP(&fitWorkers, "workers", "w", 0, "parallel workers (0 = NumCPU)")
	_ = fitCmd.MarkFlagRequired("kb")
	rootCmd.AddCommand(fitCmd)
}

func runFit(cmd *cobra.Command, args []string) error {
	start := time.Now()

	absInput, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}
	absOutput, err := filepath.Abs(fitOutDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	if !profile.Known(fitProfile) {
		return fmt.Errorf("unknown profile %q (available: %v)", fitProfile, profile.Names())
	}
	target, err := sizefit.KB(fitKB, fitTolerance)
	if err != nil {
		return err
	}
	prof := profile.Get(fitProfile)

	logVerbose("input:   %s", absInput)
	logVerbose("output:  %s", absOutput)
	logVerbose("target:  %s ±%.0f%%, profile %s", humanize.IBytes(uint64(target.Bytes)), target.EffectiveTolerance()*100, prof.Name)

	log := zap.NewNop()
	if verbose {
		if log, err = logging.New("debug", "console"); err != nil {
			return err
		}
		defer log.Sync()
	}

	if err := os.MkdirAll(absOutput, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(pipeline.Config{
		InputDir:  absInput,
		OutputDir: absOutput,
		Target:    target,
		Profile:   prof,
		Workers:   fitWorkers,
		Logf:      logVerbose,
		Logger:    log,
	})
	m, err := p.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}
		return fmt.Errorf("pipeline: %w", err)
	}

	manifestPath := filepath.Join(absOutput, manifest.FileName)
	if err := manifest.WriteJSON(m, manifestPath); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	printFitReport(m, time.Since(start))
	return nil
}

func printFitReport(m *manifest.Manifest, elapsed time.Duration) {
	s := m.Stats
	fmt.Println()
	fmt.Println("  fileway fit complete")
	fmt.Println()
	if m.Target != nil {
		fmt.Printf("  Target:      %s ±%.0f%% (%s)\n",
			humanize.IBytes(uint64(m.Target.Bytes)), m.Target.Tolerance*100, m.Target.Profile)
	}
	fmt.Printf("  Images:      %d\n", s.TotalEntries)
	fmt.Printf("  Within band: %d\n", s.WithinTolerance)
	fmt.Printf("  Best effort: %d\n", s.BestEffort)
	fmt.Printf("  Failed:      %d\n", s.Failed)
	fmt.Printf("  Input size:  %s\n", humanize.IBytes(uint64(s.TotalInputBytes)))
	fmt.Printf("  Output size: %s\n", humanize.IBytes(uint64(s.TotalOutputBytes)))
	fmt.Printf("  Time:        %s\n", elapsed.Round(time.Millisecond))
	fmt.Println()

	var failed []string
	for key, e := range m.Entries {
		if e.Failed() {
			failed = append(failed, fmt.Sprintf("%s: %s", key, e.Error))
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		fmt.Println("  Failures:")
		for _, f := range failed {
			fmt.Printf("    %s\n", f)
		}
		fmt.Println()
	}
	fmt.Printf("  Manifest:    %s\n", manifest.FileName)
	fmt.Println()
}
