package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/imlakshy/fileway-backend/internal/manifest"
)

var statsCmd = &cobra.Command{
	Use:   "stats <out_dir_or_manifest>",
	Short: "Display statistics for a fit output directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, args []string) error {
	path := args[0]

	// If path is a directory, look for manifest inside.
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, manifest.FileName)
	}

	m, err := manifest.Read(path)
	if err != nil {
		return err
	}
	printStats(m)
	return nil
}

func printStats(m *manifest.Manifest) {
	fmt.Println()
	fmt.Printf("  Manifest version: %d\n", m.Version)
	fmt.Printf("  Generated:        %s\n", m.GeneratedAt)
	fmt.Printf("  Operation:        %s\n", m.Operation)
	if t := m.Target; t != nil {
		fmt.Printf("  Target:           %s ±%.0f%% (profile %s)\n",
			humanize.IBytes(uint64(t.Bytes)), t.Tolerance*100, t.Profile)
	}
	if ri := m.RunInfo; ri != nil {
		fmt.Printf("  Workers:          %d (%s)\n", ri.Workers, ri.Encoder)
	}
	fmt.Println()

	s := m.Stats
	fmt.Printf("  Total entries:    %d\n", s.TotalEntries)
	fmt.Printf("  Within band:      %d\n", s.WithinTolerance)
	fmt.Printf("  Best effort:      %d\n", s.BestEffort)
	fmt.Printf("  Failed:           %d\n", s.Failed)
	fmt.Printf("  Input size:       %s\n", humanize.IBytes(uint64(s.TotalInputBytes)))
	fmt.Printf("  Output size:      %s\n", humanize.IBytes(uint64(s.TotalOutputBytes)))
	if s.TotalInputBytes > 0 {
		ratio := float64(s.TotalOutputBytes) / float64(s.TotalInputBytes) * 100
		fmt.Printf("  Compression:      %.1f%% of original\n", ratio)
	}
	fmt.Println()

	// Deviation from the target, worst first.
	if m.Target != nil && m.Target.Bytes > 0 {
		type dev struct {
			key string
			pct float64
		}
		var devs []dev
		for key, e := range m.Entries {
			if e.Failed() {
				continue
			}
			pct := (float64(e.Size)/float64(m.Target.Bytes) - 1) * 100
			devs = append(devs, dev{key, pct})
		}
		sort.Slice(devs, func(i, j int) bool { return abs(devs[i].pct) > abs(devs[j].pct) })
		n := min(len(devs), 10)
		if n > 0 {
			fmt.Printf("  Largest deviations from target:\n")
			for _, d := range devs[:n] {
				fmt.Printf("    %-40s %+6.1f%%\n", truncKey(d.key, 40), d.pct)
			}
			fmt.Println()
		}
	}

	// Quality breakdown.
	qualities := map[int]int{}
	for _, e := range m.Entries {
		if !e.Failed() {
			qualities[e.Quality]++
		}
	}
	var qs []int
	for q := range qualities {
		qs = append(qs, q)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(qs)))
	if len(qs) > 0 {
		fmt.Println("  Quality breakdown:")
		for _, q := range qs {
			fmt.Printf("    q%-3d  %4d images\n", q, qualities[q])
		}
		fmt.Println()
	}

	var warnings []string
	for key, e := range m.Entries {
		if e.Failed() {
			warnings = append(warnings, fmt.Sprintf("%q failed: %s", key, e.Error))
		} else if e.Outcome == manifest.OutcomeBestEffort {
			warnings = append(warnings, fmt.Sprintf("%q is best effort (%s)", key, humanize.IBytes(uint64(e.Size))))
		}
	}
	if len(warnings) > 0 {
		sort.Strings(warnings)
		fmt.Printf("  Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Printf("    ⚠ %s\n", w)
		}
		fmt.Println()
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func truncKey(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
