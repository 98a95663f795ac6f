package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/imlakshy/fileway-backend/internal/hasher"
	"github.com/imlakshy/fileway-backend/internal/manifest"
)

var validateCmd = &cobra.Command{
	Use:   "validate <manifest_path>",
	Short: "Validate a fileway manifest and check referenced files exist",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	manifestPath := args[0]

	m, err := manifest.Read(manifestPath)
	if err != nil {
		return err
	}

	errs := validateManifest(m, filepath.Dir(manifestPath))
	if len(errs) == 0 {
		fmt.Println("  ✓ Manifest is valid")
		fmt.Printf("  ✓ %d entries, %d failed, all outputs present\n", m.Stats.TotalEntries, m.Stats.Failed)
		return nil
	}

	fmt.Printf("  ✗ Manifest has %d error(s):\n", len(errs))
	for _, e := range errs {
		fmt.Printf("    • %s\n", e)
	}
	return fmt.Errorf("validation failed with %d errors", len(errs))
}

func validateManifest(m *manifest.Manifest, baseDir string) []string {
	var errs []string

	if m.Version != manifest.SupportedManifestVersion {
		errs = append(errs, fmt.Sprintf("unsupported manifest version: %d", m.Version))
	}

	keys := make([]string, 0, len(m.Entries))
	for k := range m.Entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seenPaths := map[string]bool{}
	for _, key := range keys {
		e := m.Entries[key]
		if e.Failed() {
			continue
		}
		if e.Width <= 0 || e.Height <= 0 {
			errs = append(errs, fmt.Sprintf("entry %q: invalid dimensions %dx%d", key, e.Width, e.Height))
		}
		if e.Outcome != manifest.OutcomeWithin && e.Outcome != manifest.OutcomeBestEffort {
			errs = append(errs, fmt.Sprintf("entry %q: unknown outcome %q", key, e.Outcome))
		}
		if e.Path == "" {
			errs = append(errs, fmt.Sprintf("entry %q: missing path", key))
			continue
		}
		if seenPaths[e.Path] {
			errs = append(errs, fmt.Sprintf("entry %q: duplicate path %q", key, e.Path))
		}
		seenPaths[e.Path] = true

		errs = append(errs, checkFile(key, e, filepath.Join(baseDir, filepath.FromSlash(e.Path)))...)
	}

	// Verify stats consistency.
	want := *m
	want.ComputeStats()
	if want.Stats != m.Stats {
		errs = append(errs, fmt.Sprintf("stats mismatch: manifest=%+v, computed=%+v", m.Stats, want.Stats))
	}
	return errs
}

// checkFile compares an output file against its entry.
func checkFile(key string, e manifest.Entry, path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return []string{fmt.Sprintf("entry %q: file not found: %s", key, e.Path)}
	}
	defer f.Close()

	var errs []string
	if info, err := f.Stat(); err == nil && info.Size() != e.Size {
		errs = append(errs, fmt.Sprintf("entry %q: size mismatch: manifest=%d, disk=%d", key, e.Size, info.Size()))
	}
	if e.Hash != "" {
		sum, err := hasher.ContentHashReader(f, len(e.Hash))
		if err != nil {
			errs = append(errs, fmt.Sprintf("entry %q: read %s: %v", key, e.Path, err))
		} else if sum != e.Hash {
			errs = append(errs, fmt.Sprintf("entry %q: content hash mismatch", key))
		}
	}
	return errs
}
