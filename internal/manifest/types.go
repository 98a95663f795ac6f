package manifest

// Manifest reports the outputs of a fileway batch or multi-file request.
type Manifest struct {
	Version     int              `json:"version"`
	GeneratedAt string           `json:"generated_at"`
	Operation   string           `json:"operation"` // "fit", "resize-image-kb", "convert-image", ...
	Target      *Target          `json:"target,omitempty"`
	RunInfo     *RunInfo         `json:"run_info,omitempty"`
	Entries     map[string]Entry `json:"entries"`
	Stats       Stats            `json:"stats"`
}

// Target records the size goal of a fit run.
type Target struct {
	Bytes     int64   `json:"bytes"`
	Tolerance float64 `json:"tolerance"`
	Profile   string  `json:"profile,omitempty"`
}

// RunInfo captures run parameters for diagnostics.
type RunInfo struct {
	Workers int    `json:"workers"`
	Encoder string `json:"encoder,omitempty"`
}

// Entry describes one source and the output produced from it.
type Entry struct {
	Source   string       `json:"source"` // path or URL
	Original OriginalInfo `json:"original"`

	Format  string `json:"format,omitempty"` // output format
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Size    int64  `json:"size,omitempty"` // output bytes
	Outcome string `json:"outcome,omitempty"`
	Quality int    `json:"quality,omitempty"`
	Hash    string `json:"hash,omitempty"` // first 16 hex chars of xxhash64
	Path    string `json:"path,omitempty"` // relative to the manifest

	Error string `json:"error,omitempty"` // set when this entry failed
}

// Failed reports whether the entry carries an error instead of an output.
func (e Entry) Failed() bool { return e.Error != "" }

// OriginalInfo holds metadata about the source image.
type OriginalInfo struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
	HasAlpha bool   `json:"has_alpha"`
}

// Stats aggregates run metrics.
type Stats struct {
	TotalInputBytes  int64 `json:"total_input_bytes"`
	TotalOutputBytes int64 `json:"total_output_bytes"`
	TotalEntries     int   `json:"total_entries"`
	WithinTolerance  int   `json:"within_tolerance,omitempty"`
	BestEffort       int   `json:"best_effort,omitempty"`
	Failed           int   `json:"failed,omitempty"`
}

// SupportedManifestVersion is the current schema version.
const SupportedManifestVersion = 1

// FileName is the manifest's name inside output directories and zips.
const FileName = "fileway.manifest.json"
