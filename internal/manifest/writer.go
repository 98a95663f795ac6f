package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Outcome labels as written by the size search.
const (
	OutcomeWithin     = "within-tolerance"
	OutcomeBestEffort = "best-effort"
)

// New creates an empty manifest with defaults.
func New(operation string) *Manifest {
	return &Manifest{
		Version:     SupportedManifestVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Operation:   operation,
		Entries:     make(map[string]Entry),
	}
}

// ComputeStats recalculates aggregate statistics from entries.
func (m *Manifest) ComputeStats() {
	var s Stats
	s.TotalEntries = len(m.Entries)
	for _, e := range m.Entries {
		s.TotalInputBytes += e.Original.Size
		if e.Failed() {
			s.Failed++
			continue
		}
		s.TotalOutputBytes += e.Size
		switch e.Outcome {
		case OutcomeWithin:
			s.WithinTolerance++
		case OutcomeBestEffort:
			s.BestEffort++
		}
	}
	m.Stats = s
}

// Marshal computes stats and returns indented JSON. Map keys are sorted by
// encoding/json, so output is stable.
func (m *Manifest) Marshal() ([]byte, error) {
	m.ComputeStats()
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteJSON serializes the manifest to a JSON file.
func WriteJSON(m *Manifest, path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Read loads a manifest from path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
