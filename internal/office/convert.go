// Package office converts PDFs into Office documents.
package office

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTimeout          = errors.New("conversion timed out")
	ErrNoOutput         = errors.New("conversion produced no output")
	ErrConversionFailed = errors.New("conversion failed")
	ErrUnknownFormat    = errors.New("unknown office format")
)

// LibreOffice import filters per output format.
var filters = map[string]string{
	"docx": "docx:\"MS Word 2007 XML\"",
	"pptx": "pptx:\"Impress MS PowerPoint 2007 XML\"",
}

var inFilters = map[string]string{
	"docx": "writer_pdf_import",
	"pptx": "impress_pdf_import",
}

// Converter shells out to soffice.
type Converter struct {
	Binary  string
	Timeout time.Duration
}

// NewConverter returns a converter for the given binary, "soffice" when empty.
func NewConverter(binary string, timeout time.Duration) *Converter {
	if binary == "" {
		binary = "soffice"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Converter{Binary: binary, Timeout: timeout}
}

// Available reports whether the binary is on PATH.
func (c *Converter) Available() bool {
	_, err := exec.LookPath(c.Binary)
	return err == nil
}

// Convert turns pdf into format ("docx" or "pptx").
func (c *Converter) Convert(ctx context.Context, pdf []byte, format string) ([]byte, error) {
	filter, ok := filters[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	dir, err := os.MkdirTemp("", "fileway-office-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, uuid.NewString()+".pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return nil, err
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.Binary,
		"--headless",
		"--infilter="+inFilters[format],
		"--convert-to", filter,
		"--outdir", dir,
		in,
	)
	// Each call gets its own profile so concurrent runs do not share locks.
	cmd.Env = append(os.Environ(),
		"HOME="+dir,
		"UserInstallation=file://"+dir+"/lo-profile",
	)
	cmd.WaitDelay = 5 * time.Second
	if out, err := cmd.CombinedOutput(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %w: %s", ErrConversionFailed, err, truncate(out, 200))
	}

	outPath := in[:len(in)-len(".pdf")] + "." + format
	data, err := os.ReadFile(outPath)
	if err != nil || len(data) == 0 {
		return nil, ErrNoOutput
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
