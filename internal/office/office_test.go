package office

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestToExcel(t *testing.T) {
	data, err := ToExcel([]string{
		"Invoice  2024\nItem\tQty\n\nWidget  3\n",
		"second page",
	})
	if err != nil {
		t.Fatalf("to excel: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Page 1" || sheets[1] != "Page 2" {
		t.Fatalf("sheets: got %v", sheets)
	}

	rows, err := f.GetRows("Page 1")
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"Invoice", "2024"}, {"Item", "Qty"}, {"Widget", "3"}}
	if len(rows) != len(want) {
		t.Fatalf("rows: got %v, want %v", rows, want)
	}
	for i := range want {
		if len(rows[i]) != len(want[i]) {
			t.Errorf("row %d: got %v, want %v", i, rows[i], want[i])
			continue
		}
		for j := range want[i] {
			if rows[i][j] != want[i][j] {
				t.Errorf("cell %d,%d: got %q, want %q", i, j, rows[i][j], want[i][j])
			}
		}
	}
}

func TestToExcel_NoPages(t *testing.T) {
	data, err := ToExcel(nil)
	if err != nil {
		t.Fatalf("to excel: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := f.GetSheetList(); len(got) != 1 {
		t.Errorf("sheets: got %v", got)
	}
}

func TestConvert_UnknownFormat(t *testing.T) {
	c := NewConverter("soffice", time.Second)
	if _, err := c.Convert(context.Background(), []byte("%PDF"), "odt"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("error: got %v, want ErrUnknownFormat", err)
	}
}

// fakeSoffice writes a shell script standing in for soffice.
func fakeSoffice(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in")
	}
	path := filepath.Join(t.TempDir(), "soffice")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConvert_ReadsOutput(t *testing.T) {
	// Arguments: --headless --infilter=... --convert-to FILTER --outdir DIR IN
	bin := fakeSoffice(t, `out="$6"; in="$7"; base=$(basename "$in" .pdf); printf converted > "$out/$base.docx"`)
	data, err := NewConverter(bin, 5*time.Second).Convert(context.Background(), []byte("%PDF"), "docx")
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if string(data) != "converted" {
		t.Errorf("output: got %q", data)
	}
}

func TestConvert_Failures(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		timeout time.Duration
		want    error
	}{
		{"exit status", "echo boom >&2; exit 3", 5 * time.Second, ErrConversionFailed},
		{"no output", "exit 0", 5 * time.Second, ErrNoOutput},
		{"timeout", "exec sleep 5", 100 * time.Millisecond, ErrTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := fakeSoffice(t, tt.script)
			_, err := NewConverter(bin, tt.timeout).Convert(context.Background(), []byte("%PDF"), "pptx")
			if !errors.Is(err, tt.want) {
				t.Errorf("error: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConverter_Available(t *testing.T) {
	if NewConverter("definitely-not-a-real-binary-xyz", 0).Available() {
		t.Error("missing binary reported available")
	}
}
