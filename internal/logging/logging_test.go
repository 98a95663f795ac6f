package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"info", "json", false},
		{"debug", "console", false},
		{"warn", "", false},
		{"loud", "json", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		log, err := New(tt.level, tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("New(%q, %q): err = %v, wantErr %v", tt.level, tt.format, err, tt.wantErr)
			continue
		}
		if err != nil {
			continue
		}
		want, _ := zapcore.ParseLevel(tt.level)
		if !log.Core().Enabled(want) {
			t.Errorf("New(%q, %q): level %s not enabled", tt.level, tt.format, want)
		}
		if want > zapcore.DebugLevel && log.Core().Enabled(want-1) {
			t.Errorf("New(%q, %q): level below %s enabled", tt.level, tt.format, want)
		}
	}
}
