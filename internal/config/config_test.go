package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fileway.toml")
	body := `
workers = 8

[server]
addr = ":9000"
allowed_origins = ["https://a.example", "https://b.example"]
request_timeout = "45s"

[fetch]
timeout = "5s"

[fit]
tolerance = 0.1
downscale_ratio = 0.8

[render]
dpi = 200
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9000" && os.Getenv("PORT") == "" && os.Getenv("FILEWAY_ADDR") == "" {
		t.Errorf("addr: got %q, want :9000", cfg.Server.Addr)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Errorf("origins: got %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Server.RequestTimeout.Duration != 45*time.Second {
		t.Errorf("request timeout: got %v, want 45s", cfg.Server.RequestTimeout)
	}
	if cfg.Fit.Tolerance != 0.1 || cfg.Fit.DownscaleRatio != 0.8 {
		t.Errorf("fit: got %+v", cfg.Fit)
	}
	if cfg.Render.DPI != 200 {
		t.Errorf("dpi: got %d, want 200", cfg.Render.DPI)
	}
	// Untouched sections keep their defaults.
	if cfg.Office.Soffice == "" {
		t.Error("office.soffice lost its default")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected an error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":                    "7000",
		"FILEWAY_ALLOWED_ORIGINS": "https://x.example, https://y.example",
		"FILEWAY_FETCH_TIMEOUT":   "3s",
		"FILEWAY_MAX_DOWNLOAD_MB": "10",
		"FILEWAY_WORKERS":         "2",
		"FILEWAY_LOG_FORMAT":      "console",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("addr: got %q, want :7000", cfg.Server.Addr)
	}
	if got := strings.Join(cfg.Server.AllowedOrigins, "|"); got != "https://x.example|https://y.example" {
		t.Errorf("origins: got %q", got)
	}
	if cfg.Fetch.Timeout.Duration != 3*time.Second {
		t.Errorf("fetch timeout: got %v", cfg.Fetch.Timeout)
	}
	if cfg.Fetch.MaxBytes != 10<<20 {
		t.Errorf("max bytes: got %d", cfg.Fetch.MaxBytes)
	}
	if cfg.Workers != 2 {
		t.Errorf("workers: got %d, want 2", cfg.Workers)
	}
	if cfg.Log.Format != "console" {
		t.Errorf("log format: got %q", cfg.Log.Format)
	}
}

func TestApplyEnv_AddrOverridesPort(t *testing.T) {
	env := map[string]string{"PORT": "7000", "FILEWAY_ADDR": "127.0.0.1:7100"}
	cfg := Default()
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != "127.0.0.1:7100" {
		t.Errorf("addr: got %q", cfg.Server.Addr)
	}
}

func TestApplyEnv_BadNumber(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(func(k string) (string, bool) {
		if k == "FILEWAY_WORKERS" {
			return "many", true
		}
		return "", false
	})
	if err == nil || !strings.Contains(err.Error(), "FILEWAY_WORKERS") {
		t.Fatalf("error: got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"tolerance one", func(c *Config) { c.Fit.Tolerance = 1 }},
		{"downscale above one", func(c *Config) { c.Fit.DownscaleRatio = 1.2 }},
		{"upscale below one", func(c *Config) { c.Fit.UpscaleRatio = 0.5 }},
		{"max scale below one", func(c *Config) { c.Fit.MaxScale = 0.5 }},
		{"dpi too high", func(c *Config) { c.Render.DPI = 2000 }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
