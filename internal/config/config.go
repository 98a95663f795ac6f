// Package config loads fileway settings from defaults, an optional TOML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that reads "30s"-style strings from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	Server  Server `toml:"server"`
	Fetch   Fetch  `toml:"fetch"`
	Workers int    `toml:"workers"`
	Fit     Fit    `toml:"fit"`
	Render  Render `toml:"render"`
	Office  Office `toml:"office"`
	Log     Log    `toml:"log"`
}

type Server struct {
	Addr           string   `toml:"addr"`
	AllowedOrigins []string `toml:"allowed_origins"`
	RequestTimeout Duration `toml:"request_timeout"`
	RateLimit      int      `toml:"rate_limit"` // requests per minute per IP, 0 disables
	MaxBodyBytes   int64    `toml:"max_body_bytes"`
}

type Fetch struct {
	Timeout   Duration `toml:"timeout"`
	MaxBytes  int64    `toml:"max_bytes"`
	UserAgent string   `toml:"user_agent"`
}

// Fit overrides the balanced profile. Zero values keep the built-in tuning.
type Fit struct {
	Tolerance      float64 `toml:"tolerance"`
	MaxQuality     int     `toml:"max_quality"`
	MinQuality     int     `toml:"min_quality"`
	QualityStep    int     `toml:"quality_step"`
	DownscaleRatio float64 `toml:"downscale_ratio"`
	MinDimension   int     `toml:"min_dimension"`
	UpscaleRatio   float64 `toml:"upscale_ratio"`
	MaxScale       float64 `toml:"max_scale"`
}

type Render struct {
	DPI int `toml:"dpi"`
}

type Office struct {
	Soffice string   `toml:"soffice"`
	Timeout Duration `toml:"timeout"`
}

type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json or console
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Server: Server{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
			RequestTimeout: Duration{2 * time.Minute},
			RateLimit:      120,
			MaxBodyBytes:   1 << 20,
		},
		Fetch: Fetch{
			Timeout:   Duration{30 * time.Second},
			MaxBytes:  100 << 20,
			UserAgent: "fileway/1.0",
		},
		Workers: 4,
		Fit:     Fit{Tolerance: 0.05},
		Render:  Render{DPI: 150},
		Office: Office{
			Soffice: "soffice",
			Timeout: Duration{2 * time.Minute},
		},
		Log: Log{Level: "info", Format: "json"},
	}
}

// Load builds a Config. path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if port, ok := lookup("PORT"); ok && port != "" {
		c.Server.Addr = ":" + port
	}
	str("FILEWAY_ADDR", &c.Server.Addr)
	str("FILEWAY_LOG_LEVEL", &c.Log.Level)
	str("FILEWAY_LOG_FORMAT", &c.Log.Format)
	str("FILEWAY_SOFFICE", &c.Office.Soffice)

	if v, ok := lookup("FILEWAY_ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.AllowedOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, o)
			}
		}
	}
	if v, ok := lookup("FILEWAY_FETCH_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FILEWAY_FETCH_TIMEOUT: %w", err)
		}
		c.Fetch.Timeout = Duration{d}
	}
	ints := []struct {
		key string
		set func(int)
	}{
		{"FILEWAY_MAX_DOWNLOAD_MB", func(n int) { c.Fetch.MaxBytes = int64(n) << 20 }},
		{"FILEWAY_WORKERS", func(n int) { c.Workers = n }},
		{"FILEWAY_RATE_LIMIT", func(n int) { c.Server.RateLimit = n }},
	}
	for _, e := range ints {
		v, ok := lookup(e.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		e.set(n)
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must be >= 0, got %d", c.Server.RateLimit))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes))
	}
	if c.Fetch.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("fetch.max_bytes must be positive, got %d", c.Fetch.MaxBytes))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	if t := c.Fit.Tolerance; t <= 0 || t >= 1 {
		errs = append(errs, fmt.Errorf("fit.tolerance must be in (0, 1), got %g", t))
	}
	if r := c.Fit.DownscaleRatio; r != 0 && (r <= 0 || r >= 1) {
		errs = append(errs, fmt.Errorf("fit.downscale_ratio must be in (0, 1), got %g", r))
	}
	if r := c.Fit.UpscaleRatio; r != 0 && r <= 1 {
		errs = append(errs, fmt.Errorf("fit.upscale_ratio must be > 1, got %g", r))
	}
	if s := c.Fit.MaxScale; s != 0 && s < 1 {
		errs = append(errs, fmt.Errorf("fit.max_scale must be >= 1, got %g", s))
	}
	if q := c.Fit.MaxQuality; q < 0 || q > 100 {
		errs = append(errs, fmt.Errorf("fit.max_quality must be within 1-100, got %d", q))
	}
	if q := c.Fit.MinQuality; q < 0 || q > 100 {
		errs = append(errs, fmt.Errorf("fit.min_quality must be within 1-100, got %d", q))
	}
	if c.Render.DPI < 36 || c.Render.DPI > 600 {
		errs = append(errs, fmt.Errorf("render.dpi must be within 36-600, got %d", c.Render.DPI))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
