// Package config loads application settings from an optional YAML file
// with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the manual marker application.
// Environment variables always override YAML values. Secrets (S3 keys) are
// only read from the environment.
type Config struct {
	Env     string `yaml:"env" env:"MANUALES_ENV" env-default:"local"`
	Version string `yaml:"-"` // set at load time

	Log     LogConfig     `yaml:"log"`
	Catalog CatalogConfig `yaml:"catalog"`
	Viewer  ViewerConfig  `yaml:"viewer"`
	OCR     OCRConfig     `yaml:"ocr"`
	Storage StorageConfig `yaml:"storage"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig selects zap level and encoding.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"console"` // console | json
}

// CatalogConfig locates the catalog database.
type CatalogConfig struct {
	// Path of the sqlite file. Empty means <user config dir>/manual-markers/catalog.db.
	Path string `yaml:"path" env:"CATALOG_PATH" env-default:""`
}

// ViewerConfig tunes the manual viewer and marker editor.
type ViewerConfig struct {
	RenderDebounceMS int     `yaml:"render_debounce_ms" env:"VIEWER_RENDER_DEBOUNCE_MS" env-default:"150"`
	ZoomKey          string  `yaml:"zoom_key" env:"VIEWER_ZOOM_KEY" env-default:"manualZoom"`
	CloseRadius      float64 `yaml:"close_radius" env:"VIEWER_CLOSE_RADIUS" env-default:"15"`
	GapThreshold     float64 `yaml:"gap_threshold" env:"VIEWER_GAP_THRESHOLD" env-default:"5"`
}

// RenderDebounce returns the debounce window as a duration.
func (v ViewerConfig) RenderDebounce() time.Duration {
	return time.Duration(v.RenderDebounceMS) * time.Millisecond
}

// OCRConfig controls the tesseract fallback for pages without a text layer.
type OCRConfig struct {
	Enabled  bool    `yaml:"enabled" env:"OCR_ENABLED" env-default:"false"`
	Language string  `yaml:"language" env:"OCR_LANGUAGE" env-default:"spa+eng"`
	Scale    float64 `yaml:"scale" env:"OCR_SCALE" env-default:"2"`
}

// StorageConfig configures s3:// manual URLs.
type StorageConfig struct {
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT" env-default:""`
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	UsePathStyle    bool   `yaml:"use_path_style" env:"S3_USE_PATH_STYLE" env-default:"true"`
	AccessKeyID     string `yaml:"-" env:"S3_ACCESS_KEY_ID"`     // secret
	SecretAccessKey string `yaml:"-" env:"S3_SECRET_ACCESS_KEY"` // secret
	HTTPTimeoutSec  int    `yaml:"http_timeout_sec" env:"HTTP_TIMEOUT_SEC" env-default:"60"`
}

// MetricsConfig enables the prometheus listener when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr" env:"METRICS_ADDR" env-default:""`
}

// Load reads path when it exists, otherwise the environment only.
func Load(path, version string) (*Config, error) {
	cfg := &Config{Version: version}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			return cfg, cfg.validate()
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Viewer.RenderDebounceMS < 0 {
		return fmt.Errorf("viewer.render_debounce_ms must be >= 0")
	}
	if c.Viewer.CloseRadius <= 0 {
		return fmt.Errorf("viewer.close_radius must be > 0")
	}
	if c.OCR.Scale <= 0 {
		return fmt.Errorf("ocr.scale must be > 0")
	}
	return nil
}

// CatalogPath resolves the database location.
func (c *Config) CatalogPath() string {
	if c.Catalog.Path != "" {
		return c.Catalog.Path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "manual-markers", "catalog.db")
}

// IsDevelopment reports whether verbose development defaults apply.
func (c *Config) IsDevelopment() bool {
	return c.Env == "local" || c.Env == "dev"
}
