// Package config loads converter settings from YAML, a .env file and
// NASHVILLE_* environment variables, in that order of precedence (later
// wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tsawler/nashville/pipeline"
	"github.com/tsawler/nashville/storage"
)

// AppName and Version are reported by the service and the CLI.
const (
	AppName = "Nashville Numbers Converter"
	Version = "2.0.0"
)

// Config is the complete converter configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Limits  LimitsConfig  `yaml:"limits"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
	History HistoryConfig `yaml:"history"`

	// Debug attaches intermediate results to every conversion result.
	Debug bool `yaml:"debug"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// LimitsConfig holds the thresholds documents are checked against.
type LimitsConfig struct {
	MaxFileMB    int     `yaml:"max_file_mb"`
	MinTextChars int     `yaml:"min_text_chars"`
	MinFontSize  float64 `yaml:"min_font_size"`
	MaxFontSize  float64 `yaml:"max_font_size"`
}

// StorageConfig locates temporary artifacts.
type StorageConfig struct {
	TempURL string `yaml:"temp_url"` // any afs URL, e.g. file:///tmp/x or mem://localhost/x
	TTL     string `yaml:"ttl"`      // Go duration
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// HistoryConfig locates the conversion history database. An empty path
// disables history.
type HistoryConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":8000",
			CORSOrigins: []string{"*"},
		},
		Limits: LimitsConfig{
			MaxFileMB:    10,
			MinTextChars: 50,
			MinFontSize:  8,
			MaxFontSize:  24,
		},
		Storage: StorageConfig{
			TempURL: storage.DefaultBaseURL,
			TTL:     "15m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. A .env file next to the working directory is loaded into the
// environment first, then NASHVILLE_* variables override file values.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads environment files that exist, without overriding
// variables that are already set.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies NASHVILLE_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("NASHVILLE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("NASHVILLE_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("NASHVILLE_TEMP_URL"); v != "" {
		c.Storage.TempURL = v
	}
	if v := os.Getenv("NASHVILLE_TEMP_TTL"); v != "" {
		// Bare numbers are minutes.
		if _, err := strconv.Atoi(v); err == nil {
			v += "m"
		}
		c.Storage.TTL = v
	}
	if v := os.Getenv("NASHVILLE_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("NASHVILLE_HISTORY_DB"); v != "" {
		c.History.DatabasePath = v
	}
	if v := os.Getenv("NASHVILLE_DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NASHVILLE_DEBUG: %w", err)
		}
		c.Debug = b
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"NASHVILLE_MAX_FILE_MB", &c.Limits.MaxFileMB},
		{"NASHVILLE_MIN_TEXT", &c.Limits.MinTextChars},
	}
	for _, e := range ints {
		if v := os.Getenv(e.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.name, err)
			}
			*e.dst = n
		}
	}

	floats := []struct {
		name string
		dst  *float64
	}{
		{"NASHVILLE_MIN_FONT", &c.Limits.MinFontSize},
		{"NASHVILLE_MAX_FONT", &c.Limits.MaxFontSize},
	}
	for _, e := range floats {
		if v := os.Getenv(e.name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", e.name, err)
			}
			*e.dst = f
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr must be set")
	}
	if c.Storage.TempURL == "" {
		return errors.New("storage.temp_url must be set")
	}
	if ttl, err := time.ParseDuration(c.Storage.TTL); err != nil || ttl <= 0 {
		return fmt.Errorf("storage.ttl %q is not a positive duration", c.Storage.TTL)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	if err := c.Pipeline().Validate(); err != nil {
		return fmt.Errorf("limits: %w", err)
	}
	return nil
}

// TempTTL returns how long temp artifacts are kept.
func (c *Config) TempTTL() time.Duration {
	d, err := time.ParseDuration(c.Storage.TTL)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// Pipeline returns the pipeline thresholds.
func (c *Config) Pipeline() pipeline.Config {
	return pipeline.Config{
		MaxFileBytes: int64(c.Limits.MaxFileMB) * 1024 * 1024,
		MinTextChars: c.Limits.MinTextChars,
		MinFontSize:  c.Limits.MinFontSize,
		MaxFontSize:  c.Limits.MaxFontSize,
		Debug:        c.Debug,
	}
}
