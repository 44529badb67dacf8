// Package config provides environment-driven configuration for wikiroute.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable holding an optional YAML file path.
const ConfigEnv = "WIKIROUTE_CONFIG"

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all application configuration values.
type Config struct {
	DataDir       string
	PageDump      string
	LinkDump      string
	RedirectDump  string
	TopK          int
	LogLevel      string
	LogFormat     string
	ProgressEvery int64
	QueueSize     int
	ListenHost    string
	Port          string
	CORSOrigins   []string
	DatabaseURL   Secret
	SQLitePath    string
	MetricsFile   string
}

// fileConfig is the YAML form. Empty values leave the default in place.
type fileConfig struct {
	DataDir       string   `yaml:"data_dir"`
	PageDump      string   `yaml:"page_dump"`
	LinkDump      string   `yaml:"link_dump"`
	RedirectDump  string   `yaml:"redirect_dump"`
	TopK          int      `yaml:"top_k"`
	LogLevel      string   `yaml:"log_level"`
	LogFormat     string   `yaml:"log_format"`
	ProgressEvery int64    `yaml:"progress_every"`
	QueueSize     int      `yaml:"queue_size"`
	ListenHost    string   `yaml:"listen_host"`
	Port          string   `yaml:"port"`
	CORSOrigins   []string `yaml:"cors_origins"`
	DatabaseURL   string   `yaml:"database_url"`
	SQLitePath    string   `yaml:"sqlite_path"`
	MetricsFile   string   `yaml:"metrics_file"`
}

// Load reads configuration from the file named by WIKIROUTE_CONFIG, if any,
// then from environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(ConfigEnv))
}

// LoadFile reads configuration with defaults, then the YAML file at path (when
// path is not empty), then environment variables, in increasing precedence.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		DataDir:       "data",
		TopK:          100000,
		LogLevel:      "info",
		LogFormat:     "text",
		ProgressEvery: 1000000,
		QueueSize:     64,
		ListenHost:    "127.0.0.1",
		Port:          "3030",
		CORSOrigins:   []string{"http://localhost:8501"},
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path.
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	setString(&c.DataDir, f.DataDir)
	setString(&c.PageDump, f.PageDump)
	setString(&c.LinkDump, f.LinkDump)
	setString(&c.RedirectDump, f.RedirectDump)
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.LogFormat, f.LogFormat)
	setString(&c.ListenHost, f.ListenHost)
	setString(&c.Port, f.Port)
	setString(&c.SQLitePath, f.SQLitePath)
	setString(&c.MetricsFile, f.MetricsFile)

	if f.DatabaseURL != "" {
		c.DatabaseURL = Secret(f.DatabaseURL)
	}

	if f.TopK != 0 {
		c.TopK = f.TopK
	}

	if f.ProgressEvery != 0 {
		c.ProgressEvery = f.ProgressEvery
	}

	if f.QueueSize != 0 {
		c.QueueSize = f.QueueSize
	}

	if len(f.CORSOrigins) > 0 {
		c.CORSOrigins = trimAll(f.CORSOrigins)
	}

	return nil
}

func (c *Config) applyEnv() error {
	c.DataDir = envOrDefault("DATA_DIR", c.DataDir)
	c.PageDump = envOrDefault("PAGE_DUMP", c.PageDump)
	c.LinkDump = envOrDefault("LINK_DUMP", c.LinkDump)
	c.RedirectDump = envOrDefault("REDIRECT_DUMP", c.RedirectDump)
	c.LogLevel = envOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOrDefault("LOG_FORMAT", c.LogFormat)
	c.ListenHost = envOrDefault("LISTEN_HOST", c.ListenHost)
	c.Port = envOrDefault("PORT", c.Port)
	c.DatabaseURL = Secret(envOrDefault("DATABASE_URL", c.DatabaseURL.Value()))
	c.SQLitePath = envOrDefault("SQLITE_PATH", c.SQLitePath)
	c.MetricsFile = envOrDefault("METRICS_FILE", c.MetricsFile)

	var errs []error

	if v := os.Getenv("TOP_K"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TOP_K must be an integer: %w", err))
		}
		c.TopK = n
	}

	if v := os.Getenv("PROGRESS_EVERY"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("PROGRESS_EVERY must be an integer: %w", err))
		}
		c.ProgressEvery = n
	}

	if v := os.Getenv("QUEUE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("QUEUE_SIZE must be an integer: %w", err))
		}
		c.QueueSize = n
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = trimAll(strings.Split(v, ","))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// Path returns the location of an artifact inside the data directory.
func (c *Config) Path(name string) string {
	return filepath.Join(c.DataDir, name)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	return out
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
