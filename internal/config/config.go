package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/runnerr0/memorylane/internal/capture"
)

// Default config file path.
const DefaultConfigPath = "~/.config/memorylane/config.yaml"

// EnvPrefix prefixes every environment override, e.g. MEMORYLANE_DAEMON_PORT.
const EnvPrefix = "MEMORYLANE"

// Config holds all memorylane configuration.
type Config struct {
	Retention RetentionConfig `yaml:"retention"`
	Capture   CaptureConfig   `yaml:"capture"`
	Storage   StorageConfig   `yaml:"storage"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type RetentionConfig struct {
	// Days of content kept by prune. Zero keeps everything.
	Days int `yaml:"days" split_words:"true"`
}

type CaptureConfig struct {
	AutoCapture        bool     `yaml:"auto_capture" split_words:"true"`
	MinContentLength   int      `yaml:"min_content_length" split_words:"true"`
	ThumbnailSize      int      `yaml:"thumbnail_size" split_words:"true"`
	ExcludedPrefixes   []string `yaml:"excluded_prefixes" split_words:"true"`
	DenylistDomains    []string `yaml:"denylist_domains" split_words:"true"`
	UseDefaultDenylist bool     `yaml:"use_default_denylist" split_words:"true"`
}

// SQLiteFile is overridden by MEMORYLANE_STORAGE_SQLITE_FILE.
type StorageConfig struct {
	Path        string `yaml:"path" split_words:"true"`
	SQLiteFile  string `yaml:"sqlite_file" envconfig:"SQLITE_FILE"`
	JournalMode string `yaml:"sqlite_journal_mode" split_words:"true"`
}

type DaemonConfig struct {
	Host                  string `yaml:"host" split_words:"true"`
	Port                  int    `yaml:"port" split_words:"true"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds" split_words:"true"`
	MaxRequestSize        int64  `yaml:"max_request_size" split_words:"true"`
}

type LoggingConfig struct {
	Level   string `yaml:"level" split_words:"true"`
	File    string `yaml:"file" split_words:"true"`
	Console bool   `yaml:"console" split_words:"true"`
}

// Load reads a YAML config file at path, merges it with defaults and
// applies environment overrides. Returns an error if the file cannot be
// read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return finish(cfg)
}

// FromEnv returns the defaults with environment overrides applied.
func FromEnv() (*Config, error) {
	return finish(DefaultConfig())
}

func finish(cfg *Config) (*Config, error) {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("processing environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Retention.Days < 0 {
		return fmt.Errorf("retention.days must not be negative")
	}
	if c.Capture.MinContentLength < 0 {
		return fmt.Errorf("capture.min_content_length must not be negative")
	}
	if c.Capture.ThumbnailSize <= 0 {
		return fmt.Errorf("capture.thumbnail_size must be positive")
	}
	if c.Daemon.Port < 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("daemon.port %d out of range", c.Daemon.Port)
	}
	if c.Daemon.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("daemon.request_timeout_seconds must be positive")
	}
	switch strings.ToUpper(c.Storage.JournalMode) {
	case "", "WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY", "OFF":
	default:
		return fmt.Errorf("storage.sqlite_journal_mode %q not supported", c.Storage.JournalMode)
	}
	return nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// Dir returns the expanded storage directory.
func (s StorageConfig) Dir() (string, error) {
	return expandPath(s.Path)
}

// DBPath returns the full path of the SQLite database file.
func (s StorageConfig) DBPath() (string, error) {
	dir, err := s.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, s.SQLiteFile), nil
}

// Addr returns host:port for the HTTP listener.
func (d DaemonConfig) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// RequestTimeout is the per-message deadline.
func (d DaemonConfig) RequestTimeout() time.Duration {
	return time.Duration(d.RequestTimeoutSeconds) * time.Second
}

// Policy builds the auto-capture policy, adding the built-in denylist when
// enabled.
func (c CaptureConfig) Policy() capture.AutoCapturePolicy {
	deny := append([]string{}, c.DenylistDomains...)
	if c.UseDefaultDenylist {
		deny = append(deny, DefaultDenylistDomains()...)
	}
	return capture.AutoCapturePolicy{
		Enabled:          c.AutoCapture,
		MinContentLength: c.MinContentLength,
		ExcludedPrefixes: c.ExcludedPrefixes,
		DenylistDomains:  deny,
	}
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return finish(cfg)
	}

	return Load(path)
}
