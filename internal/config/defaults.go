package config

import (
	"github.com/runnerr0/memorylane/internal/capture"
	"github.com/runnerr0/memorylane/internal/memory"
)

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Retention: RetentionConfig{
			Days: 0,
		},
		Capture: CaptureConfig{
			AutoCapture:        true,
			MinContentLength:   capture.DefaultMinContentLength,
			ThumbnailSize:      memory.DefaultThumbnailSize,
			ExcludedPrefixes:   append([]string{}, capture.DefaultExcludedPrefixes...),
			DenylistDomains:    []string{},
			UseDefaultDenylist: true,
		},
		Storage: StorageConfig{
			Path:        "~/.config/memorylane",
			SQLiteFile:  "memorylane.db",
			JournalMode: "WAL",
		},
		Daemon: DaemonConfig{
			Host:                  "127.0.0.1",
			Port:                  8731,
			RequestTimeoutSeconds: 10,
			MaxRequestSize:        16 << 20,
		},
		Logging: LoggingConfig{
			Level:   "info",
			File:    "memorylane.log",
			Console: false,
		},
	}
}
