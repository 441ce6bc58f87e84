// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers a YAML file and env vars on top.
// - External errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text, json or console.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// StorageRoot is the per-user document root. Empty resolves to $HOME/Documents.
	StorageRoot string `koanf:"storage_root"`

	// DataFolder is the subfolder of StorageRoot holding exported recordings.
	DataFolder string `koanf:"data_folder"`

	// FloatPrecision is the number of decimals written to CSV; -1 keeps the
	// shortest representation that round-trips.
	FloatPrecision int `koanf:"float_precision"`

	// MaxFrames caps the recording buffer; 0 means unbounded.
	MaxFrames int `koanf:"max_frames"`

	// DedupeSize bounds the set of remembered frame ids.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxBodyBytes caps a single pose update payload.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// StreamIdle closes pose websockets that stay silent this long, e.g. "60s".
	StreamIdle time.Duration `koanf:"stream_idle"`

	// ArchiveBucket enables mirroring saved recordings to a GCS bucket.
	ArchiveBucket string `koanf:"archive_bucket"`

	// ArchiveDir mirrors saved recordings into a local directory when no
	// bucket is set, e.g. a synced or network-mounted folder.
	ArchiveDir string `koanf:"archive_dir"`

	// ArchivePrefix is prepended to archived object names.
	ArchivePrefix string `koanf:"archive_prefix"`

	// ArchiveQueueSize bounds pending archive uploads.
	ArchiveQueueSize int `koanf:"archive_queue_size"`

	// ArchiveWorkers sets the number of upload workers.
	ArchiveWorkers int `koanf:"archive_workers"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		StorageRoot:      "",
		DataFolder:       "BodyTrackingData",
		FloatPrecision:   -1,
		MaxFrames:        0,
		DedupeSize:       10_000,
		MaxBodyBytes:     1 << 20,
		StreamIdle:       time.Minute,
		ArchivePrefix:    "recordings/",
		ArchiveQueueSize: 64,
		ArchiveWorkers:   2,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DataFolder) == "" || strings.ContainsAny(c.DataFolder, `/\`):
		return fmt.Errorf("%w: data_folder must be a single non-empty path element", ErrInvalidConfig)
	case c.FloatPrecision < -1:
		return fmt.Errorf("%w: float_precision must be -1 or greater", ErrInvalidConfig)
	case c.MaxFrames < 0:
		return fmt.Errorf("%w: max_frames must not be negative", ErrInvalidConfig)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	case c.StreamIdle <= 0:
		return fmt.Errorf("%w: stream_idle must be positive", ErrInvalidConfig)
	case c.ArchiveEnabled() && (c.ArchiveQueueSize <= 0 || c.ArchiveWorkers <= 0):
		return fmt.Errorf("%w: archive_queue_size and archive_workers must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "console":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// ArchiveEnabled reports whether saved recordings are mirrored anywhere.
func (c *Config) ArchiveEnabled() bool {
	return strings.TrimSpace(c.ArchiveBucket) != "" || strings.TrimSpace(c.ArchiveDir) != ""
}
