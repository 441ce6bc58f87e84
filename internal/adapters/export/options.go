package export

import (
	"github.com/okian/bodytrack/pkg/logger"
)

// Option applies a configuration option to the Exporter.
type Option func(*Exporter)

// WithRoot fixes the document root. Empty keeps the default of $HOME/Documents.
func WithRoot(dir string) Option {
	return func(e *Exporter) {
		if dir != "" {
			e.resolveRoot = func() (string, error) { return dir, nil }
		}
	}
}

// WithRootResolver sets how the document root is found at export time.
func WithRootResolver(fn func() (string, error)) Option {
	return func(e *Exporter) {
		if fn != nil {
			e.resolveRoot = fn
		}
	}
}

// WithFolder sets the folder under the document root. Defaults to BodyTrackingData.
func WithFolder(name string) Option {
	return func(e *Exporter) {
		if name != "" {
			e.folder = name
		}
	}
}

// WithPrecision sets the number of decimals written; -1 writes the shortest
// representation that round-trips.
func WithPrecision(p int) Option {
	return func(e *Exporter) {
		if p >= -1 {
			e.precision = p
		}
	}
}

// WithLogger sets a custom logger for the exporter.
func WithLogger(l logger.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}
