package archive

import (
	"github.com/okian/bodytrack/pkg/logger"
)

// Option applies a configuration option to the Uploader.
type Option func(*Uploader)

// WithPrefix sets the object key prefix.
func WithPrefix(prefix string) Option {
	return func(u *Uploader) {
		u.prefix = prefix
	}
}

// WithLogger sets a custom logger for the uploader.
func WithLogger(l logger.Logger) Option {
	return func(u *Uploader) {
		if l != nil {
			u.logger = l
		}
	}
}
