package api

import (
	"time"

	"github.com/okian/bodytrack/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxBodyBytes caps request bodies and websocket messages.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithStreamIdleTimeout closes pose streams that stay silent this long.
func WithStreamIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.streamIdle = d
		}
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
