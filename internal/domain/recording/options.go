package recording

import (
	"github.com/okian/bodytrack/pkg/logger"
)

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithLogger sets a custom logger for the controller.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxFrames caps the buffer; frames beyond n are dropped. n <= 0 means unbounded.
func WithMaxFrames(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxFrames = n
		}
	}
}

// WithTransitionHook registers fn to run after every state change, under the
// controller lock. fn must not call back into the controller.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.hooks = append(c.hooks, fn)
		}
	}
}
