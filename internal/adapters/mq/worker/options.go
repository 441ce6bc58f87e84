package worker

import (
	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/logger"
)

// ResultHandler observes each finished job. err is nil on success.
type ResultHandler func(job model.ArchiveJob, uri string, err error)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithResultHandler registers fn to run after every job.
func WithResultHandler(fn ResultHandler) Option {
	return func(w *InMemoryWorker) {
		w.onResult = fn
	}
}
