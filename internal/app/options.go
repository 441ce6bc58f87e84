package service

import (
	"time"

	"github.com/okian/bodytrack/internal/adapters/archive"
	"github.com/okian/bodytrack/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStorageRoot sets the document root. Empty keeps $HOME/Documents.
func WithStorageRoot(dir string) Option {
	return func(s *Service) {
		s.storageRoot = dir
	}
}

// WithDataFolder sets the recordings folder under the document root.
func WithDataFolder(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.dataFolder = name
		}
	}
}

// WithFloatPrecision sets the decimals written to CSV; -1 is shortest round-trip.
func WithFloatPrecision(p int) Option {
	return func(s *Service) {
		if p >= -1 {
			s.precision = p
		}
	}
}

// WithMaxFrames caps the recording buffer. 0 means unbounded.
func WithMaxFrames(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxFrames = n
		}
	}
}

// WithDedupeSize sets the size of the frame id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithArchiveSink enables mirroring saved recordings into sink.
func WithArchiveSink(sink archive.Sink) Option {
	return func(s *Service) {
		s.sink = sink
	}
}

// WithArchivePrefix sets the object key prefix for archived recordings.
func WithArchivePrefix(prefix string) Option {
	return func(s *Service) {
		s.archivePrefix = prefix
	}
}

// WithArchiveQueueSize sets the maximum number of pending archive jobs.
func WithArchiveQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithArchiveWorkers sets the number of archive workers.
func WithArchiveWorkers(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithClock replaces the clock used to stamp poses without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
