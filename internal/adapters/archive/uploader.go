package archive

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

// Uploader copies saved recordings into a Sink.
type Uploader struct {
	sink   Sink
	prefix string
	logger logger.Logger
}

// NewUploader constructs an Uploader. A nil sink drops everything.
func NewUploader(sink Sink, opts ...Option) *Uploader {
	if sink == nil {
		sink = NoopSink{}
	}
	u := &Uploader{
		sink:   sink,
		logger: logger.Get().Named("archive"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Archive uploads the file named by job and returns the object URI.
func (u *Uploader) Archive(ctx context.Context, job model.ArchiveJob) (string, error) {
	start := time.Now()
	uri, err := u.archive(ctx, job)
	ms := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		metrics.RecordArchiveJob("failed", ms)
		return "", err
	}
	metrics.RecordArchiveJob("uploaded", ms)
	u.logger.Info(ctx, "recording archived",
		logger.String("job", job.ID),
		logger.String("name", job.Name),
		logger.String("uri", uri),
		logger.Int("rows", job.Rows),
	)
	return uri, nil
}

func (u *Uploader) archive(ctx context.Context, job model.ArchiveJob) (string, error) {
	f, err := os.Open(job.Path)
	if err != nil {
		return "", fmt.Errorf("job %s: %w: %w", job.ID, ErrNoSource, err)
	}
	defer f.Close()

	uri, err := u.sink.Put(ctx, ObjectKey(u.prefix, job.Name+".csv"), f)
	if err != nil {
		return "", fmt.Errorf("job %s: %w: %w", job.ID, ErrUpload, err)
	}
	return uri, nil
}

// Close releases the sink.
func (u *Uploader) Close() error {
	return u.sink.Close()
}
