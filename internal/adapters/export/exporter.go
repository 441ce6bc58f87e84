// Package export writes recordings as CSV files under the user's document root.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

const (
	// DefaultFolder is created under the document root to hold recordings.
	DefaultFolder = "BodyTrackingData"
	// Ext is the recording file extension.
	Ext = ".csv"
	// LockName is the advisory lock file kept in the recordings folder.
	LockName = ".bodytrack.lock"

	lockRetry = 10 * time.Millisecond
)

// Exporter writes <root>/<folder>/<name>.csv. It is safe for concurrent use
// and coordinates with other processes through a lock file.
type Exporter struct {
	resolveRoot func() (string, error)
	folder      string
	precision   int
	logger      logger.Logger
}

// New constructs an Exporter rooted at $HOME/Documents unless overridden.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		resolveRoot: defaultRoot,
		folder:      DefaultFolder,
		precision:   -1,
		logger:      logger.Get(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Documents"), nil
}

// Dir resolves the recordings folder without creating it.
func (e *Exporter) Dir() (string, error) {
	root, err := e.resolveRoot()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}
	if root == "" {
		return "", ErrStorageUnavailable
	}
	return filepath.Join(root, e.folder), nil
}

// Precision reports the configured number of decimals.
func (e *Exporter) Precision() int { return e.precision }

// ValidateName reports whether name can be used as a file name as-is.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name: %w", ErrWrite)
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return fmt.Errorf("name %q contains a path separator: %w", name, ErrWrite)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("name %q would be a hidden file: %w", name, ErrWrite)
	}
	return nil
}

// Export writes frames to <name>.csv, replacing any earlier file of that
// name. The file appears atomically.
func (e *Exporter) Export(ctx context.Context, frames []model.Frame, name string) (model.Location, error) {
	start := time.Now()
	loc, err := e.export(ctx, frames, name)
	if err != nil {
		metrics.RecordExportError(Kind(err))
		e.logger.Warn(ctx, "export failed", logger.String("name", name), logger.Error(err))
		return model.Location{}, err
	}
	metrics.RecordExport(float64(time.Since(start).Microseconds())/1000, loc.Rows, loc.Bytes)
	e.logger.Debug(ctx, "export written",
		logger.String("path", loc.Path),
		logger.Int("rows", loc.Rows),
		logger.Duration("took", time.Since(start)),
	)
	return loc, nil
}

func (e *Exporter) export(ctx context.Context, frames []model.Frame, name string) (model.Location, error) {
	if err := ValidateName(name); err != nil {
		return model.Location{}, err
	}
	dir, err := e.Dir()
	if err != nil {
		return model.Location{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.Location{}, fmt.Errorf("%w: %w", ErrDirectoryCreation, err)
	}

	lock := flock.New(filepath.Join(dir, LockName))
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return model.Location{}, fmt.Errorf("lock %s: %w: %w", dir, ErrWrite, err)
	}
	if !locked {
		return model.Location{}, fmt.Errorf("lock %s not acquired: %w", dir, ErrWrite)
	}
	defer func() { _ = lock.Unlock() }()

	path := filepath.Join(dir, name+Ext)
	rows, n, err := e.writeAtomic(dir, path, frames)
	if err != nil {
		return model.Location{}, err
	}
	return model.Location{
		Name:   name,
		Path:   path,
		Frames: len(frames),
		Rows:   rows,
		Bytes:  n,
	}, nil
}

func (e *Exporter) writeAtomic(dir, path string, frames []model.Frame) (rows int, size int64, err error) {
	tmp, err := os.CreateTemp(dir, ".export-*.tmp")
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	cw := &countingWriter{w: tmp}
	if rows, err = Encode(cw, frames, e.precision); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err = tmp.Sync(); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err = tmp.Close(); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return rows, cw.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
