package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/okian/bodytrack/internal/adapters/export"
	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

const lockRetry = 10 * time.Millisecond

// FileStore reads the folder an export.Exporter writes to. Deletes take the
// same lock file as exports.
type FileStore struct {
	dir                   func() (string, error)
	metricsUpdateInterval time.Duration
	logger                logger.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

// NewFileStore constructs a store over the folder returned by dir, which is
// resolved on every call so a late-mounted document root is picked up.
func NewFileStore(ctx context.Context, dir func() (string, error), opts ...Option) *FileStore {
	s := &FileStore{
		dir:                   dir,
		metricsUpdateInterval: 5 * time.Second,
		logger:                logger.Get(),
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater.
func (s *FileStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *FileStore) folder() (string, error) {
	d, err := s.dir()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return d, nil
}

func (s *FileStore) path(name string) (string, error) {
	if err := export.ValidateName(name); err != nil {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	d, err := s.folder()
	if err != nil {
		return "", err
	}
	return filepath.Join(d, name+export.Ext), nil
}

// List implements Store.List. A missing folder is an empty catalog.
func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	d, err := s.folder()
	if err != nil {
		return nil, err
	}
	items, err := os.ReadDir(d)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	out := make([]Entry, 0, len(items))
	for _, it := range items {
		name := it.Name()
		if it.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, export.Ext) {
			continue
		}
		info, err := it.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out = append(out, Entry{
			Name:     strings.TrimSuffix(name, export.Ext),
			Path:     filepath.Join(d, name),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Open implements Store.Open.
func (s *FileStore) Open(ctx context.Context, name string) (*os.File, Entry, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, Entry{}, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, Entry{}, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, Entry{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, Entry{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return f, Entry{Name: name, Path: p, Size: info.Size(), Modified: info.ModTime()}, nil
}

// Load implements Store.Load.
func (s *FileStore) Load(ctx context.Context, name string) ([]model.Frame, error) {
	f, _, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return export.Decode(f)
}

// Delete implements Store.Delete.
func (s *FileStore) Delete(ctx context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}

	lock := flock.New(filepath.Join(filepath.Dir(p), export.LockName))
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !locked {
		return fmt.Errorf("lock not acquired: %w", ErrUnavailable)
	}
	defer func() { _ = lock.Unlock() }()

	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%q: %w", name, ErrNotFound)
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.logger.Info(ctx, "recording deleted", logger.String("name", name))
	s.updateMetrics(ctx)
	return nil
}

// Count implements Store.Count. Storage errors count as zero.
func (s *FileStore) Count(ctx context.Context) int {
	entries, err := s.List(ctx)
	if err != nil {
		return 0
	}
	return len(entries)
}

func (s *FileStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		s.updateMetrics(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics(ctx)
			}
		}
	}()
}

func (s *FileStore) updateMetrics(ctx context.Context) {
	metrics.UpdateRecordingsStored(s.Count(ctx))
}
