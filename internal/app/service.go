// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/okian/bodytrack/internal/adapters/archive"
	"github.com/okian/bodytrack/internal/adapters/export"
	eventqueue "github.com/okian/bodytrack/internal/adapters/mq/queue"
	workerpool "github.com/okian/bodytrack/internal/adapters/mq/worker"
	"github.com/okian/bodytrack/internal/adapters/repository"
	"github.com/okian/bodytrack/internal/domain/analysis"
	"github.com/okian/bodytrack/internal/domain/dedupe"
	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/internal/domain/recording"
	"github.com/okian/bodytrack/internal/domain/types"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

// Service implements the API dependencies for the body tracking recorder.
type Service struct {
	mu sync.RWMutex
	// poseMu orders frame id checks against StartRecording.
	poseMu sync.Mutex

	// Core components
	controller *recording.Controller
	exporter   *export.Exporter
	catalog    *repository.FileStore
	deduper    dedupe.Deduper

	// Archive pipeline, nil when no sink is configured
	sink       archive.Sink
	uploader   *archive.Uploader
	jobs       *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool

	// Configuration
	storageRoot   string
	dataFolder    string
	precision     int
	maxFrames     int
	dedupeSize    int
	archivePrefix string
	queueSize     int
	workerCount   int
	now           func() time.Time

	// State
	started     bool
	cancel      context.CancelFunc
	archived    atomic.Int64
	archiveFail atomic.Int64
	lastArchive atomic.Value // string

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dataFolder:    export.DefaultFolder,
		precision:     -1,
		dedupeSize:    10_000,
		archivePrefix: "recordings/",
		queueSize:     64,
		workerCount:   2,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger.Info(ctx, "starting recorder service...")

	// Components outlive the Start call; they stop on Stop, not on ctx.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.exporter = export.New(
		export.WithRoot(s.storageRoot),
		export.WithFolder(s.dataFolder),
		export.WithPrecision(s.precision),
		export.WithLogger(s.logger.Named("export")),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.controller = recording.New(s.exporter,
		recording.WithMaxFrames(s.maxFrames),
		recording.WithLogger(s.logger.Named("recording")),
		recording.WithTransitionHook(s.onTransition),
	)
	s.catalog = repository.NewFileStore(runCtx, s.exporter.Dir,
		repository.WithLogger(s.logger.Named("catalog")),
	)

	if s.sink != nil {
		s.uploader = archive.NewUploader(s.sink,
			archive.WithPrefix(s.archivePrefix),
			archive.WithLogger(s.logger.Named("archive")),
		)
		s.jobs = eventqueue.NewInMemoryQueue(
			eventqueue.WithCapacity(s.queueSize),
			eventqueue.WithBufferSize(s.queueSize),
		)
		s.workerPool = workerpool.NewPool(s.workerCount, s.jobs, s.uploader,
			workerpool.WithResultHandler(s.onArchived),
		)
		s.workerPool.Start(runCtx)
	}

	dir, err := s.exporter.Dir()
	if err != nil {
		// The root may appear later; exports report the error then.
		s.logger.Warn(ctx, "document root unavailable", logger.Error(err))
	}

	s.started = true
	s.logger.Info(ctx, "recorder service started",
		logger.String("dir", dir),
		logger.Int("precision", s.precision),
		logger.Int("maxFrames", s.maxFrames),
		logger.Bool("archive", s.sink != nil),
	)

	return nil
}

// Stop gracefully shuts down the service, draining pending archive jobs.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping recorder service...")

	var result *multierror.Error
	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("archive workers: %w", err))
		}
	}
	if s.uploader != nil {
		if err := s.uploader.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("archive sink: %w", err))
		}
	}
	if s.catalog != nil {
		if err := s.catalog.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("catalog: %w", err))
		}
	}
	if s.cancel != nil {
		s.cancel()
	}

	s.started = false
	s.logger.Info(ctx, "recorder service stopped")
	return result.ErrorOrNil()
}

func (s *Service) components() (*recording.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.controller, nil
}

// Session returns the recorder state and the controls an operator may use.
func (s *Service) Session(ctx context.Context) (types.SessionStatus, error) {
	c, err := s.components()
	if err != nil {
		return types.SessionStatus{}, err
	}
	return status(c), nil
}

func status(c *recording.Controller) types.SessionStatus {
	state := c.State()
	controls := recording.Controls(state)
	names := make([]string, len(controls))
	for i, ctl := range controls {
		names[i] = string(ctl)
	}
	return types.SessionStatus{
		State:    state.String(),
		Frames:   c.Len(),
		Rows:     c.Rows(),
		Controls: names,
	}
}

// StartRecording clears the buffer and the frame id cache and begins recording.
func (s *Service) StartRecording(ctx context.Context) (types.SessionStatus, error) {
	c, err := s.components()
	if err != nil {
		return types.SessionStatus{}, err
	}
	s.poseMu.Lock()
	err = c.Start(ctx)
	s.poseMu.Unlock()
	return status(c), err
}

// onTransition runs under the controller lock.
func (s *Service) onTransition(_, to recording.State) {
	if to == recording.Recording {
		s.deduper.Reset(context.Background())
	}
}

// StopRecording freezes the buffer.
func (s *Service) StopRecording(ctx context.Context) (types.SessionStatus, error) {
	c, err := s.components()
	if err != nil {
		return types.SessionStatus{}, err
	}
	err = c.Stop(ctx)
	return status(c), err
}

// DiscardRecording drops the frozen buffer.
func (s *Service) DiscardRecording(ctx context.Context) (types.SessionStatus, error) {
	c, err := s.components()
	if err != nil {
		return types.SessionStatus{}, err
	}
	err = c.Discard(ctx)
	return status(c), err
}

// SaveRecording exports the frozen buffer under name and queues it for
// archiving. A full archive queue does not fail the save.
func (s *Service) SaveRecording(ctx context.Context, name string) (types.SaveResult, error) {
	c, err := s.components()
	if err != nil {
		return types.SaveResult{}, err
	}
	loc, err := c.Save(ctx, name)
	if err != nil {
		return types.SaveResult{}, err
	}

	res := types.SaveResult{
		Name:   loc.Name,
		Path:   loc.Path,
		Frames: loc.Frames,
		Rows:   loc.Rows,
		Bytes:  loc.Bytes,
	}
	if id, ok := s.enqueueArchive(ctx, loc); ok {
		res.ArchiveID = id
	}
	s.catalogChanged(ctx)
	return res, nil
}

func (s *Service) enqueueArchive(ctx context.Context, loc model.Location) (string, bool) {
	s.mu.RLock()
	jobs := s.jobs
	s.mu.RUnlock()
	if jobs == nil {
		return "", false
	}

	job := model.ArchiveJob{
		ID:      uuid.NewString(),
		Name:    loc.Name,
		Path:    loc.Path,
		Rows:    loc.Rows,
		SavedAt: s.now(),
	}
	if !jobs.Enqueue(ctx, job) {
		s.logger.Warn(ctx, "archive queue full, recording not mirrored",
			logger.String("name", loc.Name),
			logger.Int("queued", jobs.Len(ctx)),
		)
		return "", false
	}
	return job.ID, true
}

func (s *Service) onArchived(job model.ArchiveJob, uri string, err error) {
	if err != nil {
		s.archiveFail.Add(1)
		return
	}
	s.archived.Add(1)
	s.lastArchive.Store(uri)
}

func (s *Service) catalogChanged(ctx context.Context) {
	s.mu.RLock()
	catalog := s.catalog
	s.mu.RUnlock()
	if catalog != nil {
		metrics.UpdateRecordingsStored(catalog.Count(ctx))
	}
}

// SubmitPose converts a pose update into a frame and hands it to the
// recorder. Updates carrying an already seen frame id are acknowledged as
// duplicates without a second frame.
func (s *Service) SubmitPose(ctx context.Context, u model.PoseUpdate) (types.PoseAck, error) {
	c, err := s.components()
	if err != nil {
		return types.PoseAck{}, err
	}

	now := s.now()
	frame, err := u.ToFrame(float64(now.UnixNano()) / 1e9)
	if err != nil {
		return types.PoseAck{}, err
	}

	s.poseMu.Lock()
	if u.FrameID != "" && s.deduper.SeenAndRecord(ctx, u.FrameID) {
		s.poseMu.Unlock()
		metrics.RecordFrameDuplicate()
		return types.PoseAck{Duplicate: true, State: c.State().String(), Frames: c.Len()}, nil
	}
	kept := c.OnPose(ctx, frame)
	if !kept && u.FrameID != "" {
		// Not recorded, so a resend after Start must still count.
		s.deduper.Unrecord(ctx, u.FrameID)
	}
	s.poseMu.Unlock()
	return types.PoseAck{Accepted: kept, State: c.State().String(), Frames: c.Len()}, nil
}

func (s *Service) store() (*repository.FileStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.catalog, nil
}

// ListRecordings returns saved recordings ordered by name.
func (s *Service) ListRecordings(ctx context.Context) ([]types.RecordingInfo, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}
	entries, err := st.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.RecordingInfo, len(entries))
	for i, e := range entries {
		out[i] = types.RecordingInfo{Name: e.Name, Size: e.Size, Modified: e.Modified}
	}
	return out, nil
}

// OpenRecording returns the CSV file of a saved recording. The caller closes it.
func (s *Service) OpenRecording(ctx context.Context, name string) (*os.File, types.RecordingInfo, error) {
	st, err := s.store()
	if err != nil {
		return nil, types.RecordingInfo{}, err
	}
	f, e, err := st.Open(ctx, name)
	if err != nil {
		return nil, types.RecordingInfo{}, err
	}
	return f, types.RecordingInfo{Name: e.Name, Size: e.Size, Modified: e.Modified}, nil
}

// SummarizeRecording loads a saved recording and derives its playback summary.
func (s *Service) SummarizeRecording(ctx context.Context, name string) (analysis.Summary, error) {
	st, err := s.store()
	if err != nil {
		return analysis.Summary{}, err
	}
	frames, err := st.Load(ctx, name)
	if err != nil {
		return analysis.Summary{}, err
	}
	return analysis.Summarize(frames), nil
}

// DeleteRecording removes a saved recording.
func (s *Service) DeleteRecording(ctx context.Context, name string) error {
	st, err := s.store()
	if err != nil {
		return err
	}
	return st.Delete(ctx, name)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"precision":    s.precision,
		"maxFrames":    s.maxFrames,
		"dedupeSize":   s.dedupeSize,
		"archive":      s.sink != nil,
		"archived":     s.archived.Load(),
		"archiveFails": s.archiveFail.Load(),
	}
	if uri, ok := s.lastArchive.Load().(string); ok {
		stats["lastArchive"] = uri
	}

	if s.started {
		ctx := context.Background()
		stats["state"] = s.controller.State().String()
		stats["frames"] = s.controller.Len()
		stats["rows"] = s.controller.Rows()
		stats["seenFrameIds"] = s.deduper.Size()
		stats["recordings"] = s.catalog.Count(ctx)
		if dir, err := s.exporter.Dir(); err == nil {
			stats["dir"] = dir
		}
		if s.jobs != nil {
			queueLen := s.jobs.Len(ctx)
			stats["archiveQueue"] = queueLen
			stats["archiveWorkers"] = s.workerPool.Size()
			metrics.UpdateQueueSize(queueLen)
		}
	}

	return stats
}
