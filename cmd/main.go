// Command bodytrack runs the body tracking recorder service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/bodytrack/internal/adapters/archive"
	"github.com/okian/bodytrack/internal/adapters/http/api"
	"github.com/okian/bodytrack/internal/adapters/http/site"
	"github.com/okian/bodytrack/internal/adapters/http/swagger"
	service "github.com/okian/bodytrack/internal/app"
	"github.com/okian/bodytrack/internal/config"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(context.Background())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, err := buildSink(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}

	svc := newService(cfg, sink, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for a shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	// An unsaved take is lost here; there is nowhere to ask for its name.
	if st, err := svc.Session(shutdownCtx); err == nil && st.Frames > 0 && st.State != "idle" {
		log.Warn(ctx, "dropping unsaved recording", logger.String("state", st.State), logger.Int("frames", st.Frames))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// buildSink picks the archive destination: a GCS bucket when configured,
// else a local mirror directory, else none.
func buildSink(ctx context.Context, cfg *config.Config) (archive.Sink, error) {
	switch {
	case cfg.ArchiveBucket != "":
		sink, err := archive.NewGCSSink(ctx, cfg.ArchiveBucket)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case cfg.ArchiveDir != "":
		return archive.NewDirSink(cfg.ArchiveDir), nil
	default:
		return nil, nil
	}
}

func newService(cfg *config.Config, sink archive.Sink, log logger.Logger) *service.Service {
	opts := []service.Option{
		service.WithLogger(log),
		service.WithStorageRoot(cfg.StorageRoot),
		service.WithDataFolder(cfg.DataFolder),
		service.WithFloatPrecision(cfg.FloatPrecision),
		service.WithMaxFrames(cfg.MaxFrames),
		service.WithDedupeSize(cfg.DedupeSize),
	}
	if sink != nil {
		opts = append(opts,
			service.WithArchiveSink(sink),
			service.WithArchivePrefix(cfg.ArchivePrefix),
			service.WithArchiveQueueSize(cfg.ArchiveQueueSize),
			service.WithArchiveWorkers(cfg.ArchiveWorkers),
		)
	}
	return service.New(opts...)
}

// newMux wires the API, the API reference and the operator console.
func newMux(ctx context.Context, cfg *config.Config, svc *service.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	api.NewServer(svc, svc,
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithStreamIdleTimeout(cfg.StreamIdle),
		api.WithLogger(log.Named("api")),
	).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater refreshes process metrics until ctx ends.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	updateSystemMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
