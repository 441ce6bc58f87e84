package posegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/bodytrack/internal/client"
	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/logger"
)

const directoryPermission = 0o750

// ErrVerification marks a saved recording that does not match what was sent.
var ErrVerification = errors.New("recording verification failed")

// Run records a synthetic walk on the recorder at cfg.BaseURL, saves it and
// checks the saved CSV against the generated poses.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("replay")

	if cfg.Name == "" {
		cfg.Name = "replay_" + time.Now().Format("20060102_150405")
	}
	log.Info(ctx, "starting pose replay",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("frames", cfg.Frames),
		logger.Float64("rate", cfg.Rate),
		logger.String("name", cfg.Name),
		logger.Bool("realtime", cfg.Realtime))

	c := client.New(cfg.BaseURL, client.WithTimeout(cfg.Timeout))
	if err := c.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	if err := reset(ctx, c, log); err != nil {
		return stats, err
	}

	gen := New(WithRate(cfg.Rate))
	poses := make([]model.PoseUpdate, cfg.Frames)
	for i := range poses {
		poses[i] = gen.Frame(i)
	}
	stats.FramesGenerated = len(poses)

	if _, err := c.Start(ctx); err != nil {
		return stats, fmt.Errorf("start recording: %w", err)
	}
	if err := stream(ctx, c, cfg, gen.Rate(), poses, stats, log); err != nil {
		_, _ = c.Stop(ctx)
		_, _ = c.Discard(ctx)
		return stats, err
	}
	if _, err := c.Stop(ctx); err != nil {
		return stats, fmt.Errorf("stop recording: %w", err)
	}

	res, err := c.Save(ctx, cfg.Name)
	if err != nil {
		return stats, fmt.Errorf("save recording: %w", err)
	}
	stats.RowsWritten = res.Rows
	stats.BytesWritten = res.Bytes
	stats.Path = res.Path
	log.Info(ctx, "recording saved", logger.String("path", res.Path), logger.Int("rows", res.Rows))

	if err := verify(ctx, c, cfg.Name, poses, gen.Joints(), stats); err != nil {
		return stats, err
	}
	if !cfg.Keep {
		if err := c.Delete(ctx, cfg.Name); err != nil {
			log.Warn(ctx, "failed to delete verified recording", logger.Error(err))
		}
	}

	if cfg.OutputFile != "" {
		if err := savePoses(cfg.OutputFile, poses); err != nil {
			log.Warn(ctx, "failed to save poses to file", logger.Error(err))
		} else {
			log.Info(ctx, "poses saved to file", logger.String("filename", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

// reset brings the recorder back to idle, dropping any unsaved take.
func reset(ctx context.Context, c *client.Client, log logger.Logger) error {
	st, err := c.Session(ctx)
	if err != nil {
		return fmt.Errorf("read session: %w", err)
	}
	switch st.State {
	case "recording":
		if _, err := c.Stop(ctx); err != nil {
			return fmt.Errorf("stop stale recording: %w", err)
		}
		fallthrough
	case "awaiting_save":
		log.Warn(ctx, "discarding unsaved recording", logger.Int("frames", st.Frames))
		if _, err := c.Discard(ctx); err != nil {
			return fmt.Errorf("discard stale recording: %w", err)
		}
	}
	return nil
}

func stream(ctx context.Context, c *client.Client, cfg *Config, rate float64,
	poses []model.PoseUpdate, stats *Stats, log logger.Logger,
) error {
	s, err := c.OpenStream(ctx)
	if err != nil {
		return fmt.Errorf("open pose stream: %w", err)
	}
	defer s.Close()

	var tick <-chan time.Time
	if cfg.Realtime {
		t := time.NewTicker(time.Duration(float64(time.Second) / rate))
		defer t.Stop()
		tick = t.C
	}

	send := func(u model.PoseUpdate) error {
		stats.FramesSent++
		ack, err := s.Send(u)
		if err != nil {
			stats.Failed++
			return fmt.Errorf("send frame %s: %w", u.FrameID, err)
		}
		switch {
		case ack.Duplicate:
			stats.Duplicates++
		case ack.Accepted:
			stats.FramesAccepted++
		default:
			stats.Failed++
		}
		if cfg.Verbose {
			log.Debug(ctx, "pose acknowledged",
				logger.String("frameID", u.FrameID),
				logger.Bool("accepted", ack.Accepted),
				logger.Int("frames", ack.Frames))
		}
		return nil
	}

	for i, u := range poses {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if err := send(u); err != nil {
			return err
		}
		if cfg.DuplicateEvery > 0 && (i+1)%cfg.DuplicateEvery == 0 {
			if err := send(u); err != nil {
				return err
			}
		}
	}
	return nil
}

func savePoses(filename string, poses []model.PoseUpdate) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(poses, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal poses: %w", err)
	}
	return os.WriteFile(filename, data, 0o600)
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var fps float64
	if stats.Duration > 0 {
		fps = float64(stats.FramesSent) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("framesGenerated", stats.FramesGenerated),
		logger.Int("framesSent", stats.FramesSent),
		logger.Int("framesAccepted", stats.FramesAccepted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("failed", stats.Failed),
		logger.Int("rowsWritten", stats.RowsWritten),
		logger.Any("bytesWritten", stats.BytesWritten),
		logger.Duration("duration", stats.Duration),
		logger.Float64("framesPerSecond", fps))
}
