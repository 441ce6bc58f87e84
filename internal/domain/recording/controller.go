// Package recording owns the record/stop/save lifecycle and the frame buffer
// captured while a session is live.
package recording

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/logger"
	"github.com/okian/bodytrack/pkg/metrics"
)

// Exporter persists a finished recording under a name.
type Exporter interface {
	Export(ctx context.Context, frames []model.Frame, name string) (model.Location, error)
}

// Controller moves between Idle, Recording and AwaitingSave and buffers
// frames while Recording. All methods are safe for concurrent use; they are
// serialized so a save never overlaps an append.
type Controller struct {
	mu sync.Mutex

	state    State
	frames   []model.Frame
	rows     int
	exporter Exporter

	maxFrames int
	hooks     []func(from, to State)

	logger logger.Logger
}

// New constructs a Controller in the Idle state.
func New(exporter Exporter, opts ...Option) *Controller {
	c := &Controller{
		state:    Idle,
		exporter: exporter,
		logger:   logger.Get(),
	}
	for _, opt := range opts {
		opt(c)
	}
	metrics.UpdateSessionState(int(c.state), c.state.String())
	return c
}

// Start clears the buffer and begins recording. Only valid from Idle.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Idle {
		return c.invalid("start")
	}
	c.frames = nil
	c.rows = 0
	metrics.UpdateBufferFrames(0)
	c.transition(ctx, Recording)
	return nil
}

// Stop freezes the buffer and waits for a name. Only valid from Recording.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Recording {
		return c.invalid("stop")
	}
	c.transition(ctx, AwaitingSave)
	c.logger.Info(ctx, "recording stopped",
		logger.Int("frames", len(c.frames)),
		logger.Int("rows", c.rows),
	)
	return nil
}

// OnPose appends f as one frame when Recording and reports whether it was
// kept. In any other state the frame is dropped. Empty frames are kept.
func (c *Controller) OnPose(ctx context.Context, f model.Frame) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Recording {
		metrics.RecordFrameDropped("not_recording")
		return false
	}
	if c.maxFrames > 0 && len(c.frames) >= c.maxFrames {
		metrics.RecordFrameDropped("buffer_full")
		c.logger.Debug(ctx, "frame dropped, buffer full", logger.Int("maxFrames", c.maxFrames))
		return false
	}
	c.frames = append(c.frames, f.Clone())
	c.rows += len(f)
	metrics.RecordFrameCaptured(len(f))
	metrics.UpdateBufferFrames(len(c.frames))
	return true
}

// Save exports the frozen buffer under the trimmed name and returns to Idle.
// A blank name fails with ErrEmptyName. When the export fails the error is
// returned, the buffer is kept and the controller stays in AwaitingSave.
func (c *Controller) Save(ctx context.Context, name string) (model.Location, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != AwaitingSave {
		return model.Location{}, c.invalid("save")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Location{}, ErrEmptyName
	}
	if c.exporter == nil {
		return model.Location{}, ErrNoExporter
	}

	loc, err := c.exporter.Export(ctx, c.frames, name)
	if err != nil {
		c.logger.Error(ctx, "export failed, recording kept",
			logger.String("name", name),
			logger.Int("frames", len(c.frames)),
			logger.Error(err),
		)
		return model.Location{}, fmt.Errorf("save %q: %w", name, err)
	}

	c.logger.Info(ctx, "recording saved",
		logger.String("name", loc.Name),
		logger.String("path", loc.Path),
		logger.Int("rows", loc.Rows),
	)
	c.frames = nil
	c.rows = 0
	metrics.UpdateBufferFrames(0)
	c.transition(ctx, Idle)
	return loc, nil
}

// Discard drops the frozen buffer without exporting. Only valid from AwaitingSave.
func (c *Controller) Discard(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != AwaitingSave {
		return c.invalid("discard")
	}
	c.logger.Info(ctx, "recording discarded", logger.Int("frames", len(c.frames)))
	c.frames = nil
	c.rows = 0
	metrics.UpdateBufferFrames(0)
	c.transition(ctx, Idle)
	return nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Len returns the number of buffered frames.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// Rows returns the number of CSV rows the buffer would export to.
func (c *Controller) Rows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

// Snapshot returns a copy of the buffer.
func (c *Controller) Snapshot() []model.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Frame, len(c.frames))
	for i, f := range c.frames {
		out[i] = f.Clone()
	}
	return out
}

func (c *Controller) invalid(op string) error {
	return fmt.Errorf("%s from %s: %w", op, c.state, ErrInvalidTransition)
}

// transition must be called with mu held.
func (c *Controller) transition(ctx context.Context, to State) {
	from := c.state
	c.state = to
	metrics.UpdateSessionState(int(to), to.String())
	c.logger.Debug(ctx, "state changed",
		logger.String("from", from.String()),
		logger.String("to", to.String()),
	)
	for _, h := range c.hooks {
		h(from, to)
	}
}
