package posegen

import "github.com/okian/bodytrack/internal/domain/model"

// Option configures a Generator.
type Option func(*Generator)

// WithSkeleton replaces the default body skeleton. Joints must be ordered
// parents first.
func WithSkeleton(joints []model.SkeletonJoint) Option {
	return func(g *Generator) {
		if len(joints) > 0 {
			g.skeleton = joints
		}
	}
}

// WithRate sets the frame rate in frames per second.
func WithRate(fps float64) Option {
	return func(g *Generator) {
		if fps > 0 {
			g.rate = fps
		}
	}
}

// WithStartTime sets the timestamp of frame 0, in seconds.
func WithStartTime(ts float64) Option {
	return func(g *Generator) {
		if ts > 0 {
			g.start = ts
		}
	}
}

// WithSpeed sets the forward walking speed in meters per second.
func WithSpeed(mps float64) Option {
	return func(g *Generator) {
		if mps >= 0 {
			g.speed = mps
		}
	}
}

// WithIDs replaces the frame id source. An empty id disables deduplication
// for that frame.
func WithIDs(next func(i int) string) Option {
	return func(g *Generator) {
		if next != nil {
			g.id = next
		}
	}
}
