package posegen

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/okian/bodytrack/internal/adapters/export"
	"github.com/okian/bodytrack/internal/client"
	"github.com/okian/bodytrack/internal/domain/model"
)

// positionTolerance absorbs float32 text round trips.
const positionTolerance = 1e-4

// verify downloads the saved recording and compares it with what was sent.
func verify(ctx context.Context, c *client.Client, name string, sent []model.PoseUpdate, joints int, stats *Stats) error {
	data, err := c.Download(ctx, name)
	if err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	frames, err := export.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return compare(frames, sent, joints, stats)
}

func compare(frames []model.Frame, sent []model.PoseUpdate, joints int, stats *Stats) error {
	if len(frames) != stats.FramesAccepted {
		return fmt.Errorf("%w: %d frames saved, %d accepted", ErrVerification, len(frames), stats.FramesAccepted)
	}
	if want := len(frames) * joints; stats.RowsWritten != want {
		return fmt.Errorf("%w: %d rows saved, want %d", ErrVerification, stats.RowsWritten, want)
	}
	for i, f := range frames {
		if i >= len(sent) {
			break
		}
		if len(f) != joints {
			return fmt.Errorf("%w: frame %d has %d joints, want %d", ErrVerification, i, len(f), joints)
		}
		if ts := f.Timestamp(); math.Abs(ts-sent[i].Timestamp) > 1e-6 {
			return fmt.Errorf("%w: frame %d timestamp %v, sent %v", ErrVerification, i, ts, sent[i].Timestamp)
		}
		for name, in := range sent[i].Joints {
			got, ok := f[name]
			if !ok {
				return fmt.Errorf("%w: frame %d lost joint %s", ErrVerification, i, name)
			}
			want := in.Transform.Translation()
			if !near(got.Position, want) {
				return fmt.Errorf("%w: frame %d joint %s at %+v, sent %+v", ErrVerification, i, name, got.Position, want)
			}
		}
	}
	return nil
}

func near(a, b model.Vec3) bool {
	return math.Abs(float64(a.X-b.X)) <= positionTolerance &&
		math.Abs(float64(a.Y-b.Y)) <= positionTolerance &&
		math.Abs(float64(a.Z-b.Z)) <= positionTolerance
}
