package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidPose marks a pose update that cannot become a Frame.
var ErrInvalidPose = errors.New("invalid pose update")

// JointInput carries one joint of a PoseUpdate, either as a full transform or
// as an explicit position/rotation pair. Transform wins when both are set.
type JointInput struct {
	Transform *Transform `json:"transform,omitempty"`
	Position  *Vec3      `json:"position,omitempty"`
	Rotation  *Quat      `json:"rotation,omitempty"`
}

// PoseUpdate is what a pose source delivers once per tracking frame.
type PoseUpdate struct {
	FrameID   string                `json:"frame_id,omitempty"`
	Timestamp float64               `json:"timestamp,omitempty"` // seconds; 0 = stamp on arrival
	Joints    map[string]JointInput `json:"joints"`
}

// ToFrame converts the update into a Frame. now stamps updates that arrive
// without a timestamp; every joint shares the update's timestamp.
func (u PoseUpdate) ToFrame(now float64) (Frame, error) {
	ts := u.Timestamp
	if ts == 0 {
		ts = now
	}
	if math.IsNaN(ts) || math.IsInf(ts, 0) || ts < 0 {
		return nil, fmt.Errorf("%w: timestamp %v", ErrInvalidPose, ts)
	}

	frame := make(Frame, len(u.Joints))
	for name, in := range u.Joints {
		if err := ValidateJointName(name); err != nil {
			return nil, err
		}
		var s JointSample
		switch {
		case in.Transform != nil:
			if !finite(in.Transform[:]...) {
				return nil, fmt.Errorf("%w: joint %s has a non-finite transform", ErrInvalidPose, name)
			}
			s = SampleFromTransform(name, *in.Transform, ts)
		case in.Position != nil:
			rot := IdentityQuat
			if in.Rotation != nil {
				rot = in.Rotation.Normalize()
			}
			p := *in.Position
			if !finite(p.X, p.Y, p.Z, rot.X, rot.Y, rot.Z, rot.W) {
				return nil, fmt.Errorf("%w: joint %s has non-finite values", ErrInvalidPose, name)
			}
			s = JointSample{Joint: name, Position: p, Rotation: rot, Timestamp: ts}
		default:
			return nil, fmt.Errorf("%w: joint %s has neither transform nor position", ErrInvalidPose, name)
		}
		frame[name] = s
	}
	return frame, nil
}

// ValidateJointName rejects names that would break the comma-separated,
// unquoted export rows.
func ValidateJointName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty joint name", ErrInvalidPose)
	}
	if strings.ContainsAny(name, ",\"\r\n") {
		return fmt.Errorf("%w: joint name %q contains a separator", ErrInvalidPose, name)
	}
	// A CSV writer quotes fields with surrounding space and the lone `\.`.
	if strings.TrimSpace(name) != name || name == `\.` {
		return fmt.Errorf("%w: joint name %q would be quoted", ErrInvalidPose, name)
	}
	return nil
}

func finite(vs ...float32) bool {
	for _, v := range vs {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
