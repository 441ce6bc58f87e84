// Package model contains domain models passed between layers.
package model

import (
	"math"
	"sort"
)

// Vec3 is a model-space position in meters.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Quat is a rotation quaternion stored as (x, y, z, w).
type Quat struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

// IdentityQuat is the no-rotation quaternion.
var IdentityQuat = Quat{W: 1}

// Normalize returns q scaled to unit length. A zero quaternion becomes identity.
func (q Quat) Normalize() Quat {
	n := math.Sqrt(float64(q.X)*float64(q.X) + float64(q.Y)*float64(q.Y) +
		float64(q.Z)*float64(q.Z) + float64(q.W)*float64(q.W))
	if n == 0 || math.IsNaN(n) {
		return IdentityQuat
	}
	return Quat{
		X: float32(float64(q.X) / n),
		Y: float32(float64(q.Y) / n),
		Z: float32(float64(q.Z) / n),
		W: float32(float64(q.W) / n),
	}
}

// Transform is a 4x4 affine matrix in column-major order: element (row r,
// column c) lives at index c*4+r. Column 3 carries the translation.
type Transform [16]float32

// IdentityTransform has no rotation and no translation.
var IdentityTransform = Transform{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

func (t Transform) at(row, col int) float64 { return float64(t[col*4+row]) }

// Translation returns the xyz of column 3.
func (t Transform) Translation() Vec3 {
	return Vec3{X: t[12], Y: t[13], Z: t[14]}
}

// Rotation extracts the unit quaternion of the upper 3x3 block. Column scale
// is divided out first so scaled joints still yield a pure rotation.
func (t Transform) Rotation() Quat {
	var m [3][3]float64
	for c := 0; c < 3; c++ {
		sx, sy, sz := t.at(0, c), t.at(1, c), t.at(2, c)
		s := math.Sqrt(sx*sx + sy*sy + sz*sz)
		if s == 0 {
			s = 1
		}
		m[0][c], m[1][c], m[2][c] = sx/s, sy/s, sz/s
	}

	var x, y, z, w float64
	trace := m[0][0] + m[1][1] + m[2][2]
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		w = 0.25 * s
		x = (m[2][1] - m[1][2]) / s
		y = (m[0][2] - m[2][0]) / s
		z = (m[1][0] - m[0][1]) / s
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := math.Sqrt(1+m[0][0]-m[1][1]-m[2][2]) * 2
		w = (m[2][1] - m[1][2]) / s
		x = 0.25 * s
		y = (m[0][1] + m[1][0]) / s
		z = (m[0][2] + m[2][0]) / s
	case m[1][1] > m[2][2]:
		s := math.Sqrt(1+m[1][1]-m[0][0]-m[2][2]) * 2
		w = (m[0][2] - m[2][0]) / s
		x = (m[0][1] + m[1][0]) / s
		y = 0.25 * s
		z = (m[1][2] + m[2][1]) / s
	default:
		s := math.Sqrt(1+m[2][2]-m[0][0]-m[1][1]) * 2
		w = (m[1][0] - m[0][1]) / s
		x = (m[0][2] + m[2][0]) / s
		y = (m[1][2] + m[2][1]) / s
		z = 0.25 * s
	}
	return Quat{X: float32(x), Y: float32(y), Z: float32(z), W: float32(w)}.Normalize()
}

// ComposeTransform builds a transform from a rotation and a translation.
func ComposeTransform(q Quat, p Vec3) Transform {
	q = q.Normalize()
	x, y, z, w := float64(q.X), float64(q.Y), float64(q.Z), float64(q.W)
	return Transform{
		float32(1 - 2*(y*y+z*z)), float32(2 * (x*y + z*w)), float32(2 * (x*z - y*w)), 0,
		float32(2 * (x*y - z*w)), float32(1 - 2*(x*x+z*z)), float32(2 * (y*z + x*w)), 0,
		float32(2 * (x*z + y*w)), float32(2 * (y*z - x*w)), float32(1 - 2*(x*x+y*y)), 0,
		p.X, p.Y, p.Z, 1,
	}
}

// JointSample is one joint's pose at capture time. Treat as immutable.
type JointSample struct {
	Joint     string  `json:"joint"`
	Position  Vec3    `json:"position"`
	Rotation  Quat    `json:"rotation"`
	Timestamp float64 `json:"timestamp"` // seconds
}

// SampleFromTransform captures a joint from its model-space transform.
func SampleFromTransform(joint string, t Transform, ts float64) JointSample {
	return JointSample{
		Joint:     joint,
		Position:  t.Translation(),
		Rotation:  t.Rotation(),
		Timestamp: ts,
	}
}

// Frame is one tracking update: joint name -> sample. It holds only the
// joints tracked at that instant.
type Frame map[string]JointSample

// Joints returns the frame's joint names in ascending order.
func (f Frame) Joints() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Timestamp returns the capture time shared by the frame's joints, or 0 for
// an empty frame.
func (f Frame) Timestamp() float64 {
	for _, name := range f.Joints() {
		return f[name].Timestamp
	}
	return 0
}

// Clone returns a copy safe to hand to another goroutine.
func (f Frame) Clone() Frame {
	out := make(Frame, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// CountRows returns the number of (frame, joint) rows frames produce on export.
func CountRows(frames []Frame) int {
	n := 0
	for _, f := range frames {
		n += len(f)
	}
	return n
}
