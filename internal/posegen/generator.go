// Package posegen synthesizes walking body poses and replays them against a
// running recorder.
package posegen

import (
	"math"

	"github.com/google/uuid"
	"github.com/okian/bodytrack/internal/domain/model"
)

// Gait constants. Angles are radians, the cycle is in strides per second.
const (
	defaultRate  = 60.0
	defaultStart = 1.0
	defaultSpeed = 1.2
	strideHz     = 0.9
	legSwing     = 0.45
	kneeBend     = 0.6
	armSwing     = 0.35
	bobHeight    = 0.02
	hipHeight    = 0.95
)

// Generator produces a deterministic walking motion over a skeleton. Each
// joint is sent as a 4x4 transform in model space.
type Generator struct {
	skeleton []model.SkeletonJoint
	rate     float64
	start    float64
	speed    float64
	id       func(i int) string
}

// New returns a Generator over model.DefaultBody3D at 60 fps.
func New(opts ...Option) *Generator {
	g := &Generator{
		skeleton: model.DefaultBody3D,
		rate:     defaultRate,
		start:    defaultStart,
		speed:    defaultSpeed,
		id:       func(int) string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Joints returns the number of joints in every generated frame.
func (g *Generator) Joints() int { return len(g.skeleton) }

// Rate returns the frame rate in frames per second.
func (g *Generator) Rate() float64 { return g.rate }

// Timestamp returns the capture time of frame i.
func (g *Generator) Timestamp(i int) float64 {
	return g.start + float64(i)/g.rate
}

// Frame returns pose update i.
func (g *Generator) Frame(i int) model.PoseUpdate {
	t := float64(i) / g.rate
	phase := 2 * math.Pi * strideHz * t

	// Local swing of each limb segment about the x axis.
	swing := map[string]float64{
		"left_upLeg_joint":       legSwing * math.Sin(phase),
		"right_upLeg_joint":      legSwing * math.Sin(phase+math.Pi),
		"left_leg_joint":         kneeBend * math.Max(0, math.Sin(phase-math.Pi/2)),
		"right_leg_joint":        kneeBend * math.Max(0, math.Sin(phase+math.Pi/2)),
		"left_shoulder_1_joint":  armSwing * math.Sin(phase+math.Pi),
		"right_shoulder_1_joint": armSwing * math.Sin(phase),
	}

	root := model.Vec3{
		Y: float32(hipHeight + bobHeight*math.Abs(math.Sin(phase))),
		Z: float32(g.speed * t),
	}

	angles := make(map[string]float64, len(g.skeleton))
	world := make(map[string]model.Vec3, len(g.skeleton))
	joints := make(map[string]model.JointInput, len(g.skeleton))
	for _, j := range g.skeleton {
		angle := swing[j.Name]
		pos := add(root, j.Rest)
		if j.Parent != "" {
			angle += angles[j.Parent]
			parent := g.rest(j.Parent)
			// Rotate the bone around its parent by the parent's accumulated swing.
			pos = add(world[j.Parent], rotateX(sub(j.Rest, parent), angles[j.Parent]))
		}
		angles[j.Name] = angle
		world[j.Name] = pos

		tr := model.ComposeTransform(quatX(angle), pos)
		joints[j.Name] = model.JointInput{Transform: &tr}
	}

	return model.PoseUpdate{
		FrameID:   g.id(i),
		Timestamp: g.Timestamp(i),
		Joints:    joints,
	}
}

func (g *Generator) rest(name string) model.Vec3 {
	for _, j := range g.skeleton {
		if j.Name == name {
			return j.Rest
		}
	}
	return model.Vec3{}
}

func quatX(angle float64) model.Quat {
	s, c := math.Sincos(angle / 2)
	return model.Quat{X: float32(s), W: float32(c)}
}

func rotateX(v model.Vec3, angle float64) model.Vec3 {
	s, c := math.Sincos(angle)
	y, z := float64(v.Y), float64(v.Z)
	return model.Vec3{X: v.X, Y: float32(y*c - z*s), Z: float32(y*s + z*c)}
}

func add(a, b model.Vec3) model.Vec3 { return model.Vec3{X: a.X + b.X, Y: a.Y + b.Y, Z: a.Z + b.Z} }
func sub(a, b model.Vec3) model.Vec3 { return model.Vec3{X: a.X - b.X, Y: a.Y - b.Y, Z: a.Z - b.Z} }
