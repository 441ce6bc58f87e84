// Package analysis derives playback statistics from a recording.
package analysis

import (
	"math"
	"sort"

	"github.com/okian/bodytrack/internal/domain/model"
)

// Bounds is the axis-aligned box enclosing a set of positions.
type Bounds struct {
	Min model.Vec3 `json:"min"`
	Max model.Vec3 `json:"max"`
}

func (b *Bounds) extend(p model.Vec3, first bool) {
	if first {
		b.Min, b.Max = p, p
		return
	}
	b.Min = model.Vec3{X: min(b.Min.X, p.X), Y: min(b.Min.Y, p.Y), Z: min(b.Min.Z, p.Z)}
	b.Max = model.Vec3{X: max(b.Max.X, p.X), Y: max(b.Max.Y, p.Y), Z: max(b.Max.Z, p.Z)}
}

// JointStats summarizes one joint across a recording.
type JointStats struct {
	Joint   string  `json:"joint"`
	Samples int     `json:"samples"`
	Travel  float64 `json:"travel"` // meters along consecutive samples
	Bounds  Bounds  `json:"bounds"`
}

// Summary describes a recording the way a viewer needs it for playback.
type Summary struct {
	Frames       int          `json:"frames"`
	EmptyFrames  int          `json:"empty_frames"`
	Rows         int          `json:"rows"`
	FirstTS      float64      `json:"first_timestamp"`
	LastTS       float64      `json:"last_timestamp"`
	Duration     float64      `json:"duration"`      // seconds
	MeanInterval float64      `json:"mean_interval"` // seconds between non-empty frames
	FrameRate    float64      `json:"frame_rate"`
	Bounds       Bounds       `json:"bounds"`
	Joints       []JointStats `json:"joints"`
}

// Summarize walks frames once. Empty frames count toward Frames but carry no
// timestamp.
func Summarize(frames []model.Frame) Summary {
	s := Summary{Frames: len(frames)}
	joints := map[string]*JointStats{}
	last := map[string]model.Vec3{}
	timed := 0

	for _, f := range frames {
		if len(f) == 0 {
			s.EmptyFrames++
			continue
		}
		ts := f.Timestamp()
		if timed == 0 {
			s.FirstTS = ts
		}
		s.LastTS = ts
		for _, name := range f.Joints() {
			sample := f[name]
			s.Bounds.extend(sample.Position, s.Rows == 0)
			s.Rows++

			js, ok := joints[name]
			if !ok {
				js = &JointStats{Joint: name}
				joints[name] = js
			}
			js.Bounds.extend(sample.Position, js.Samples == 0)
			if prev, ok := last[name]; ok {
				js.Travel += distance(prev, sample.Position)
			}
			last[name] = sample.Position
			js.Samples++
		}
		timed++
	}

	s.Duration = s.LastTS - s.FirstTS
	if timed > 1 && s.Duration > 0 {
		s.MeanInterval = s.Duration / float64(timed-1)
		s.FrameRate = 1 / s.MeanInterval
	}

	s.Joints = make([]JointStats, 0, len(joints))
	for _, js := range joints {
		s.Joints = append(s.Joints, *js)
	}
	sort.Slice(s.Joints, func(i, j int) bool { return s.Joints[i].Joint < s.Joints[j].Joint })
	return s
}

func distance(a, b model.Vec3) float64 {
	dx := float64(a.X) - float64(b.X)
	dy := float64(a.Y) - float64(b.Y)
	dz := float64(a.Z) - float64(b.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
