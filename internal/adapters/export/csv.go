package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/okian/bodytrack/internal/domain/model"
)

// Header is the first line of every recording.
var Header = []string{
	"Frame", "JointName", "Timestamp",
	"PositionX", "PositionY", "PositionZ",
	"RotationX", "RotationY", "RotationZ", "RotationW",
}

// Encode writes frames as CSV: the header, then one row per joint per frame.
// Frames are numbered from 0 in order; joints within a frame are sorted by
// name. It returns the number of data rows written.
func Encode(w io.Writer, frames []model.Frame, precision int) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, err
	}

	rows := 0
	record := make([]string, len(Header))
	for i, f := range frames {
		idx := strconv.Itoa(i)
		for _, name := range f.Joints() {
			s := f[name]
			record[0] = idx
			record[1] = name
			record[2] = strconv.FormatFloat(s.Timestamp, 'f', precision, 64)
			record[3] = formatCoord(s.Position.X, precision)
			record[4] = formatCoord(s.Position.Y, precision)
			record[5] = formatCoord(s.Position.Z, precision)
			record[6] = formatCoord(s.Rotation.X, precision)
			record[7] = formatCoord(s.Rotation.Y, precision)
			record[8] = formatCoord(s.Rotation.Z, precision)
			record[9] = formatCoord(s.Rotation.W, precision)
			if err := cw.Write(record); err != nil {
				return rows, err
			}
			rows++
		}
	}
	cw.Flush()
	return rows, cw.Error()
}

func formatCoord(v float32, precision int) string {
	return strconv.FormatFloat(float64(v), 'f', precision, 32)
}

// Decode parses a recording written by Encode. Frame indexes that produced
// no rows come back as empty frames; trailing empty frames cannot be
// recovered.
func Decode(r io.Reader) ([]model.Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	cr.ReuseRecord = true

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header: %w", ErrMalformed)
		}
		return nil, fmt.Errorf("read header: %w: %w", ErrMalformed, err)
	}
	for i, col := range Header {
		if head[i] != col {
			return nil, fmt.Errorf("column %d is %q, want %q: %w", i, head[i], col, ErrMalformed)
		}
	}

	var frames []model.Frame
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %w", line, ErrMalformed, err)
		}

		idx, err := strconv.Atoi(rec[0])
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("line %d: bad frame index %q: %w", line, rec[0], ErrMalformed)
		}
		if idx < len(frames)-1 {
			return nil, fmt.Errorf("line %d: frame %d out of order: %w", line, idx, ErrMalformed)
		}
		s, err := parseSample(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %w", line, ErrMalformed, err)
		}
		for len(frames) <= idx {
			frames = append(frames, model.Frame{})
		}
		if _, dup := frames[idx][s.Joint]; dup {
			return nil, fmt.Errorf("line %d: joint %q repeated in frame %d: %w", line, s.Joint, idx, ErrMalformed)
		}
		frames[idx][s.Joint] = s
	}
}

func parseSample(rec []string) (model.JointSample, error) {
	ts, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return model.JointSample{}, err
	}
	var v [7]float32
	for i := range v {
		f, err := strconv.ParseFloat(rec[3+i], 32)
		if err != nil {
			return model.JointSample{}, err
		}
		v[i] = float32(f)
	}
	return model.JointSample{
		Joint:     rec[1],
		Timestamp: ts,
		Position:  model.Vec3{X: v[0], Y: v[1], Z: v[2]},
		Rotation:  model.Quat{X: v[3], Y: v[4], Z: v[5], W: v[6]},
	}, nil
}
