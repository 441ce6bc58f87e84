package posegen

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/okian/bodytrack/internal/adapters/http/api"
	service "github.com/okian/bodytrack/internal/app"
	"github.com/okian/bodytrack/internal/domain/model"
	"github.com/okian/bodytrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerator(t *testing.T) {
	Convey("Given a generator at 30 fps", t, func() {
		g := New(WithRate(30), WithStartTime(10))

		Convey("Then every frame carries the whole skeleton as transforms", func() {
			u := g.Frame(0)
			So(len(u.Joints), ShouldEqual, len(model.DefaultBody3D))
			So(g.Joints(), ShouldEqual, len(model.DefaultBody3D))
			for _, in := range u.Joints {
				So(in.Transform, ShouldNotBeNil)
			}
		})

		Convey("Then timestamps advance at the frame rate", func() {
			So(g.Frame(0).Timestamp, ShouldEqual, 10.0)
			So(g.Frame(30).Timestamp, ShouldAlmostEqual, 11.0, 1e-9)
		})

		Convey("Then frame ids are unique", func() {
			So(g.Frame(1).FrameID, ShouldNotEqual, g.Frame(1).FrameID)
		})

		Convey("Then the body walks forward and stays upright", func() {
			start := g.Frame(0).Joints["root"].Transform.Translation()
			later := g.Frame(60).Joints["root"].Transform.Translation()
			So(later.Z, ShouldBeGreaterThan, start.Z)
			head := g.Frame(60).Joints["head_joint"].Transform.Translation()
			So(head.Y, ShouldBeGreaterThan, later.Y)
		})

		Convey("Then the legs swing in opposite phase", func() {
			u := g.Frame(8)
			left := u.Joints["left_foot_joint"].Transform.Translation()
			right := u.Joints["right_foot_joint"].Transform.Translation()
			So(left.Z, ShouldNotAlmostEqual, right.Z, 1e-3)
		})

		Convey("Then every generated pose converts to a frame", func() {
			for i := 0; i < 120; i += 7 {
				f, err := g.Frame(i).ToFrame(0)
				So(err, ShouldBeNil)
				for _, s := range f {
					So(math.IsNaN(float64(s.Rotation.W)), ShouldBeFalse)
				}
			}
		})
	})

	Convey("Given fixed frame ids", t, func() {
		g := New(WithIDs(func(i int) string { return "f" + strconv.Itoa(i) }))

		Convey("Then ids follow the frame index", func() {
			So(g.Frame(3).FrameID, ShouldEqual, "f3")
		})
	})
}

func TestCompare(t *testing.T) {
	Convey("Given generated poses and the frames they produce", t, func() {
		g := New(WithIDs(func(i int) string { return strconv.Itoa(i) }))
		sent := []model.PoseUpdate{g.Frame(0), g.Frame(1)}
		frames := make([]model.Frame, len(sent))
		for i, u := range sent {
			f, err := u.ToFrame(0)
			So(err, ShouldBeNil)
			frames[i] = f
		}
		stats := &Stats{FramesAccepted: 2, RowsWritten: 2 * g.Joints()}

		Convey("Then a faithful recording verifies", func() {
			So(compare(frames, sent, g.Joints(), stats), ShouldBeNil)
		})

		Convey("Then a missing frame is reported", func() {
			err := compare(frames[:1], sent, g.Joints(), stats)
			So(errors.Is(err, ErrVerification), ShouldBeTrue)
		})

		Convey("Then a moved joint is reported", func() {
			s := frames[1]["root"]
			s.Position.X += 1
			frames[1]["root"] = s
			So(errors.Is(compare(frames, sent, g.Joints(), stats), ErrVerification), ShouldBeTrue)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running recorder", t, func() {
		svc := service.New(service.WithStorageRoot(t.TempDir()), service.WithLogger(logger.Nop()))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop(context.Background())
		mux := http.NewServeMux()
		api.NewServer(svc, svc, api.WithLogger(logger.Nop())).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		// Leave a stale take behind; the replay must clear it first.
		_, _ = svc.StartRecording(context.Background())

		out := filepath.Join(t.TempDir(), "out", "poses.json")
		cfg := &Config{
			BaseURL:        srv.URL,
			Frames:         40,
			Rate:           60,
			Name:           "walk",
			DuplicateEvery: 10,
			Timeout:        5 * time.Second,
			OutputFile:     out,
			Keep:           true,
		}

		Convey("When a replay runs", func() {
			stats, err := Run(context.Background(), cfg)

			Convey("Then the saved recording matches what was sent", func() {
				So(err, ShouldBeNil)
				So(stats.FramesAccepted, ShouldEqual, 40)
				So(stats.Duplicates, ShouldEqual, 4)
				So(stats.FramesSent, ShouldEqual, 44)
				So(stats.RowsWritten, ShouldEqual, 40*len(model.DefaultBody3D))

				list, err := svc.ListRecordings(context.Background())
				So(err, ShouldBeNil)
				So(len(list), ShouldEqual, 1)

				_, err = os.Stat(out)
				So(err, ShouldBeNil)
			})
		})
	})
}
