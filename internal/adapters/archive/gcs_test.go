package archive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

// objectWriter stands in for a bucket object writer: Close commits unless
// the writer's context is already done.
type objectWriter struct {
	ctx       context.Context
	buf       bytes.Buffer
	committed bool
}

func (w *objectWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *objectWriter) Close() error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	w.committed = true
	return nil
}

type brokenReader struct{ after io.Reader }

func (r brokenReader) Read(p []byte) (int, error) {
	n, err := r.after.Read(p)
	if err == io.EOF {
		return n, errors.New("disk read failed")
	}
	return n, err
}

func TestGCSSinkPut(t *testing.T) {
	Convey("Given a GCS sink over a recording writer", t, func() {
		var last *objectWriter
		sink := &GCSSink{name: "takes", open: func(ctx context.Context, _ string) io.WriteCloser {
			last = &objectWriter{ctx: ctx}
			return last
		}}

		Convey("When the copy succeeds", func() {
			uri, err := sink.Put(context.Background(), "recordings/walk.csv", strings.NewReader("Frame\n"))

			Convey("Then the object is committed", func() {
				So(err, ShouldBeNil)
				So(uri, ShouldEqual, "gs://takes/recordings/walk.csv")
				So(last.committed, ShouldBeTrue)
				So(last.buf.String(), ShouldEqual, "Frame\n")
			})
		})

		Convey("When the source fails midway", func() {
			_, err := sink.Put(context.Background(), "recordings/walk.csv", brokenReader{strings.NewReader("Frame,Joint")})

			Convey("Then the partial object is not committed", func() {
				So(err, ShouldNotBeNil)
				So(last.committed, ShouldBeFalse)
			})
		})
	})
}
