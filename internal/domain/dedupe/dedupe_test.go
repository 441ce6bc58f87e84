package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/okian/bodytrack/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, int64(0))
			})
		})

		Convey("When recording frame ids", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the id is new", func() {
				seen := d.SeenAndRecord(ctx, "frame-1")

				Convey("Then it should return false and record the id", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, int64(1))
				})
			})

			Convey("And the id was already seen", func() {
				d.SeenAndRecord(ctx, "frame-1")
				seen := d.SeenAndRecord(ctx, "frame-1")

				Convey("Then it should return true without growing", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, int64(1))
				})
			})

			Convey("And the id is unrecorded", func() {
				d.SeenAndRecord(ctx, "frame-1")
				d.Unrecord(ctx, "frame-1")
				d.Unrecord(ctx, "never-seen")

				Convey("Then it can be recorded again", func() {
					So(d.Size(), ShouldEqual, int64(0))
					So(d.SeenAndRecord(ctx, "frame-1"), ShouldBeFalse)
				})
			})

			Convey("And the deduper is reset", func() {
				for i := 0; i < 5; i++ {
					d.SeenAndRecord(ctx, fmt.Sprintf("frame-%d", i))
				}
				d.Reset(ctx)

				Convey("Then every id is forgotten", func() {
					So(d.Size(), ShouldEqual, int64(0))
					So(d.SeenAndRecord(ctx, "frame-3"), ShouldBeFalse)
				})
			})
		})

		Convey("When the deduper is bounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for _, id := range []string{"a", "b", "c", "d"} {
				d.SeenAndRecord(ctx, id)
			}

			Convey("Then the oldest id is evicted first", func() {
				So(d.Size(), ShouldEqual, int64(3))
				So(d.SeenAndRecord(ctx, "d"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "c"), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, "a"), ShouldBeFalse)
			})

			Convey("Then an unrecorded slot is reused without double counting", func() {
				d.Unrecord(ctx, "c")
				So(d.Size(), ShouldEqual, int64(2))
				d.SeenAndRecord(ctx, "e")
				d.SeenAndRecord(ctx, "f")
				So(d.Size(), ShouldBeLessThanOrEqualTo, int64(3))
			})
		})

		Convey("When the deduper is unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for i := 0; i < 1000; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("frame-%d", i))
			}

			Convey("Then nothing is evicted", func() {
				So(d.Size(), ShouldEqual, int64(1000))
				So(d.SeenAndRecord(ctx, "frame-0"), ShouldBeTrue)
			})
		})

		Convey("When many goroutines record the same ids", func() {
			d := dedupe.NewInMemoryDeduper()
			var wg sync.WaitGroup
			var mu sync.Mutex
			fresh := 0
			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						if !d.SeenAndRecord(ctx, fmt.Sprintf("frame-%d", i)) {
							mu.Lock()
							fresh++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each id is fresh exactly once", func() {
				So(fresh, ShouldEqual, 100)
				So(d.Size(), ShouldEqual, int64(100))
			})
		})
	})
}
