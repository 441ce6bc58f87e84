package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should register its collectors", func() {
				So(manager, ShouldNotBeNil)
				manager.framesCaptured.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
				So(manager.RefreshInterval(), ShouldEqual, 10*time.Second)
				So(RefreshInterval(), ShouldEqual, 10*time.Second)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithMetricPrefix("pfx"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithMetricsEnabled(true),
				WithRefreshInterval(5*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metric names should carry namespace and prefix", func() {
				manager.exportsTotal.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_pfx_exports_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, 5*time.Second)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording captured frames", func() {
			before := testutil.ToFloat64(globalManager.framesCaptured)
			RecordFrameCaptured(17)
			RecordFrameCaptured(3)

			Convey("Then the frame counter should advance", func() {
				So(testutil.ToFloat64(globalManager.framesCaptured)-before, ShouldEqual, 2.0)
			})
		})

		Convey("When updating gauges", func() {
			UpdateBufferFrames(42)
			UpdateSessionState(1, "recording")
			UpdateQueueSize(3)
			UpdateQueueCapacity(8)
			UpdateWorkerCount(2)
			UpdateRecordingsStored(5)

			Convey("Then the gauges should reflect the last value", func() {
				So(testutil.ToFloat64(globalManager.bufferFrames), ShouldEqual, 42.0)
				So(testutil.ToFloat64(globalManager.sessionState), ShouldEqual, 1.0)
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 3.0)
				So(testutil.ToFloat64(globalManager.recordingsSeen), ShouldEqual, 5.0)
			})
		})

		Convey("When recording labelled counters", func() {
			So(func() {
				RecordFrameDropped("not_recording")
				RecordFrameDuplicate()
				RecordExport(12.5, 100, 4096)
				RecordExportError("write")
				RecordArchiveJob("uploaded", 3)
				RecordQueueRejection("full")
				RecordHTTPRequest("session", "POST", "200")
				RecordHTTPRequestDuration("session", "POST", "200", 1.5)
				RecordErrorByEndpoint("session", "POST", "client_error")
				UpdateStreamConnections(1)
				UpdateStreamConnections(-1)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)

			Convey("Then the export error counter should be labelled by kind", func() {
				So(testutil.ToFloat64(globalManager.exportErrors.WithLabelValues("write")), ShouldBeGreaterThanOrEqualTo, 1.0)
			})
		})

		Convey("When gathering the custom registry", func() {
			RecordFrameCaptured(1)
			families, err := GetRegistry().Gather()

			Convey("Then every family should live under the bodytrack namespace", func() {
				So(err, ShouldBeNil)
				for _, f := range families {
					So(strings.HasPrefix(f.GetName(), "bodytrack_recorder_"), ShouldBeTrue)
				}
			})
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a disabled manager installed globally", t, func() {
		saved := globalManager
		globalManager = NewManager(WithPrometheusRegistry(prometheus.NewRegistry()), WithMetricsEnabled(false))
		defer func() { globalManager = saved }()

		Convey("Then recording should not touch the collectors", func() {
			RecordFrameCaptured(5)
			So(testutil.ToFloat64(globalManager.framesCaptured), ShouldEqual, 0.0)
		})
	})
}
