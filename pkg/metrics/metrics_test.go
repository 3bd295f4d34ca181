package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			registryOpt := WithPrometheusRegistry(prometheus.NewRegistry())

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(registryOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestManagerCreation(t *testing.T) {
	Convey("Given manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given metrics recording", t, func() {
		Convey("When recording submission metrics", func() {
			Convey("Then the counters should accept updates", func() {
				So(RecordSubmissionCreated, ShouldNotPanic)
				So(RecordSubmissionDuplicate, ShouldNotPanic)
				So(RecordValidationFailure, ShouldNotPanic)
				So(func() { UpdateTotalSubmissions(42) }, ShouldNotPanic)
			})
		})

		Convey("When recording schema metrics", func() {
			So(RecordSchemaNormalization, ShouldNotPanic)
			So(RecordSchemaCacheHit, ShouldNotPanic)
		})

		Convey("When recording sync metrics", func() {
			So(RecordSyncSuccess, ShouldNotPanic)
			So(RecordSyncFailure, ShouldNotPanic)
			So(func() { UpdateSyncQueueSize(10) }, ShouldNotPanic)
			So(func() { UpdateSyncWorkerCount(4) }, ShouldNotPanic)
			So(func() { RecordSyncLatency(12.5) }, ShouldNotPanic)
		})

		Convey("When recording provider metrics", func() {
			So(func() { RecordProviderCall("list_forms") }, ShouldNotPanic)
			So(func() { RecordProviderError("get_form") }, ShouldNotPanic)
		})

		Convey("When recording HTTP metrics", func() {
			So(func() { RecordHTTPRequest("forms", "GET", "200") }, ShouldNotPanic)
			So(func() { RecordHTTPRequestDuration("forms", "GET", "200", 3.2) }, ShouldNotPanic)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the global registry", t, func() {
		Convey("When gathering metrics", func() {
			families, err := GetRegistry().Gather()

			Convey("Then the service metrics are registered", func() {
				So(err, ShouldBeNil)
				names := make(map[string]bool, len(families))
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["wildlife_backend_submissions_created_total"], ShouldBeTrue)
				So(names["wildlife_backend_sync_queue_size"], ShouldBeTrue)
			})
		})
	})
}
