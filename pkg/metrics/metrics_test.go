package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with defaults", func() {
			m := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it registers its collectors without panicking", func() {
				So(m, ShouldNotBeNil)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				So(families, ShouldNotBeNil)
			})
		})

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("testns"),
				WithSubsystem("testsub"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithPrometheusRegistry(registry),
			)

			So(m, ShouldNotBeNil)
			So(m.namespace, ShouldEqual, "testns")
			So(m.subsystem, ShouldEqual, "testsub")
		})
	})
}

func TestPackageHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Then helpers record without panicking", func() {
			So(func() {
				RecordRun("completed", 120)
				RecordSkippedTrigger()
				RecordGroupsFormed(3)
				UpdateRolloverMembers(2)
				UpdatePoolSize(40)
				UpdateEligibleMembers(31)
				UpdateHistorySize(12)
				RecordBucketProcessed("formed", 8)
				RecordPairsScored(55)
				RecordPairsBlocked(4)
				UpdateQueueSize(1)
				UpdateQueueCapacity(64)
				UpdateWorkerCount(4)
				RecordHTTPRequest("runs", "POST", "202")
				RecordHTTPRequestDuration("runs", "POST", "202", 5)
			}, ShouldNotPanic)
		})

		Convey("And the custom registry gathers run metrics", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			names := make(map[string]bool, len(families))
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["cohort_engine_runs_total"], ShouldBeTrue)
			So(names["cohort_engine_groups_formed_total"], ShouldBeTrue)
		})
	})
}
