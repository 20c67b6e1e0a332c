package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("board"),
				WithLatencyBuckets(1, 10),
				WithConstLabels(map[string]string{"event": "finals"}),
				WithRegistry(registry),
			)
			m.solves.Inc()

			Convey("Then metric names carry namespace and subsystem", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_board_solves_total")
			})

			Convey("Then constant labels are attached", func() {
				expected := `
# HELP test_board_solves_total Solves recorded in the ledger
# TYPE test_board_solves_total counter
test_board_solves_total{event="finals"} 1
`
				So(testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_board_solves_total"), ShouldBeNil)
			})

			Convey("Then session stages record alongside the event label", func() {
				m.sessions.WithLabelValues(SessionOpened).Inc()
				expected := `
# HELP test_board_sessions_total Interactive session lifecycle events
# TYPE test_board_sessions_total counter
test_board_sessions_total{event="finals",stage="` + SessionOpened + `"} 1
`
				So(testutil.GatherAndCompare(registry, strings.NewReader(expected), "test_board_sessions_total"), ShouldBeNil)
			})
		})
	})
}

func TestGlobalRecorders(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording submissions", func() {
			before := testutil.ToFloat64(globalManager.submissions.WithLabelValues("signed", OutcomeAccepted))
			RecordSubmission("signed", OutcomeAccepted)

			Convey("Then the labelled counter grows", func() {
				So(testutil.ToFloat64(globalManager.submissions.WithLabelValues("signed", OutcomeAccepted)), ShouldEqual, before+1)
			})
		})

		Convey("When recording cache lookups", func() {
			before := testutil.ToFloat64(globalManager.cacheLookups.WithLabelValues("score", "hit"))
			RecordCacheLookup("score", true)

			Convey("Then hits are counted separately", func() {
				So(testutil.ToFloat64(globalManager.cacheLookups.WithLabelValues("score", "hit")), ShouldEqual, before+1)
			})
		})

		Convey("When recording the other series", func() {
			So(func() {
				RecordSolve()
				RecordSession(SessionOpened)
				RecordScoreboardDuration(1.5)
				UpdateTeamsRanked(3)
				RecordStoreLatency("memory", "register", 0.1)
				RecordHTTPRequest("score", "GET", "200")
				RecordHTTPRequestDuration("score", "GET", "200", 2)
				RecordRateLimited()
				RecordErrorByComponent("app", "internal")
				RecordErrorByEndpoint("score", "GET", "server_error")
			}, ShouldNotPanic)

			Convey("Then the registry gathers without error", func() {
				_, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
			})
		})
	})
}
