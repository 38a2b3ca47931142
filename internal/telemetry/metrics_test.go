package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBuild(t *testing.T) {
	m := NewMetrics()

	m.ObserveBuild("ch-1", "continue", ResultSuccess, 20*time.Millisecond, 12, 1)
	m.ObserveBuild("ch-1", "continue", ResultSuccess, 5*time.Millisecond, 3, 0)
	m.ObserveBuild("ch-1", "refresh", ResultStalled, time.Millisecond, 0, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.buildsTotal.WithLabelValues("continue", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.buildsTotal.WithLabelValues("refresh", ResultStalled)))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.itemsGenerated.WithLabelValues("ch-1")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.buildWarnings.WithLabelValues("ch-1")))

	series, err := testutil.GatherAndCount(m.Registry(), "hermes_playout_builds_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
}

func TestTimelineAheadAndTrimmed(t *testing.T) {
	m := NewMetrics()

	m.SetTimelineAhead("ch-1", 90*time.Minute)
	m.SetTimelineAhead("ch-2", -time.Minute)
	m.AddTrimmed("ch-1", 4)
	m.AddTrimmed("ch-1", 0)

	assert.Equal(t, 5400.0, testutil.ToFloat64(m.timelineAhead.WithLabelValues("ch-1")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.timelineAhead.WithLabelValues("ch-2")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.historyTrimmed.WithLabelValues("ch-1")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBuild("ch", "reset", ResultError, time.Second, 1, 1)
		m.SetTimelineAhead("ch", time.Hour)
		m.AddTrimmed("ch", 3)
	})
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.ObserveBuild("ch-1", "reset", ResultSuccess, time.Millisecond, 1, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `hermes_playout_builds_total{mode="reset",result="success"} 1`)
	assert.Contains(t, body, "hermes_playout_build_duration_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}
