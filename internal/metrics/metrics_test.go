package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/neurosphere/internal/telemetry"
)

func TestObserveSnapshot(t *testing.T) {
	m := New()
	snap, err := telemetry.Parse(strings.NewReader("0,0,1,0,0,0,0,1,1\n1,0,0,0,0,0,0,1,1\n99,0,0,0,0,0,0,1,1\n0,1\n"), telemetry.SchemeBasic)
	require.NoError(t, err)

	m.ObserveSnapshot(snap)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.parses.WithLabelValues("basic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skippedLines.WithLabelValues("device_range")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skippedLines.WithLabelValues("short")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.devices))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeDevices))
}

func TestObserveConfigAndHandler(t *testing.T) {
	m := New()
	m.ObserveConfig("load", http.StatusForbidden)
	m.ObserveConfig("load", http.StatusForbidden)
	m.SetSceneConnections(3)
	m.SetSubscribers(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.configRequests.WithLabelValues("load", "403")))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "neurosphere_scene_connections 3")
	assert.Contains(t, w.Body.String(), "neurosphere_feed_subscribers 2")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSnapshot(nil)
		m.ObserveConfig("save", 200)
		m.SetSceneConnections(1)
		m.SetSubscribers(1)
	})
}
