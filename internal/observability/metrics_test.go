package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesUpstreamCounters(t *testing.T) {
	m := NewMetrics("test_metrics")
	m.ObserveUpstream("list_employees", "ok", 15*time.Millisecond)
	m.ObserveRetry("list_employees")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	text := string(body)
	assert.True(t, strings.Contains(text, `test_metrics_upstream_requests_total{operation="list_employees",outcome="ok"} 1`), text)
	assert.Contains(t, text, `test_metrics_upstream_retries_total{operation="list_employees"} 1`)

	snap := m.SnapshotUpstream()
	require.Len(t, snap.Operations, 1)
	assert.Equal(t, 15.0, snap.Operations[0].LastMS)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveUpstream("x", "ok", time.Millisecond)
	m.ObserveRetry("x")
	m.ObserveHTTP("/", 200)
	m.ObserveAudit("delete", "ok")
	assert.Empty(t, m.SnapshotUpstream().Operations)
}

func TestTwoInstancesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics("same")
		NewMetrics("same")
	})
}
