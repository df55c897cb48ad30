package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordLaunch("desktop", "new", "", true, time.Second)
		m.SetInstances(1, nil, 10)
		m.RecordTermination("forced")
		m.RecordSweep(time.Millisecond, nil)
		m.SetBreakerState("android", 2)
		m.IncWSConnections()
		NewTimer(m, "svc", "op").StopErr(errors.New("boom"))
	})
	assert.Equal(t, MetricsSnapshot{}, m.Snapshot())
}

func TestRecordLaunch(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordLaunch("desktop", "new", "", true, 10*time.Millisecond)
	m.RecordLaunch("desktop", "", "process_start", false, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LaunchesTotal.WithLabelValues("desktop", "new", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LaunchesTotal.WithLabelValues("desktop", "none", "process_start")))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalLaunches)
	assert.Equal(t, int64(1), snap.FailedLaunches)
	assert.InDelta(t, 0.5, snap.LaunchSuccessRate(), 0.0001)
}

func TestSetInstancesResetsStates(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.SetInstances(2, map[string]int{"running": 2, "starting": 1}, 300)
	m.SetInstances(1, map[string]int{"running": 1}, 100)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.InstancesActive))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.InstanceMemoryMB))
	assert.Equal(t, 1, testutil.CollectAndCount(m.InstancesByState))
}

func TestRecordHTTPRequestCountsErrors(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordHTTPRequest("GET", "/api/instances", "200", 20*time.Millisecond, 0, 128)
	m.RecordHTTPRequest("POST", "/api/launch", "500", 40*time.Millisecond, 64, 32)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)
	assert.Equal(t, 30*time.Millisecond, snap.AverageLatency().Round(time.Millisecond))
}

func TestSeparateRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}
