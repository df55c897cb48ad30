package monitoring

import "time"

// Snapshot returns a copy of the running totals for the JSON stats API.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// AverageLatency returns the mean HTTP request latency observed so far.
func (s MetricsSnapshot) AverageLatency() time.Duration {
	if s.RequestCount == 0 {
		return 0
	}
	return time.Duration(s.TotalDuration / float64(s.RequestCount) * float64(time.Second))
}

// LaunchSuccessRate returns the fraction of successful launches, 1 when none
// have been attempted.
func (s MetricsSnapshot) LaunchSuccessRate() float64 {
	if s.TotalLaunches == 0 {
		return 1
	}
	return float64(s.TotalLaunches-s.FailedLaunches) / float64(s.TotalLaunches)
}

// UptimeDuration returns the time since the collector was created.
func (m *Metrics) UptimeDuration() time.Duration {
	if m == nil {
		return 0
	}
	return time.Since(m.startTime)
}
