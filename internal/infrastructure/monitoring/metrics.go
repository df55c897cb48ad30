package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Launch metrics
	LaunchesTotal  *prometheus.CounterVec
	LaunchDuration *prometheus.HistogramVec

	// Instance metrics
	InstancesActive   prometheus.Gauge
	InstancesByState  *prometheus.GaugeVec
	InstanceMemoryMB  prometheus.Gauge
	InstanceEvents    *prometheus.CounterVec
	Terminations      *prometheus.CounterVec
	ShutdownDuration  prometheus.Histogram
	MonitorSweeps     prometheus.Counter
	MonitorSweepTime  prometheus.Histogram
	MonitorStateFlips *prometheus.CounterVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// Dependency metrics
	BreakerState *prometheus.GaugeVec
	CatalogApps  prometheus.Gauge

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests     int64
	TotalErrors       int64
	TotalLaunches     int64
	FailedLaunches    int64
	ActiveInstances   int64
	ActiveConnections int64
	TotalDuration     float64 // sum of all request durations
	RequestCount      int64   // count for averaging
}

// NewMetrics creates a metrics collector registered on reg. A nil reg uses
// the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{startTime: time.Now()}

	// HTTP metrics
	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "launcher_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
	m.RequestSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "launcher_http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)
	m.ResponseSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "launcher_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 6),
		},
		[]string{"method", "path"},
	)

	// Launch metrics
	m.LaunchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_launches_total",
			Help: "Total number of launch attempts by application type and outcome",
		},
		[]string{"type", "launch_type", "category"},
	)
	m.LaunchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "launcher_launch_duration_seconds",
			Help:    "Launch attempt duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"type", "success"},
	)

	// Instance metrics
	m.InstancesActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "launcher_instances_active",
			Help: "Number of active application instances",
		},
	)
	m.InstancesByState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "launcher_instances",
			Help: "Number of tracked instances by state",
		},
		[]string{"state"},
	)
	m.InstanceMemoryMB = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "launcher_instances_memory_megabytes",
			Help: "Summed memory usage of active instances",
		},
	)
	m.InstanceEvents = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_instance_events_total",
			Help: "Instance registry events",
		},
		[]string{"event"},
	)
	m.Terminations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_terminations_total",
			Help: "Instance terminations by method",
		},
		[]string{"method"},
	)
	m.ShutdownDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "launcher_shutdown_duration_seconds",
			Help:    "Duration of shutdown-all operations",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)
	m.MonitorSweeps = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "launcher_monitor_sweeps_total",
			Help: "Total number of monitoring sweeps",
		},
	)
	m.MonitorSweepTime = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "launcher_monitor_sweep_duration_seconds",
			Help:    "Monitoring sweep duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
	m.MonitorStateFlips = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_monitor_state_changes_total",
			Help: "State changes applied by the monitoring sweep",
		},
		[]string{"to"},
	)

	// Service metrics
	m.ServiceCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_service_calls_total",
			Help: "Total number of service calls",
		},
		[]string{"service", "method", "status"},
	)
	m.ServiceDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "launcher_service_duration_seconds",
			Help:    "Service call duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"service", "method"},
	)
	m.ServiceErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_service_errors_total",
			Help: "Total number of service errors",
		},
		[]string{"service", "method", "error_type"},
	)

	// Dependency metrics
	m.BreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "launcher_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
	m.CatalogApps = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "launcher_catalog_applications",
			Help: "Number of applications in the catalog",
		},
	)

	// WebSocket metrics
	m.WSConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "launcher_ws_connections",
			Help: "Number of active WebSocket connections",
		},
	)
	m.WSMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "launcher_ws_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction", "type"},
	)

	// System metrics
	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "launcher_uptime_seconds",
			Help: "Launcher uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordLaunch records the outcome of a launch attempt.
func (m *Metrics) RecordLaunch(appType, launchType, category string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	if launchType == "" {
		launchType = "none"
	}
	if category == "" {
		category = "none"
	}
	m.LaunchesTotal.WithLabelValues(appType, launchType, category).Inc()
	m.LaunchDuration.WithLabelValues(appType, boolLabel(success)).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.TotalLaunches++
	if !success {
		m.snapshot.FailedLaunches++
	}
	m.mu.Unlock()
}

// SetInstances publishes the active count, per-state counts and summed
// memory of the instance registry.
func (m *Metrics) SetInstances(active int, byState map[string]int, memoryMB float64) {
	if m == nil {
		return
	}
	m.InstancesActive.Set(float64(active))
	m.InstanceMemoryMB.Set(memoryMB)
	m.InstancesByState.Reset()
	for state, n := range byState {
		m.InstancesByState.WithLabelValues(state).Set(float64(n))
	}

	m.mu.Lock()
	m.snapshot.ActiveInstances = int64(active)
	m.mu.Unlock()
}

// RecordInstanceEvent counts an instance registry event.
func (m *Metrics) RecordInstanceEvent(event string) {
	if m == nil {
		return
	}
	m.InstanceEvents.WithLabelValues(event).Inc()
}

// RecordTermination counts an instance termination by method.
func (m *Metrics) RecordTermination(method string) {
	if m == nil {
		return
	}
	m.Terminations.WithLabelValues(method).Inc()
}

// RecordShutdown observes a shutdown-all duration.
func (m *Metrics) RecordShutdown(duration time.Duration) {
	if m == nil {
		return
	}
	m.ShutdownDuration.Observe(duration.Seconds())
}

// RecordSweep records one monitoring sweep and the transitions it applied.
func (m *Metrics) RecordSweep(duration time.Duration, transitions map[string]int) {
	if m == nil {
		return
	}
	m.MonitorSweeps.Inc()
	m.MonitorSweepTime.Observe(duration.Seconds())
	for to, n := range transitions {
		m.MonitorStateFlips.WithLabelValues(to).Add(float64(n))
	}
}

// RecordServiceCall records a service call
func (m *Metrics) RecordServiceCall(service, method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ServiceCalls.WithLabelValues(service, method, status).Inc()
	m.ServiceDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordServiceError records a service error
func (m *Metrics) RecordServiceError(service, method, errorType string) {
	if m == nil {
		return
	}
	m.ServiceErrors.WithLabelValues(service, method, errorType).Inc()
}

// SetBreakerState publishes a breaker state (0 closed, 1 half-open, 2 open).
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(name).Set(float64(state))
}

// SetCatalogApps sets the number of catalog applications
func (m *Metrics) SetCatalogApps(count int) {
	if m == nil {
		return
	}
	m.CatalogApps.Set(float64(count))
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
