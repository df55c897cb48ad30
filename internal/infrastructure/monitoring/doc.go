/*
Package monitoring provides Prometheus metrics for the launcher.

# Overview

Metrics are registered on a caller-supplied registerer so tests and embedded
servers can use an isolated prometheus.Registry. All Record and Set helpers
are safe on a nil *Metrics, which lets domain services treat metrics as
optional.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))

	metrics.RecordLaunch("desktop", "new", "none", true, 120*time.Millisecond)
	metrics.SetInstances(3, map[string]int{"running": 3}, 512)

	timer := monitoring.NewTimer(metrics, "lifecycle", "close")
	// ... perform operation ...
	timer.StopErr(err)

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
