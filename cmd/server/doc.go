// Package main is the entry point for the application launcher backend.
//
// The server loads the application catalog, registers the launchers
// available on this host and exposes the lifecycle service over REST and
// a WebSocket event stream consumed by the desktop shell.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	./server -port 8000 -catalog /etc/launcher/catalog.yaml
//
//	# Development mode (colored logs)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
