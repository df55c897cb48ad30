// Package server assembles the launcher: configuration, platform probes,
// launchers, the lifecycle service, the catalog, the audit log and the HTTP
// and WebSocket surfaces.
package server
