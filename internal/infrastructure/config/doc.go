// Package config provides 12-factor configuration for the launcher backend.
//
// Configuration is loaded from environment variables with defaults matching
// Default(). Sections:
//   - Server: HTTP listen address, CORS origins, shutdown budget
//   - Logging: level and development mode
//   - RateLimit: per-IP request limiting
//   - Lifecycle: monitoring interval and termination timeouts
//   - Launchers: browser, Chrome and file manager executables
//   - Android: adb/aapt paths and device serial
//   - Catalog: application catalog file and hot reload
//   - Audit: SQLite audit database
//
// Example:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("listening on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
package config
