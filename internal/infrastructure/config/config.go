package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Lifecycle LifecycleConfig
	Launchers LauncherConfig
	Android   AndroidConfig
	Catalog   CatalogConfig
	Audit     AuditConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8000"`
	Host            string        `envconfig:"HOST" default:"127.0.0.1"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// LifecycleConfig holds monitoring and termination budgets.
type LifecycleConfig struct {
	MonitorInterval  time.Duration `envconfig:"MONITOR_INTERVAL" default:"5s"`
	AutoMonitor      bool          `envconfig:"MONITOR_AUTOSTART" default:"true"`
	GracefulTimeout  time.Duration `envconfig:"GRACEFUL_TIMEOUT" default:"5s"`
	KillTimeout      time.Duration `envconfig:"KILL_TIMEOUT" default:"3s"`
	ShutdownOnExit   bool          `envconfig:"SHUTDOWN_ON_EXIT" default:"false"`
	MaxInstanceAge   time.Duration `envconfig:"MAX_INSTANCE_AGE" default:"0"`
	BulkConcurrency  int           `envconfig:"BULK_CONCURRENCY" default:"8"`
	WindowWait       time.Duration `envconfig:"WINDOW_WAIT" default:"10s"`
	ChromeWindowWait time.Duration `envconfig:"CHROME_WINDOW_WAIT" default:"10s"`
}

// LauncherConfig holds paths of the external programs launchers delegate to.
type LauncherConfig struct {
	BrowserPath     string `envconfig:"BROWSER_PATH" default:""`
	ChromePath      string `envconfig:"CHROME_PATH" default:""`
	FileManagerPath string `envconfig:"FILE_MANAGER_PATH" default:""`
	ResolveTitles   bool   `envconfig:"RESOLVE_TITLES" default:"false"`
	EmbeddedWeb     bool   `envconfig:"EMBEDDED_WEB" default:"true"`
}

// AndroidConfig holds Android bridge configuration.
type AndroidConfig struct {
	Enabled        bool          `envconfig:"ANDROID_ENABLED" default:"false"`
	ADBPath        string        `envconfig:"ADB_PATH" default:"adb"`
	AAPTPath       string        `envconfig:"AAPT_PATH" default:"aapt"`
	Serial         string        `envconfig:"ANDROID_SERIAL" default:"127.0.0.1:58526"`
	LaunchTimeout  time.Duration `envconfig:"ANDROID_LAUNCH_TIMEOUT" default:"15s"`
	APKDirectories []string      `envconfig:"ANDROID_APK_DIRS" default:""`
}

// CatalogConfig holds application catalog configuration.
type CatalogConfig struct {
	Path  string `envconfig:"CATALOG_PATH" default:"catalog.yaml"`
	Watch bool   `envconfig:"CATALOG_WATCH" default:"true"`
}

// AuditConfig holds audit sink configuration.
type AuditConfig struct {
	Enabled bool   `envconfig:"AUDIT_ENABLED" default:"true"`
	DSN     string `envconfig:"AUDIT_DSN" default:"file:launcher-audit.db?_busy_timeout=5000"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8000",
			Host:            "127.0.0.1",
			AllowedOrigins:  []string{"http://localhost:5173"},
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Lifecycle: LifecycleConfig{
			MonitorInterval:  5 * time.Second,
			AutoMonitor:      true,
			GracefulTimeout:  5 * time.Second,
			KillTimeout:      3 * time.Second,
			BulkConcurrency:  8,
			WindowWait:       10 * time.Second,
			ChromeWindowWait: 10 * time.Second,
		},
		Launchers: LauncherConfig{
			EmbeddedWeb: true,
		},
		Android: AndroidConfig{
			ADBPath:       "adb",
			AAPTPath:      "aapt",
			Serial:        "127.0.0.1:58526",
			LaunchTimeout: 15 * time.Second,
		},
		Catalog: CatalogConfig{
			Path:  "catalog.yaml",
			Watch: true,
		},
		Audit: AuditConfig{
			Enabled: true,
			DSN:     "file:launcher-audit.db?_busy_timeout=5000",
		},
	}
}
