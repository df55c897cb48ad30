package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// Lifecycle config
	assert.Equal(t, 5*time.Second, cfg.Lifecycle.MonitorInterval)
	assert.Equal(t, 5*time.Second, cfg.Lifecycle.GracefulTimeout)
	assert.Equal(t, 3*time.Second, cfg.Lifecycle.KillTimeout)

	// Android config
	assert.Equal(t, 15*time.Second, cfg.Android.LaunchTimeout)
	assert.False(t, cfg.Android.Enabled)
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":               "9000",
		"HOST":               "0.0.0.0",
		"ALLOWED_ORIGINS":    "http://a.local,http://b.local",
		"LOG_LEVEL":          "debug",
		"LOG_DEV":            "true",
		"RATE_LIMIT_RPS":     "500",
		"RATE_LIMIT_ENABLED": "false",
		"MONITOR_INTERVAL":   "750ms",
		"GRACEFUL_TIMEOUT":   "2s",
		"CHROME_PATH":        "/opt/google/chrome/chrome",
		"ANDROID_ENABLED":    "true",
		"ANDROID_APK_DIRS":   "/srv/apk,/home/kiosk/apk",
		"CATALOG_PATH":       "/etc/launcher/catalog.toml",
		"AUDIT_ENABLED":      "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 750*time.Millisecond, cfg.Lifecycle.MonitorInterval)
	assert.Equal(t, 2*time.Second, cfg.Lifecycle.GracefulTimeout)
	assert.Equal(t, "/opt/google/chrome/chrome", cfg.Launchers.ChromePath)
	assert.True(t, cfg.Android.Enabled)
	assert.Equal(t, []string{"/srv/apk", "/home/kiosk/apk"}, cfg.Android.APKDirectories)
	assert.Equal(t, "/etc/launcher/catalog.toml", cfg.Catalog.Path)
	assert.False(t, cfg.Audit.Enabled)
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("MONITOR_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")

	cfg := LoadOrDefault()
	assert.Equal(t, 5*time.Second, cfg.Lifecycle.MonitorInterval)
}

func TestLoggingConfig(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		dev       string
		wantLevel string
		wantDev   bool
	}{
		{
			name:      "default values",
			wantLevel: "info",
		},
		{
			name:      "debug level",
			level:     "debug",
			wantLevel: "debug",
		},
		{
			name:      "development mode",
			dev:       "true",
			wantLevel: "info",
			wantDev:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("LOG_LEVEL")
			os.Unsetenv("LOG_DEV")

			if tt.level != "" {
				t.Setenv("LOG_LEVEL", tt.level)
			}
			if tt.dev != "" {
				t.Setenv("LOG_DEV", tt.dev)
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantLevel, cfg.Logging.Level)
			assert.Equal(t, tt.wantDev, cfg.Logging.Development)
		})
	}
}
