package server

import (
	"github.com/GriffinCanCode/AppLauncher/backend/internal/domain/launcher"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/android"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/process"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/window"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/providers/webtitle"
)

type launcherDeps struct {
	monitor *process.Monitor
	windows window.Manager
	host    launcher.Host
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// breaker creates a circuit breaker whose state is published as a metric
func breaker(name string, metrics *monitoring.Metrics) *resilience.Breaker {
	return resilience.New(name, resilience.Settings{
		OnStateChange: func(name string, _ resilience.State, to resilience.State) {
			metrics.SetBreakerState(name, int(to))
		},
	})
}

// buildLaunchers registers the launchers enabled by cfg
func buildLaunchers(cfg *config.Config, d launcherDeps) *launcher.Registry {
	deps := launcher.Deps{
		Monitor: d.monitor,
		Windows: d.windows,
		Starter: launcher.NewExecStarter(d.logger),
		Logger:  d.logger,
	}

	chrome := launcher.ChromeAppOptions{
		ChromePath: cfg.Launchers.ChromePath,
		WindowWait: cfg.Lifecycle.ChromeWindowWait,
	}
	if cfg.Launchers.ResolveTitles {
		chrome.Resolver = webtitle.New(
			webtitle.WithBreaker(breaker("webtitle", d.metrics)),
			webtitle.WithLogger(d.logger),
		)
	}

	reg := launcher.NewRegistry(
		launcher.NewDesktopLauncher(deps, cfg.Lifecycle.WindowWait),
		launcher.NewChromeAppLauncher(deps, chrome),
		launcher.NewWebLauncher(deps, cfg.Launchers.BrowserPath, cfg.Lifecycle.WindowWait),
		launcher.NewFolderLauncher(deps, cfg.Launchers.FileManagerPath, cfg.Lifecycle.WindowWait),
	)

	if cfg.Launchers.EmbeddedWeb && d.host != nil {
		reg.Register(launcher.NewWebViewLauncher(d.host, d.logger))
	}

	if cfg.Android.Enabled {
		bridge := android.NewADBBridge(android.Config{
			ADBPath:  cfg.Android.ADBPath,
			AAPTPath: cfg.Android.AAPTPath,
			Serial:   cfg.Android.Serial,
		}, nil, breaker("android", d.metrics), d.logger)
		reg.Register(launcher.NewAndroidLauncher(bridge, cfg.Android.LaunchTimeout, d.logger))
	}
	return reg
}
