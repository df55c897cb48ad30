package launcher

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/process"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

const titleResolveTimeout = 3 * time.Second

// ChromeAppOptions configures the Chrome app launcher
type ChromeAppOptions struct {
	// ChromePath is used when the application record does not name Chrome.
	ChromePath string
	WindowWait time.Duration
	// Resolver, when set, replaces the host-derived expected title with the
	// page's real title.
	Resolver TitleResolver
}

// ChromeAppLauncher opens sites as Chrome app-mode windows
type ChromeAppLauncher struct {
	base
	chromePath string
	resolver   TitleResolver
}

// NewChromeAppLauncher creates the Chrome app launcher
func NewChromeAppLauncher(d Deps, opts ChromeAppOptions) *ChromeAppLauncher {
	l := &ChromeAppLauncher{
		base:       newBase("chrome_app", 30, d, opts.WindowWait),
		chromePath: opts.ChromePath,
		resolver:   opts.Resolver,
	}
	l.locate = l.appWindow
	return l
}

// site returns the page a Chrome app record opens: the --app= argument, or
// the executable path itself when it is a URL.
func site(app *types.Application) string {
	if u := AppURL(SplitArgs(app.Arguments)); u != "" {
		return u
	}
	p := strings.TrimSpace(app.ExecutablePath)
	if IsHTTPURL(p) || strings.HasPrefix(strings.ToLower(p), "file:///") {
		return p
	}
	return ""
}

func validSite(s string) bool {
	return IsHTTPURL(s) || strings.HasPrefix(strings.ToLower(s), "file:///")
}

// CanLaunch accepts chrome_app records with a usable site and desktop
// records that start Chrome with --app=.
func (l *ChromeAppLauncher) CanLaunch(app *types.Application) bool {
	if app == nil {
		return false
	}
	switch app.Type {
	case types.TypeChromeApp:
		return validSite(site(app))
	case types.TypeDesktop:
		return IsChromeExecutable(app.ExecutablePath) && validSite(AppURL(SplitArgs(app.Arguments)))
	}
	return false
}

func (l *ChromeAppLauncher) Launch(ctx context.Context, app *types.Application, launchedBy string) (res *types.LaunchResult, err error) {
	if err := checkArgs(app, launchedBy); err != nil {
		return nil, err
	}
	begin := l.now()
	defer guard(l.log, l.name, begin, &res, &err)

	if !l.CanLaunch(app) {
		return types.LaunchUnsupported(app, l.name), nil
	}

	target := site(app)
	exe := l.chromePath
	if IsChromeExecutable(app.ExecutablePath) {
		exe = app.ExecutablePath
	}
	if exe == "" {
		return types.LaunchFailed(types.FailureProcessStart, "no Chrome executable configured for app "+app.ID, nil, l.now().Sub(begin)), nil
	}

	args := SplitArgs(app.Arguments)
	if AppURL(args) == "" {
		args = append(args, appFlag+target)
	}

	title := l.expectedTitle(ctx, target)
	s, failed := l.startAndWait(ctx, exe, args, app.WorkingDirectory, l.windowWait, func(pid int) *types.WindowInfo {
		return l.findAppWindow(ctx, exe, title, pid)
	})
	if failed != nil {
		return failed, nil
	}
	if s.window != nil {
		// Chrome hands app windows to an already running browser process.
		s.pid = s.window.ProcessID
	}

	inst := l.newRunning(app, launchedBy, s, types.ChromeAppInstanceData{
		AppKey:              AppKey(target),
		AppURL:              target,
		ExpectedWindowTitle: title,
	})
	l.log.Info("Launched Chrome app",
		zap.String("app_id", app.ID),
		zap.String("site", target),
		zap.String("expected_title", title),
		zap.Int("pid", inst.ProcessID))
	return types.LaunchSucceeded(inst, l.now().Sub(begin)), nil
}

func (l *ChromeAppLauncher) expectedTitle(ctx context.Context, target string) string {
	title := ExpectedTitle(target)
	if l.resolver == nil || !IsHTTPURL(target) {
		return title
	}
	rctx, cancel := context.WithTimeout(ctx, titleResolveTimeout)
	defer cancel()
	resolved, err := l.resolver.ResolveTitle(rctx, target)
	if err != nil {
		l.log.Debug("Title resolution failed", zap.String("site", target), zap.Error(err))
		return title
	}
	if resolved = strings.TrimSpace(resolved); resolved != "" {
		return resolved
	}
	return title
}

// findAppWindow looks for a window carrying title among all Chrome
// processes, then falls back to the started process's main window.
func (l *ChromeAppLauncher) findAppWindow(ctx context.Context, exe, title string, pid int) *types.WindowInfo {
	if title != "" {
		pids := []int{pid}
		for _, p := range l.monitor.FindProcessesByName(ctx, process.NormalizeName(exe)) {
			pids = append(pids, p.PID)
		}
		if win, err := l.windows.FindByTitle(title, pids); err == nil {
			return win
		}
	}
	return l.mainWindow(pid)
}

// appWindow resolves the current window of a Chrome app instance without
// confusing it with other app windows of the same browser process.
func (l *ChromeAppLauncher) appWindow(inst *types.ApplicationInstance) *types.WindowInfo {
	if inst == nil || !l.windows.Supported() {
		return nil
	}
	if inst.Window != nil {
		if win, err := l.windows.Refresh(inst.Window.Handle); err == nil {
			return win
		}
	}
	if title := inst.ExpectedWindowTitle(); title != "" {
		if win, err := l.windows.FindByTitle(title, []int{inst.ProcessID}); err == nil {
			return win
		}
		return nil
	}
	return l.mainWindow(inst.ProcessID)
}

// FindExistingInstance returns a live instance opened on the same site
func (l *ChromeAppLauncher) FindExistingInstance(_ context.Context, app *types.Application, candidates []*types.ApplicationInstance) (*types.ApplicationInstance, bool) {
	if app == nil {
		return nil, false
	}
	key := AppKey(site(app))
	return l.findAlive(candidates, func(c *types.ApplicationInstance) bool {
		if c.ChromeAppKey() != key {
			return false
		}
		return !l.windows.Supported() || c.Window == nil || l.appWindow(c) != nil
	})
}

// Terminate closes the app window. The browser process may host other
// windows, so graceful success means the window is gone.
func (l *ChromeAppLauncher) Terminate(ctx context.Context, inst *types.ApplicationInstance, mode TerminateMode, timeout time.Duration) bool {
	if inst == nil {
		return false
	}
	if mode == Force || !l.windows.Supported() {
		return l.base.Terminate(ctx, inst, mode, timeout)
	}
	win := l.appWindow(inst)
	if win == nil {
		return true
	}
	if !l.windows.RequestClose(win.Handle) {
		return false
	}
	gone := l.waitForWindow(ctx, timeout, func() *types.WindowInfo {
		if _, err := l.windows.Refresh(win.Handle); err != nil {
			return win
		}
		return nil
	})
	return gone != nil
}

// Probe reports the instance dead once its window is gone, even when the
// shared browser process lives on.
func (l *ChromeAppLauncher) Probe(_ context.Context, inst *types.ApplicationInstance) Probe {
	p := l.probe(inst)
	if p.Alive && l.windows.Supported() && inst.Window != nil && p.Window == nil {
		p.Alive = false
		p.Responding = false
	}
	return p
}
