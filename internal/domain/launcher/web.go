package launcher

import (
	"context"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/process"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// WebLauncher opens web applications in an external browser window
type WebLauncher struct {
	base
	browser string
}

// NewWebLauncher creates the web launcher. An empty browser path selects
// the platform default.
func NewWebLauncher(d Deps, browser string, windowWait time.Duration) *WebLauncher {
	if browser == "" {
		browser = DefaultBrowser()
	}
	return &WebLauncher{base: newBase("web", 50, d, windowWait), browser: browser}
}

// DefaultBrowser returns the browser used when none is configured
func DefaultBrowser() string {
	switch runtime.GOOS {
	case "windows":
		return `C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`
	case "darwin":
		return "open"
	}
	return "xdg-open"
}

// CanLaunch accepts web applications whose path is an http(s) URL
func (l *WebLauncher) CanLaunch(app *types.Application) bool {
	return app != nil && app.Type == types.TypeWeb && IsHTTPURL(app.ExecutablePath)
}

// browserArgs asks real browsers for a new window; openers take the URL only.
func browserArgs(browser, target, extra string) []string {
	args := SplitArgs(extra)
	switch process.NormalizeName(browser) {
	case "xdg-open", "open":
	default:
		args = append(args, "--new-window")
	}
	return append(args, target)
}

func (l *WebLauncher) Launch(ctx context.Context, app *types.Application, launchedBy string) (res *types.LaunchResult, err error) {
	if err := checkArgs(app, launchedBy); err != nil {
		return nil, err
	}
	begin := l.now()
	defer guard(l.log, l.name, begin, &res, &err)

	if !l.CanLaunch(app) {
		return types.LaunchUnsupported(app, l.name), nil
	}

	target := strings.TrimSpace(app.ExecutablePath)
	h := l.watchHandoff(ctx, l.browser)
	s, failed := l.startAndWait(ctx, l.browser, browserArgs(l.browser, target, app.Arguments), app.WorkingDirectory, l.windowWait, func(pid int) *types.WindowInfo {
		if win := l.mainWindow(pid); win != nil {
			return win
		}
		return l.handedOff(h, "")
	})
	if failed != nil {
		return failed, nil
	}
	if s.window != nil {
		s.pid = s.window.ProcessID
	}

	inst := l.newRunning(app, launchedBy, s, types.WebInstanceData{URL: target})
	l.log.Info("Opened web application",
		zap.String("app_id", app.ID),
		zap.String("url", target),
		zap.Int("pid", inst.ProcessID))
	return types.LaunchSucceeded(inst, l.now().Sub(begin)), nil
}

// FindExistingInstance returns a live external-browser instance of the URL
func (l *WebLauncher) FindExistingInstance(_ context.Context, app *types.Application, candidates []*types.ApplicationInstance) (*types.ApplicationInstance, bool) {
	if app == nil {
		return nil, false
	}
	target := strings.TrimSpace(app.ExecutablePath)
	return l.findAlive(candidates, func(c *types.ApplicationInstance) bool {
		d, ok := c.Data.(types.WebInstanceData)
		return ok && !d.Embedded && strings.EqualFold(d.URL, target)
	})
}
