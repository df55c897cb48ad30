package launcher

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/id"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// syntheticPIDBase is the first placeholder pid handed to embedded-browser
// sessions. It sits far above real pid ranges.
const syntheticPIDBase = 900_000_000

// Host is the embedded browser that renders web sessions inside the shell
type Host interface {
	Available() bool
	Open(ctx context.Context, sessionID, url, title string) error
	Focus(sessionID string) bool
	Close(sessionID string) bool
	IsOpen(sessionID string) bool
}

// WebViewLauncher runs web applications as virtual instances inside the
// shell's embedded browser.
type WebViewLauncher struct {
	host    Host
	log     *logging.Logger
	now     func() time.Time
	nextPID atomic.Int64
}

// NewWebViewLauncher creates the embedded-browser launcher
func NewWebViewLauncher(host Host, log *logging.Logger) *WebViewLauncher {
	l := &WebViewLauncher{host: host, log: logging.OrNop(log).Named("launcher.webview"), now: time.Now}
	l.nextPID.Store(syntheticPIDBase)
	return l
}

func (l *WebViewLauncher) Name() string  { return "webview" }
func (l *WebViewLauncher) Priority() int { return 100 }

// CanLaunch accepts web applications with an http(s) URL while a host is
// attached.
func (l *WebViewLauncher) CanLaunch(app *types.Application) bool {
	if app == nil || app.Type != types.TypeWeb || !IsHTTPURL(app.ExecutablePath) {
		return false
	}
	return l.host != nil && l.host.Available()
}

func (l *WebViewLauncher) Launch(ctx context.Context, app *types.Application, launchedBy string) (res *types.LaunchResult, err error) {
	if err := checkArgs(app, launchedBy); err != nil {
		return nil, err
	}
	begin := l.now()
	defer guard(l.log, l.Name(), begin, &res, &err)

	if !l.CanLaunch(app) {
		return types.LaunchUnsupported(app, l.Name()), nil
	}

	target := strings.TrimSpace(app.ExecutablePath)
	session := id.NewSessionID().String()
	if err := l.host.Open(ctx, session, target, app.Name); err != nil {
		l.log.Warn("Embedded browser refused session", zap.String("app_id", app.ID), zap.Error(err))
		return types.LaunchFailed(types.FailureBridge, "embedded browser could not open "+target, err, l.now().Sub(begin)), nil
	}

	now := l.now()
	pid := int(l.nextPID.Add(1))
	inst := types.NewInstance(app, launchedBy, pid, types.WebInstanceData{URL: target, SessionID: session, Embedded: true}, now)
	inst.IsVirtual = true
	inst.ProcessName = "webview"
	inst.Launcher = l.Name()
	_ = inst.TransitionTo(types.StateRunning, now)

	l.log.Info("Opened embedded web session",
		zap.String("app_id", app.ID),
		zap.String("session_id", session),
		zap.String("instance_id", inst.InstanceID))
	return types.LaunchSucceeded(inst, l.now().Sub(begin)), nil
}

func (l *WebViewLauncher) sessionOf(inst *types.ApplicationInstance) string {
	if inst == nil || l.host == nil {
		return ""
	}
	return inst.SessionID()
}

// FindExistingInstance returns an open session showing the same URL
func (l *WebViewLauncher) FindExistingInstance(_ context.Context, app *types.Application, candidates []*types.ApplicationInstance) (*types.ApplicationInstance, bool) {
	if app == nil || l.host == nil {
		return nil, false
	}
	target := strings.TrimSpace(app.ExecutablePath)
	for _, c := range candidates {
		if c == nil || !c.IsActiveInstance() || !strings.EqualFold(c.WebURL(), target) {
			continue
		}
		if s := l.sessionOf(c); s != "" && l.host.IsOpen(s) {
			return c, true
		}
	}
	return nil, false
}

// SwitchTo focuses the session; unknown sessions report false.
func (l *WebViewLauncher) SwitchTo(_ context.Context, inst *types.ApplicationInstance) bool {
	s := l.sessionOf(inst)
	return s != "" && l.host.Focus(s)
}

// Terminate closes the session. Both modes are the same for a virtual
// instance.
func (l *WebViewLauncher) Terminate(_ context.Context, inst *types.ApplicationInstance, _ TerminateMode, _ time.Duration) bool {
	s := l.sessionOf(inst)
	if s == "" {
		return false
	}
	if !l.host.IsOpen(s) {
		return false
	}
	return l.host.Close(s)
}

// Cleanup closes a session that is still open
func (l *WebViewLauncher) Cleanup(_ context.Context, inst *types.ApplicationInstance) bool {
	s := l.sessionOf(inst)
	if s == "" {
		return false
	}
	if l.host.IsOpen(s) {
		return l.host.Close(s)
	}
	return true
}

// Probe reports whether the session is still open in the host
func (l *WebViewLauncher) Probe(_ context.Context, inst *types.ApplicationInstance) Probe {
	s := l.sessionOf(inst)
	open := s != "" && l.host.IsOpen(s)
	return Probe{Alive: open, Responding: open, ProcessName: "webview"}
}
