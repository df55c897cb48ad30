package launcher

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// DesktopLauncher starts native executables
type DesktopLauncher struct {
	base
}

// NewDesktopLauncher creates the desktop launcher
func NewDesktopLauncher(d Deps, windowWait time.Duration) *DesktopLauncher {
	return &DesktopLauncher{base: newBase("desktop", 10, d, windowWait)}
}

// CanLaunch accepts desktop applications with an executable path, except
// Chrome started with --app= which belongs to the Chrome app launcher.
func (l *DesktopLauncher) CanLaunch(app *types.Application) bool {
	if app == nil || app.Type != types.TypeDesktop || strings.TrimSpace(app.ExecutablePath) == "" {
		return false
	}
	if IsHTTPURL(app.ExecutablePath) {
		return false
	}
	return !(IsChromeExecutable(app.ExecutablePath) && HasAppArgument(app.Arguments))
}

func (l *DesktopLauncher) Launch(ctx context.Context, app *types.Application, launchedBy string) (res *types.LaunchResult, err error) {
	if err := checkArgs(app, launchedBy); err != nil {
		return nil, err
	}
	begin := l.now()
	defer guard(l.log, l.name, begin, &res, &err)

	if !l.CanLaunch(app) {
		return types.LaunchUnsupported(app, l.name), nil
	}

	args := SplitArgs(app.Arguments)
	s, failed := l.startAndWait(ctx, app.ExecutablePath, args, app.WorkingDirectory, l.windowWait, nil)
	if failed != nil {
		return failed, nil
	}

	inst := l.newRunning(app, launchedBy, s, types.DesktopInstanceData{
		WorkingDirectory: app.WorkingDirectory,
		CommandLine:      strings.TrimSpace(app.ExecutablePath + " " + app.Arguments),
	})
	l.log.Info("Launched desktop application",
		zap.String("app_id", app.ID),
		zap.Int("pid", inst.ProcessID),
		zap.String("instance_id", inst.InstanceID))
	return types.LaunchSucceeded(inst, l.now().Sub(begin)), nil
}
