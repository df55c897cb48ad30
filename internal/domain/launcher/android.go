package launcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/android"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// DefaultAndroidLaunchTimeout bounds one launch through the bridge
const DefaultAndroidLaunchTimeout = 15 * time.Second

// AndroidLauncher starts Android packages through the subsystem bridge.
// Its instances are virtual: the pid belongs to the subsystem, not the host.
type AndroidLauncher struct {
	bridge  android.Bridge
	log     *logging.Logger
	now     func() time.Time
	timeout time.Duration
	nextPID atomic.Int64
}

// NewAndroidLauncher creates the Android launcher
func NewAndroidLauncher(bridge android.Bridge, timeout time.Duration, log *logging.Logger) *AndroidLauncher {
	if timeout <= 0 {
		timeout = DefaultAndroidLaunchTimeout
	}
	l := &AndroidLauncher{
		bridge:  bridge,
		log:     logging.OrNop(log).Named("launcher.android"),
		now:     time.Now,
		timeout: timeout,
	}
	l.nextPID.Store(syntheticPIDBase + 500_000_000)
	return l
}

func (l *AndroidLauncher) Name() string  { return "android" }
func (l *AndroidLauncher) Priority() int { return 40 }

func isAPK(path string) bool {
	return strings.EqualFold(filepath.Ext(strings.TrimSpace(path)), ".apk")
}

// CanLaunch accepts android records naming an .apk file or a package
func (l *AndroidLauncher) CanLaunch(app *types.Application) bool {
	if app == nil || app.Type != types.TypeAndroid || l.bridge == nil {
		return false
	}
	p := strings.TrimSpace(app.ExecutablePath)
	return isAPK(p) || android.IsPackageName(p)
}

func (l *AndroidLauncher) Launch(ctx context.Context, app *types.Application, launchedBy string) (res *types.LaunchResult, err error) {
	if err := checkArgs(app, launchedBy); err != nil {
		return nil, err
	}
	begin := l.now()
	defer guard(l.log, l.Name(), begin, &res, &err)

	if !l.CanLaunch(app) {
		return types.LaunchUnsupported(app, l.Name()), nil
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	path := strings.TrimSpace(app.ExecutablePath)
	data := types.AndroidInstanceData{PackageName: path}
	if isAPK(path) {
		info, err := l.bridge.ExtractMetadata(ctx, path)
		if err != nil || info == nil || info.PackageName == "" {
			if err == nil {
				err = android.ErrMetadata
			}
			l.log.Warn("APK metadata unreadable", zap.String("apk", path), zap.Error(err))
			return types.LaunchFailed(types.FailureMetadataExtraction,
				"could not read package metadata from "+path, err, l.now().Sub(begin)), nil
		}
		data = types.AndroidInstanceData{
			PackageName: info.PackageName,
			Label:       info.Label,
			VersionName: info.VersionName,
			APKPath:     path,
		}
	}

	if !l.bridge.Available(ctx) {
		return types.LaunchFailed(types.FailureBridge, "android subsystem is not available",
			android.ErrUnavailable, l.now().Sub(begin)), nil
	}

	if data.APKPath != "" {
		installed, err := l.bridge.IsInstalled(ctx, data.PackageName)
		if err != nil {
			return types.LaunchFailed(types.FailureBridge, "could not query installed packages", err, l.now().Sub(begin)), nil
		}
		if !installed {
			l.log.Info("Installing package", zap.String("package", data.PackageName), zap.String("apk", path))
			if err := l.bridge.Install(ctx, path); err != nil {
				return types.LaunchFailed(types.FailureBridge,
					fmt.Sprintf("install of %s failed", data.PackageName), err, l.now().Sub(begin)), nil
			}
		}
	}

	pid, err := l.bridge.Launch(ctx, data.PackageName)
	if err != nil {
		return types.LaunchFailed(types.FailureBridge,
			fmt.Sprintf("launch of %s failed", data.PackageName), err, l.now().Sub(begin)), nil
	}
	if pid <= 0 {
		pid = int(l.nextPID.Add(1))
	}

	now := l.now()
	inst := types.NewInstance(app, launchedBy, pid, data, now)
	inst.IsVirtual = true
	inst.ProcessName = data.PackageName
	inst.Launcher = l.Name()
	_ = inst.TransitionTo(types.StateRunning, now)

	l.log.Info("Launched Android package",
		zap.String("app_id", app.ID),
		zap.String("package", data.PackageName),
		zap.Int("pid", pid))
	return types.LaunchSucceeded(inst, l.now().Sub(begin)), nil
}

// running asks the bridge whether pkg has a process. The error is the
// bridge's: the answer is unknown, not negative.
func (l *AndroidLauncher) running(ctx context.Context, pkg string) (bool, error) {
	if pkg == "" || l.bridge == nil {
		return false, nil
	}
	return l.bridge.IsRunning(ctx, pkg)
}

// FindExistingInstance returns a candidate whose package is still running
func (l *AndroidLauncher) FindExistingInstance(ctx context.Context, _ *types.Application, candidates []*types.ApplicationInstance) (*types.ApplicationInstance, bool) {
	for _, c := range candidates {
		if c == nil || !c.IsActiveInstance() || c.State == types.StateClosing {
			continue
		}
		if ok, err := l.running(ctx, c.PackageName()); err == nil && ok {
			return c, true
		}
	}
	return nil, false
}

// SwitchTo brings the package forward by launching it again; the subsystem
// resumes a running activity instead of starting a second one.
func (l *AndroidLauncher) SwitchTo(ctx context.Context, inst *types.ApplicationInstance) bool {
	if inst == nil || inst.PackageName() == "" || l.bridge == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	_, err := l.bridge.Launch(ctx, inst.PackageName())
	return err == nil
}

// Terminate force-stops the package. The subsystem offers no graceful close.
func (l *AndroidLauncher) Terminate(ctx context.Context, inst *types.ApplicationInstance, _ TerminateMode, timeout time.Duration) bool {
	if inst == nil || inst.PackageName() == "" || l.bridge == nil {
		return false
	}
	if timeout <= 0 {
		timeout = l.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := l.bridge.Stop(ctx, inst.PackageName()); err != nil {
		l.log.Warn("Stop failed", zap.String("package", inst.PackageName()), zap.Error(err))
		return false
	}
	return true
}

func (l *AndroidLauncher) Cleanup(ctx context.Context, inst *types.ApplicationInstance) bool {
	if inst == nil || inst.PackageName() == "" || l.bridge == nil {
		return false
	}
	if ok, err := l.running(ctx, inst.PackageName()); err == nil && !ok {
		return true
	}
	return l.bridge.Stop(ctx, inst.PackageName()) == nil
}

func (l *AndroidLauncher) Probe(ctx context.Context, inst *types.ApplicationInstance) Probe {
	if inst == nil {
		return Probe{}
	}
	alive, err := l.running(ctx, inst.PackageName())
	if err != nil {
		l.log.Warn("Package state unknown, keeping recorded state",
			zap.String("instance_id", inst.InstanceID),
			zap.String("package", inst.PackageName()),
			zap.Error(err))
		return Probe{
			Alive:       inst.IsActiveInstance(),
			Responding:  inst.IsResponding,
			MemoryMB:    inst.MemoryUsageMB,
			ProcessName: inst.PackageName(),
		}
	}
	return Probe{Alive: alive, Responding: alive, MemoryMB: inst.MemoryUsageMB, ProcessName: inst.PackageName()}
}
