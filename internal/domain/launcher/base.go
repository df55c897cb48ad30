package launcher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/process"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/window"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

const (
	// DefaultWindowWait bounds the wait for a main window after start
	DefaultWindowWait = 10 * time.Second
	windowPoll        = 100 * time.Millisecond
)

// Deps are the collaborators shared by process-backed launchers
type Deps struct {
	Monitor *process.Monitor
	Windows window.Manager
	Starter Starter
	Logger  *logging.Logger
	// Clock defaults to time.Now
	Clock func() time.Time
}

// base carries the behaviour common to launchers that start real processes.
type base struct {
	name       string
	priority   int
	monitor    *process.Monitor
	windows    window.Manager
	starter    Starter
	log        *logging.Logger
	now        func() time.Time
	windowWait time.Duration
	// locate overrides how an instance's current window is found
	locate func(*types.ApplicationInstance) *types.WindowInfo
}

func newBase(name string, priority int, d Deps, windowWait time.Duration) base {
	if d.Windows == nil {
		d.Windows = window.Headless{}
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if windowWait <= 0 {
		windowWait = DefaultWindowWait
	}
	return base{
		name:       name,
		priority:   priority,
		monitor:    d.Monitor,
		windows:    d.Windows,
		starter:    d.Starter,
		log:        logging.OrNop(d.Logger).Named("launcher." + name),
		now:        d.Clock,
		windowWait: windowWait,
	}
}

func (b *base) Name() string  { return b.name }
func (b *base) Priority() int { return b.priority }

// checkArgs enforces the argument contract shared by every Launch.
func checkArgs(app *types.Application, launchedBy string) error {
	if app == nil {
		return fmt.Errorf("%w: application is nil", ErrInvalidArgument)
	}
	if strings.TrimSpace(launchedBy) == "" {
		return fmt.Errorf("%w: launchedBy is empty", ErrInvalidArgument)
	}
	return nil
}

// guard converts a panic inside a launch into an unexpected failure result.
func guard(log *logging.Logger, launcher string, start time.Time, res **types.LaunchResult, err *error) {
	if r := recover(); r != nil {
		log.Error("Launch panicked", zap.Any("panic", r))
		*res = types.LaunchFailed(types.FailureUnexpected, fmt.Sprintf("%s launcher failed unexpectedly", launcher),
			fmt.Errorf("panic: %v", r), time.Since(start))
		*err = nil
	}
}

// started is the outcome of startAndWait
type started struct {
	pid    int
	window *types.WindowInfo
}

// startAndWait starts path and waits for its window. match picks the
// window; nil means the main window of the started pid. On window timeout
// the started process is killed.
func (b *base) startAndWait(ctx context.Context, path string, args []string, dir string, wait time.Duration,
	match func(pid int) *types.WindowInfo) (started, *types.LaunchResult) {

	begin := b.now()
	pid, err := b.starter.Start(ctx, path, args, dir)
	if err != nil {
		b.log.Warn("Process start failed", zap.String("path", path), zap.Error(err))
		return started{}, types.LaunchFailed(types.FailureProcessStart,
			fmt.Sprintf("failed to start %s: %v", path, err), err, b.now().Sub(begin))
	}

	if !b.windows.Supported() {
		return started{pid: pid}, nil
	}
	if match == nil {
		match = b.mainWindow
	}

	win := b.waitForWindow(ctx, wait, func() *types.WindowInfo { return match(pid) })
	if win != nil {
		return started{pid: pid, window: win}, nil
	}

	if !b.monitor.IsProcessAlive(pid) {
		return started{}, types.LaunchFailed(types.FailureProcessStart,
			fmt.Sprintf("%s exited before showing a window", path), nil, b.now().Sub(begin))
	}
	b.log.Warn("No window within timeout, killing process", zap.Int("pid", pid), zap.Duration("timeout", wait))
	b.monitor.KillProcess(context.WithoutCancel(ctx), pid, time.Second)
	return started{}, types.LaunchFailed(types.FailureWindowTimeout,
		fmt.Sprintf("%s showed no window within %s", path, wait), nil, b.now().Sub(begin))
}

// waitForWindow polls find until it returns a window, timeout passes or
// ctx ends.
func (b *base) waitForWindow(ctx context.Context, timeout time.Duration, find func() *types.WindowInfo) *types.WindowInfo {
	if win := find(); win != nil {
		return win
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(windowPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			return find()
		case <-ticker.C:
			if win := find(); win != nil {
				return win
			}
		}
	}
}

// handoff remembers the windows of processes sharing an opener's executable
// name. Openers like explorer.exe or msedge.exe pass the new window to an
// already running instance and exit.
type handoff struct {
	pids  []int
	known map[uintptr]bool
}

// watchHandoff snapshots the windows of every running process named like
// exe. It must run before the opener is started.
func (b *base) watchHandoff(ctx context.Context, exe string) *handoff {
	h := &handoff{known: make(map[uintptr]bool)}
	if !b.windows.Supported() {
		return h
	}
	for _, p := range b.monitor.FindProcessesByName(ctx, process.NormalizeName(exe)) {
		h.pids = append(h.pids, p.PID)
	}
	if len(h.pids) == 0 {
		return h
	}
	for _, w := range b.windows.List(h.pids) {
		h.known[w.Handle] = true
	}
	return h
}

// handedOff returns a window that appeared on a watched process after the
// snapshot. With a title, only windows whose title contains it qualify.
func (b *base) handedOff(h *handoff, title string) *types.WindowInfo {
	if h == nil || len(h.pids) == 0 {
		return nil
	}
	want := strings.ToLower(title)
	for _, w := range b.windows.List(h.pids) {
		if h.known[w.Handle] {
			continue
		}
		if want == "" || strings.Contains(strings.ToLower(w.Title), want) {
			return w
		}
	}
	return nil
}

func (b *base) mainWindow(pid int) *types.WindowInfo {
	win, err := b.windows.MainWindow(pid)
	if err != nil {
		return nil
	}
	return win
}

// newRunning builds a Running instance for a freshly started process.
func (b *base) newRunning(app *types.Application, launchedBy string, s started, data types.InstanceData) *types.ApplicationInstance {
	now := b.now()
	inst := types.NewInstance(app, launchedBy, s.pid, data, now)
	inst.Launcher = b.name
	inst.Window = s.window
	if info, err := b.monitor.GetProcessInfo(s.pid); err == nil {
		inst.ProcessName = info.Name
		inst.MemoryUsageMB = info.MemoryMB
		inst.IsResponding = info.IsResponding
	}
	_ = inst.TransitionTo(types.StateRunning, now)
	return inst
}

// resolveWindow finds the current window of inst: the remembered handle
// when it is still valid, else the main window of its process.
func (b *base) resolveWindow(inst *types.ApplicationInstance) *types.WindowInfo {
	if inst == nil || !b.windows.Supported() {
		return nil
	}
	if inst.Window != nil {
		if win, err := b.windows.Refresh(inst.Window.Handle); err == nil {
			return win
		}
	}
	return b.mainWindow(inst.ProcessID)
}

func (b *base) window(inst *types.ApplicationInstance) *types.WindowInfo {
	if b.locate != nil {
		return b.locate(inst)
	}
	return b.resolveWindow(inst)
}

func (b *base) findAlive(candidates []*types.ApplicationInstance, accept func(*types.ApplicationInstance) bool) (*types.ApplicationInstance, bool) {
	for _, c := range candidates {
		if c == nil || !c.IsActiveInstance() || c.State == types.StateClosing {
			continue
		}
		if accept != nil && !accept(c) {
			continue
		}
		if b.monitor.IsProcessAlive(c.ProcessID) {
			return c, true
		}
	}
	return nil, false
}

func (b *base) switchTo(win *types.WindowInfo) bool {
	if win == nil {
		return false
	}
	if win.IsMinimized && !b.windows.Restore(win.Handle) {
		return false
	}
	return b.windows.Activate(win.Handle)
}

func (b *base) FindExistingInstance(_ context.Context, _ *types.Application, candidates []*types.ApplicationInstance) (*types.ApplicationInstance, bool) {
	return b.findAlive(candidates, nil)
}

func (b *base) SwitchTo(_ context.Context, inst *types.ApplicationInstance) bool {
	return b.switchTo(b.window(inst))
}

func (b *base) Minimize(_ context.Context, inst *types.ApplicationInstance) bool {
	win := b.window(inst)
	return win != nil && b.windows.Minimize(win.Handle)
}

func (b *base) Restore(_ context.Context, inst *types.ApplicationInstance) bool {
	win := b.window(inst)
	return win != nil && b.windows.Restore(win.Handle)
}

// Terminate closes or kills the instance's process and reports whether it
// is gone.
func (b *base) Terminate(ctx context.Context, inst *types.ApplicationInstance, mode TerminateMode, timeout time.Duration) bool {
	if inst == nil {
		return false
	}
	if mode == Force {
		return b.monitor.KillProcess(ctx, inst.ProcessID, timeout)
	}
	if win := b.window(inst); win != nil && win.ProcessID == inst.ProcessID {
		if b.windows.RequestClose(win.Handle) {
			return b.monitor.WaitForExit(ctx, inst.ProcessID, timeout)
		}
	}
	return b.monitor.CloseProcessGracefully(ctx, inst.ProcessID, timeout)
}

// Cleanup forgets the sampling history of the process.
func (b *base) Cleanup(_ context.Context, inst *types.ApplicationInstance) bool {
	if inst == nil {
		return false
	}
	b.monitor.Forget(inst.ProcessID)
	return true
}

// Probe samples the process and refreshes its window.
func (b *base) Probe(_ context.Context, inst *types.ApplicationInstance) Probe {
	return b.probe(inst)
}

func (b *base) probe(inst *types.ApplicationInstance) Probe {
	if inst == nil {
		return Probe{}
	}
	info := b.monitor.Sample(inst.ProcessID)
	if info == nil {
		alive := b.monitor.IsProcessAlive(inst.ProcessID)
		return Probe{Alive: alive, Responding: alive && inst.IsResponding, MemoryMB: inst.MemoryUsageMB, ProcessName: inst.ProcessName}
	}
	p := Probe{Alive: true, Responding: info.IsResponding, MemoryMB: info.MemoryMB, ProcessName: info.Name}
	if win := b.window(inst); win != nil {
		p.Window = win
		if b.windows.IsHung(win.Handle) {
			p.Responding = false
		}
	}
	return p
}
