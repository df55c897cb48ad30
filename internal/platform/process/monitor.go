package process

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

const (
	bytesPerMB          = 1024 * 1024
	defaultPollInterval = 100 * time.Millisecond
)

// Option configures a Monitor
type Option func(*Monitor)

// WithWindows attaches a window prober for hang detection and WM_CLOSE-style
// graceful close.
func WithWindows(w WindowProber) Option {
	return func(m *Monitor) { m.windows = w }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(m *Monitor) { m.log = logging.OrNop(l).Named("process") }
}

// WithPollInterval sets how often exit waits re-probe the process
func WithPollInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.poll = d
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// Monitor wraps a Backend with the never-fail probing contract.
type Monitor struct {
	backend Backend
	windows WindowProber
	log     *logging.Logger
	poll    time.Duration
	now     func() time.Time

	mu       sync.Mutex
	samples  map[int]sample
	handlers []EventHandler
}

// NewMonitor creates a monitor over backend
func NewMonitor(backend Backend, opts ...Option) *Monitor {
	m := &Monitor{
		backend: backend,
		log:     logging.NewNop(),
		poll:    defaultPollInterval,
		now:     time.Now,
		samples: make(map[int]sample),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// recoverProbe turns a panic from the backend into a logged unexpected
// failure. onPanic resets the caller's named results.
func (m *Monitor) recoverProbe(op string, pid int, onPanic func()) {
	if r := recover(); r != nil {
		m.log.Error("process probe panicked",
			zap.String("op", op),
			zap.Int("pid", pid),
			zap.Any("panic", r))
		if onPanic != nil {
			onPanic()
		}
	}
}

func (m *Monitor) logProbeFailure(op string, pid int, err error) {
	switch Classify(err) {
	case KindNotFound:
		return
	case KindAccessDenied:
		m.log.Debug("process access denied", zap.String("op", op), zap.Int("pid", pid))
	default:
		m.log.Warn("process probe failed", zap.String("op", op), zap.Int("pid", pid), zap.Error(err))
	}
}

// IsProcessAlive reports whether pid names a live process. Access denied
// still counts as alive.
func (m *Monitor) IsProcessAlive(pid int) (alive bool) {
	if pid <= 0 {
		return false
	}
	defer m.recoverProbe("IsProcessAlive", pid, func() { alive = false })

	ok, err := m.backend.Alive(pid)
	if err != nil {
		m.logProbeFailure("IsProcessAlive", pid, err)
		return Classify(err) == KindAccessDenied
	}
	return ok
}

// IsProcessResponding is false for missing processes, stopped processes and
// processes whose main window is hung.
func (m *Monitor) IsProcessResponding(pid int) (responding bool) {
	if pid <= 0 {
		return false
	}
	defer m.recoverProbe("IsProcessResponding", pid, func() { responding = false })

	if !m.IsProcessAlive(pid) {
		return false
	}
	ok, err := m.backend.Responding(pid)
	if err != nil {
		m.logProbeFailure("IsProcessResponding", pid, err)
		ok = Classify(err) == KindAccessDenied
	}
	if !ok {
		return false
	}
	if win := m.mainWindow(pid); win != nil {
		return !m.windows.IsHung(win.Handle)
	}
	return true
}

// GetProcessInfo builds a snapshot. Each field is read independently and a
// field failure lands in CollectionErrors; only a missing or inaccessible
// process fails the whole call.
func (m *Monitor) GetProcessInfo(pid int) (info *types.ProcessInfo, err error) {
	if pid <= 0 {
		return nil, &ProbeError{Kind: KindNotFound, Op: "GetProcessInfo", PID: pid, Err: ErrNotFound}
	}
	defer m.recoverProbe("GetProcessInfo", pid, func() {
		info = nil
		err = &ProbeError{Kind: KindUnexpected, Op: "GetProcessInfo", PID: pid, Err: fmt.Errorf("panic during probe")}
	})

	alive, aerr := m.backend.Alive(pid)
	if aerr != nil {
		m.logProbeFailure("GetProcessInfo", pid, aerr)
		return nil, probeError("GetProcessInfo", pid, aerr)
	}
	if !alive {
		return nil, &ProbeError{Kind: KindNotFound, Op: "GetProcessInfo", PID: pid, Err: ErrNotFound}
	}

	info = &types.ProcessInfo{PID: pid, SampledAt: m.now()}
	collect := func(field string, fn func() error) {
		defer func() {
			if r := recover(); r != nil {
				info.CollectionErrors = append(info.CollectionErrors, fmt.Sprintf("%s: panic: %v", field, r))
			}
		}()
		if ferr := fn(); ferr != nil {
			info.CollectionErrors = append(info.CollectionErrors, fmt.Sprintf("%s: %v", field, ferr))
		}
	}

	collect("name", func() (e error) { info.Name, e = m.backend.Name(pid); return })
	collect("executable_path", func() (e error) { info.ExecutablePath, e = m.backend.ExecutablePath(pid); return })
	collect("parent_pid", func() (e error) { info.ParentPID, e = m.backend.ParentPID(pid); return })
	collect("memory", func() error {
		b, e := m.backend.MemoryBytes(pid)
		info.MemoryMB = float64(b) / bytesPerMB
		return e
	})
	collect("start_time", func() (e error) { info.StartTime, e = m.backend.StartTime(pid); return })
	collect("responding", func() error {
		ok, e := m.backend.Responding(pid)
		info.IsResponding = ok
		return e
	})
	collect("main_window", func() error {
		if m.windows == nil || !m.windows.Supported() {
			return nil
		}
		win, e := m.windows.MainWindow(pid)
		if e != nil || win == nil {
			return e
		}
		info.HasWindow = true
		info.MainWindowTitle = win.Title
		if m.windows.IsHung(win.Handle) {
			info.IsResponding = false
		}
		return nil
	})

	return info, nil
}

// GetMemoryUsageMB returns the resident memory in MB, or 0 when unknown.
func (m *Monitor) GetMemoryUsageMB(pid int) (mb float64) {
	if pid <= 0 {
		return 0
	}
	defer m.recoverProbe("GetMemoryUsageMB", pid, func() { mb = 0 })

	b, err := m.backend.MemoryBytes(pid)
	if err != nil {
		m.logProbeFailure("GetMemoryUsageMB", pid, err)
		return 0
	}
	return float64(b) / bytesPerMB
}

// CloseProcessGracefully asks the process to exit and waits up to timeout.
// A process that is already gone counts as closed and nothing is sent.
func (m *Monitor) CloseProcessGracefully(ctx context.Context, pid int, timeout time.Duration) (closed bool) {
	if pid <= 0 {
		return true
	}
	defer m.recoverProbe("CloseProcessGracefully", pid, func() { closed = false })

	if !m.IsProcessAlive(pid) {
		return true
	}

	requested := false
	if win := m.mainWindow(pid); win != nil {
		requested = m.windows.RequestClose(win.Handle)
	}
	if !requested {
		if err := m.backend.RequestClose(pid); err != nil {
			if IsNotFound(err) {
				return true
			}
			m.logProbeFailure("CloseProcessGracefully", pid, err)
			return false
		}
	}

	return m.waitForExit(ctx, pid, timeout)
}

// KillProcess forcibly terminates pid and waits up to timeout for it to go.
func (m *Monitor) KillProcess(ctx context.Context, pid int, timeout time.Duration) (killed bool) {
	if pid <= 0 {
		return true
	}
	defer m.recoverProbe("KillProcess", pid, func() { killed = false })

	if !m.IsProcessAlive(pid) {
		return true
	}
	if err := m.backend.Kill(pid); err != nil {
		if IsNotFound(err) {
			return true
		}
		m.logProbeFailure("KillProcess", pid, err)
		return false
	}
	return m.waitForExit(ctx, pid, timeout)
}

// TerminateProcess closes gracefully and escalates to a kill only when the
// graceful close does not confirm exit.
func (m *Monitor) TerminateProcess(ctx context.Context, pid int, gracefulTimeout, killTimeout time.Duration) bool {
	if m.CloseProcessGracefully(ctx, pid, gracefulTimeout) {
		return true
	}
	m.log.Info("graceful close timed out, killing", zap.Int("pid", pid), zap.Duration("graceful_timeout", gracefulTimeout))
	return m.KillProcess(ctx, pid, killTimeout)
}

// WaitForExit blocks until pid exits, timeout elapses or ctx ends.
func (m *Monitor) WaitForExit(ctx context.Context, pid int, timeout time.Duration) bool {
	return m.waitForExit(ctx, pid, timeout)
}

func (m *Monitor) waitForExit(ctx context.Context, pid int, timeout time.Duration) bool {
	if !m.IsProcessAlive(pid) {
		return true
	}
	if timeout <= 0 {
		return false
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return !m.IsProcessAlive(pid)
		case <-deadline.C:
			return !m.IsProcessAlive(pid)
		case <-ticker.C:
			if !m.IsProcessAlive(pid) {
				return true
			}
		}
	}
}

func (m *Monitor) mainWindow(pid int) *types.WindowInfo {
	if m.windows == nil || !m.windows.Supported() {
		return nil
	}
	win, err := m.windows.MainWindow(pid)
	if err != nil {
		return nil
	}
	return win
}
