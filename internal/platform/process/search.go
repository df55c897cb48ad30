package process

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// NormalizeName lowercases a process or executable name and strips the
// directory and a trailing .exe.
func NormalizeName(name string) string {
	base := slashed(strings.ToLower(strings.TrimSpace(name)))
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".exe")
}

func slashed(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// FindProcessesByName returns live processes whose name equals name,
// ignoring case and a .exe suffix.
func (m *Monitor) FindProcessesByName(ctx context.Context, name string) []types.ProcessInfo {
	want := NormalizeName(name)
	if want == "" {
		return nil
	}
	return m.scan(ctx, "FindProcessesByName", func(pid int) bool {
		got, err := m.backend.Name(pid)
		return err == nil && NormalizeName(got) == want
	})
}

// FindProcessesByPartialName returns live processes whose name contains part
func (m *Monitor) FindProcessesByPartialName(ctx context.Context, part string) []types.ProcessInfo {
	want := strings.ToLower(strings.TrimSpace(part))
	if want == "" {
		return nil
	}
	return m.scan(ctx, "FindProcessesByPartialName", func(pid int) bool {
		got, err := m.backend.Name(pid)
		return err == nil && strings.Contains(strings.ToLower(got), want)
	})
}

// FindProcessesByPattern matches a doublestar glob against the normalized
// process name, or against the executable path when the pattern has a slash.
func (m *Monitor) FindProcessesByPattern(ctx context.Context, pattern string) []types.ProcessInfo {
	pattern = slashed(strings.ToLower(strings.TrimSpace(pattern)))
	if pattern == "" || !doublestar.ValidatePattern(pattern) {
		return nil
	}
	byPath := strings.Contains(pattern, "/")
	return m.scan(ctx, "FindProcessesByPattern", func(pid int) bool {
		var subject string
		if byPath {
			p, err := m.backend.ExecutablePath(pid)
			if err != nil {
				return false
			}
			subject = slashed(strings.ToLower(p))
		} else {
			n, err := m.backend.Name(pid)
			if err != nil {
				return false
			}
			subject = NormalizeName(n)
		}
		ok, _ := doublestar.Match(pattern, subject)
		return ok
	})
}

// FindChildProcesses returns live processes whose parent is parentPID
func (m *Monitor) FindChildProcesses(ctx context.Context, parentPID int) []types.ProcessInfo {
	if parentPID <= 0 {
		return nil
	}
	return m.scan(ctx, "FindChildProcesses", func(pid int) bool {
		ppid, err := m.backend.ParentPID(pid)
		return err == nil && ppid == parentPID
	})
}

// FindProcessesWithWindows returns live processes owning a top-level window.
// Empty when no window manager is attached.
func (m *Monitor) FindProcessesWithWindows(ctx context.Context) []types.ProcessInfo {
	if m.windows == nil || !m.windows.Supported() {
		return nil
	}
	return m.scan(ctx, "FindProcessesWithWindows", func(pid int) bool {
		return m.mainWindow(pid) != nil
	})
}

// scan enumerates pids and snapshots the ones match accepts. A process that
// vanishes or refuses access mid-scan is skipped.
func (m *Monitor) scan(ctx context.Context, op string, match func(pid int) bool) (out []types.ProcessInfo) {
	defer m.recoverProbe(op, 0, nil)

	pids, err := m.backend.PIDs()
	if err != nil {
		m.log.Warn("process enumeration failed", zap.String("op", op), zap.Error(err))
		return nil
	}

	for _, pid := range pids {
		if ctx.Err() != nil {
			return out
		}
		if !m.safeMatch(match, pid) {
			continue
		}
		info, err := m.GetProcessInfo(pid)
		if err != nil {
			continue
		}
		out = append(out, *info)
	}
	return out
}

func (m *Monitor) safeMatch(match func(int) bool, pid int) (ok bool) {
	defer m.recoverProbe("match", pid, func() { ok = false })
	return match(pid)
}
