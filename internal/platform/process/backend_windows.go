//go:build windows

package process

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

const stillActive = 259

var (
	psapi                    = windows.NewLazySystemDLL("psapi.dll")
	procGetProcessMemoryInfo = psapi.NewProc("GetProcessMemoryInfo")
)

type processMemoryCounters struct {
	CB                         uint32
	PageFaultCount             uint32
	PeakWorkingSetSize         uintptr
	WorkingSetSize             uintptr
	QuotaPeakPagedPoolUsage    uintptr
	QuotaPagedPoolUsage        uintptr
	QuotaPeakNonPagedPoolUsage uintptr
	QuotaNonPagedPoolUsage     uintptr
	PagefileUsage              uintptr
	PeakPagefileUsage          uintptr
}

// windowsBackend uses kernel32/psapi. Graceful close goes through the
// window manager, so RequestClose here reports ErrUnsupported for
// processes without a window.
type windowsBackend struct{}

func newPlatformBackend() (Backend, error) {
	return windowsBackend{}, nil
}

func open(pid int, access uint32) (windows.Handle, error) {
	h, err := windows.OpenProcess(access, false, uint32(pid))
	if err != nil {
		return 0, mapErr(err)
	}
	return h, nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	return err
}

func (windowsBackend) Alive(pid int) (bool, error) {
	h, err := open(pid, windows.PROCESS_QUERY_LIMITED_INFORMATION)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	defer windows.CloseHandle(h)

	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return false, mapErr(err)
	}
	return code == stillActive, nil
}

func (b windowsBackend) Name(pid int) (string, error) {
	if e, ok := findEntry(pid); ok {
		return windows.UTF16ToString(e.ExeFile[:]), nil
	}
	path, err := b.ExecutablePath(pid)
	if err != nil {
		return "", err
	}
	return filepath.Base(path), nil
}

func (windowsBackend) ExecutablePath(pid int) (string, error) {
	h, err := open(pid, windows.PROCESS_QUERY_LIMITED_INFORMATION)
	if err != nil {
		return "", err
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_LONG_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return "", mapErr(err)
	}
	return windows.UTF16ToString(buf[:size]), nil
}

func (windowsBackend) ParentPID(pid int) (int, error) {
	e, ok := findEntry(pid)
	if !ok {
		return 0, ErrNotFound
	}
	return int(e.ParentProcessID), nil
}

func (windowsBackend) MemoryBytes(pid int) (uint64, error) {
	h, err := open(pid, windows.PROCESS_QUERY_LIMITED_INFORMATION|windows.PROCESS_VM_READ)
	if err != nil {
		return 0, err
	}
	defer windows.CloseHandle(h)

	var counters processMemoryCounters
	counters.CB = uint32(unsafe.Sizeof(counters))
	ret, _, callErr := procGetProcessMemoryInfo.Call(uintptr(h), uintptr(unsafe.Pointer(&counters)), uintptr(counters.CB))
	if ret == 0 {
		return 0, mapErr(callErr)
	}
	return uint64(counters.WorkingSetSize), nil
}

func (windowsBackend) StartTime(pid int) (time.Time, error) {
	h, err := open(pid, windows.PROCESS_QUERY_LIMITED_INFORMATION)
	if err != nil {
		return time.Time{}, err
	}
	defer windows.CloseHandle(h)

	var creation, exit, kernel, user windows.Filetime
	if err := windows.GetProcessTimes(h, &creation, &exit, &kernel, &user); err != nil {
		return time.Time{}, mapErr(err)
	}
	return time.Unix(0, creation.Nanoseconds()), nil
}

// Responding is decided by window hang detection in Monitor.
func (windowsBackend) Responding(int) (bool, error) { return true, nil }

func (windowsBackend) PIDs() ([]int, error) {
	var pids []int
	err := walkEntries(func(e *windows.ProcessEntry32) bool {
		if e.ProcessID != 0 {
			pids = append(pids, int(e.ProcessID))
		}
		return true
	})
	return pids, err
}

func (windowsBackend) RequestClose(int) error {
	return fmt.Errorf("no window to close: %w", ErrUnsupported)
}

func (windowsBackend) Kill(pid int) error {
	h, err := open(pid, windows.PROCESS_TERMINATE)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(h)

	if err := windows.TerminateProcess(h, 1); err != nil {
		return mapErr(err)
	}
	return nil
}

func walkEntries(fn func(*windows.ProcessEntry32) bool) error {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return err
	}
	defer windows.CloseHandle(snap)

	var e windows.ProcessEntry32
	e.Size = uint32(unsafe.Sizeof(e))
	if err := windows.Process32First(snap, &e); err != nil {
		return err
	}
	for {
		if !fn(&e) {
			return nil
		}
		if err := windows.Process32Next(snap, &e); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				return nil
			}
			return err
		}
	}
}

func findEntry(pid int) (windows.ProcessEntry32, bool) {
	var found windows.ProcessEntry32
	ok := false
	_ = walkEntries(func(e *windows.ProcessEntry32) bool {
		if int(e.ProcessID) == pid {
			found, ok = *e, true
			return false
		}
		return true
	})
	return found, ok
}
