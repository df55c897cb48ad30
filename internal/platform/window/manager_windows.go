//go:build windows

package window

import (
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

const (
	swMinimize = 6
	swRestore  = 9
	wmClose    = 0x0010
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procGetWindowThreadProcessId = user32.NewProc("GetWindowThreadProcessId")
	procIsWindowVisible          = user32.NewProc("IsWindowVisible")
	procIsWindow                 = user32.NewProc("IsWindow")
	procIsIconic                 = user32.NewProc("IsIconic")
	procIsHungAppWindow          = user32.NewProc("IsHungAppWindow")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	procGetClassNameW            = user32.NewProc("GetClassNameW")
	procGetWindow                = user32.NewProc("GetWindow")
	procGetForegroundWindow      = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow      = user32.NewProc("SetForegroundWindow")
	procShowWindow               = user32.NewProc("ShowWindow")
	procPostMessageW             = user32.NewProc("PostMessageW")
)

const gwOwner = 4

type user32Manager struct{}

func newPlatformManager() Manager {
	return user32Manager{}
}

func (user32Manager) Supported() bool { return true }

func windowPID(hwnd uintptr) int {
	var pid uint32
	procGetWindowThreadProcessId.Call(hwnd, uintptr(unsafe.Pointer(&pid)))
	return int(pid)
}

func windowText(hwnd uintptr) string {
	n, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

func className(hwnd uintptr) string {
	buf := make([]uint16, 256)
	procGetClassNameW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf)
}

func truthy(proc *windows.LazyProc, hwnd uintptr) bool {
	r, _, _ := proc.Call(hwnd)
	return r != 0
}

func describe(hwnd uintptr) *types.WindowInfo {
	fg, _, _ := procGetForegroundWindow.Call()
	return &types.WindowInfo{
		Handle:      hwnd,
		ProcessID:   windowPID(hwnd),
		Title:       windowText(hwnd),
		ClassName:   className(hwnd),
		IsVisible:   truthy(procIsWindowVisible, hwnd),
		IsActive:    fg == hwnd,
		IsMinimized: truthy(procIsIconic, hwnd),
	}
}

// enumerate visits visible, unowned top-level windows.
func enumerate(visit func(hwnd uintptr) bool) {
	cb := syscall.NewCallback(func(hwnd uintptr, _ uintptr) uintptr {
		if !truthy(procIsWindowVisible, hwnd) {
			return 1
		}
		if owner, _, _ := procGetWindow.Call(hwnd, gwOwner); owner != 0 {
			return 1
		}
		if visit(hwnd) {
			return 1
		}
		return 0
	})
	_ = windows.EnumWindows(cb, nil)
}

func (user32Manager) MainWindow(pid int) (*types.WindowInfo, error) {
	var found uintptr
	enumerate(func(hwnd uintptr) bool {
		if windowPID(hwnd) == pid && windowText(hwnd) != "" {
			found = hwnd
			return false
		}
		return true
	})
	if found == 0 {
		return nil, ErrNoWindow
	}
	return describe(found), nil
}

func (user32Manager) FindByTitle(title string, pids []int) (*types.WindowInfo, error) {
	want := strings.ToLower(strings.TrimSpace(title))
	if want == "" {
		return nil, ErrNoWindow
	}
	allowed := make(map[int]bool, len(pids))
	for _, p := range pids {
		allowed[p] = true
	}

	var found uintptr
	enumerate(func(hwnd uintptr) bool {
		if len(allowed) > 0 && !allowed[windowPID(hwnd)] {
			return true
		}
		if strings.Contains(strings.ToLower(windowText(hwnd)), want) {
			found = hwnd
			return false
		}
		return true
	})
	if found == 0 {
		return nil, ErrNoWindow
	}
	return describe(found), nil
}

func (user32Manager) List(pids []int) []*types.WindowInfo {
	allowed := make(map[int]bool, len(pids))
	for _, p := range pids {
		allowed[p] = true
	}
	var out []*types.WindowInfo
	enumerate(func(hwnd uintptr) bool {
		if allowed[windowPID(hwnd)] && windowText(hwnd) != "" {
			out = append(out, describe(hwnd))
		}
		return true
	})
	return out
}

func (m user32Manager) Activate(handle uintptr) bool {
	if !m.valid(handle) {
		return false
	}
	if truthy(procIsIconic, handle) {
		procShowWindow.Call(handle, swRestore)
	}
	return truthy(procSetForegroundWindow, handle)
}

func (m user32Manager) Minimize(handle uintptr) bool {
	if !m.valid(handle) {
		return false
	}
	procShowWindow.Call(handle, swMinimize)
	return true
}

func (m user32Manager) Restore(handle uintptr) bool {
	if !m.valid(handle) {
		return false
	}
	procShowWindow.Call(handle, swRestore)
	return true
}

func (m user32Manager) RequestClose(handle uintptr) bool {
	if !m.valid(handle) {
		return false
	}
	r, _, _ := procPostMessageW.Call(handle, wmClose, 0, 0)
	return r != 0
}

func (m user32Manager) IsHung(handle uintptr) bool {
	return m.valid(handle) && truthy(procIsHungAppWindow, handle)
}

func (m user32Manager) Refresh(handle uintptr) (*types.WindowInfo, error) {
	if !m.valid(handle) {
		return nil, ErrNoWindow
	}
	return describe(handle), nil
}

func (user32Manager) valid(handle uintptr) bool {
	return handle != 0 && truthy(procIsWindow, handle)
}
