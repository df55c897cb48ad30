package testutil

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/window"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// FakeWindows is an in-memory window.Manager tied to a FakeBackend.
type FakeWindows struct {
	mu      sync.Mutex
	backend *FakeBackend
	next    uintptr
	wins    map[uintptr]*types.WindowInfo
	hung    map[uintptr]bool
	actions map[string]int

	// Headless makes Supported report false.
	Headless bool
}

// NewFakeWindows creates a window table whose windows die with their process
func NewFakeWindows(b *FakeBackend) *FakeWindows {
	return &FakeWindows{
		backend: b,
		next:    0x1000,
		wins:    make(map[uintptr]*types.WindowInfo),
		hung:    make(map[uintptr]bool),
		actions: make(map[string]int),
	}
}

// Open creates a visible window for pid
func (w *FakeWindows) Open(pid int, title string) uintptr {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.next += 0x10
	w.wins[w.next] = &types.WindowInfo{Handle: w.next, ProcessID: pid, Title: title, IsVisible: true}
	return w.next
}

// SetHung marks a window as not pumping messages
func (w *FakeWindows) SetHung(handle uintptr, hung bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.hung[handle] = hung
}

// Count returns how many times action ("activate", "minimize", "restore",
// "close") was applied to handle.
func (w *FakeWindows) Count(action string, handle uintptr) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.actions[key(action, handle)]
}

func key(action string, h uintptr) string {
	return fmt.Sprintf("%s:%x", action, h)
}

func (w *FakeWindows) live(handle uintptr) (*types.WindowInfo, bool) {
	win, ok := w.wins[handle]
	if !ok || (w.backend != nil && !w.backend.IsAlive(win.ProcessID)) {
		return nil, false
	}
	return win, true
}

func (w *FakeWindows) sortedHandles() []uintptr {
	hs := make([]uintptr, 0, len(w.wins))
	for h := range w.wins {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

func (w *FakeWindows) Supported() bool { return !w.Headless }

func (w *FakeWindows) MainWindow(pid int) (*types.WindowInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, h := range w.sortedHandles() {
		if win, ok := w.live(h); ok && win.ProcessID == pid {
			return win.Clone(), nil
		}
	}
	return nil, window.ErrNoWindow
}

func (w *FakeWindows) FindByTitle(title string, pids []int) (*types.WindowInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	want := strings.ToLower(title)
	allowed := make(map[int]bool, len(pids))
	for _, p := range pids {
		allowed[p] = true
	}
	for _, h := range w.sortedHandles() {
		win, ok := w.live(h)
		if !ok || (len(allowed) > 0 && !allowed[win.ProcessID]) {
			continue
		}
		if want != "" && strings.Contains(strings.ToLower(win.Title), want) {
			return win.Clone(), nil
		}
	}
	return nil, window.ErrNoWindow
}

func (w *FakeWindows) List(pids []int) []*types.WindowInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	allowed := make(map[int]bool, len(pids))
	for _, p := range pids {
		allowed[p] = true
	}
	var out []*types.WindowInfo
	for _, h := range w.sortedHandles() {
		if win, ok := w.live(h); ok && allowed[win.ProcessID] {
			out = append(out, win.Clone())
		}
	}
	return out
}

func (w *FakeWindows) Activate(handle uintptr) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	win, ok := w.live(handle)
	if !ok {
		return false
	}
	for _, other := range w.wins {
		other.IsActive = false
	}
	win.IsActive = true
	win.IsMinimized = false
	w.actions[key("activate", handle)]++
	return true
}

func (w *FakeWindows) Minimize(handle uintptr) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	win, ok := w.live(handle)
	if !ok {
		return false
	}
	win.IsMinimized = true
	win.IsActive = false
	w.actions[key("minimize", handle)]++
	return true
}

func (w *FakeWindows) Restore(handle uintptr) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	win, ok := w.live(handle)
	if !ok {
		return false
	}
	win.IsMinimized = false
	w.actions[key("restore", handle)]++
	return true
}

// RequestClose forwards to the backend's graceful close for the owner.
func (w *FakeWindows) RequestClose(handle uintptr) bool {
	w.mu.Lock()
	win, ok := w.live(handle)
	if ok {
		w.actions[key("close", handle)]++
	}
	w.mu.Unlock()
	if !ok || w.backend == nil {
		return false
	}
	return w.backend.RequestClose(win.ProcessID) == nil
}

func (w *FakeWindows) IsHung(handle uintptr) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hung[handle]
}

func (w *FakeWindows) Refresh(handle uintptr) (*types.WindowInfo, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	win, ok := w.live(handle)
	if !ok {
		return nil, window.ErrNoWindow
	}
	return win.Clone(), nil
}
