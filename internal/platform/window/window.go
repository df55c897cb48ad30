// Package window resolves and manipulates top-level windows of launched
// processes. On Windows it talks to user32 through x/sys/windows; elsewhere
// a headless manager reports itself unsupported and every action fails.
package window

import "github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"

// Manager is the window capability consumed by launchers and the monitor.
type Manager interface {
	// Supported is false when there is no desktop to probe.
	Supported() bool
	MainWindow(pid int) (*types.WindowInfo, error)
	// FindByTitle returns the first visible window whose title contains
	// title, restricted to pids when pids is non-empty.
	FindByTitle(title string, pids []int) (*types.WindowInfo, error)
	// List returns the visible top-level windows owned by pids.
	List(pids []int) []*types.WindowInfo
	Activate(handle uintptr) bool
	Minimize(handle uintptr) bool
	Restore(handle uintptr) bool
	RequestClose(handle uintptr) bool
	IsHung(handle uintptr) bool
	Refresh(handle uintptr) (*types.WindowInfo, error)
}

// New returns the manager for the running platform
func New() Manager {
	return newPlatformManager()
}

// Headless is the Manager used where no window system is available.
type Headless struct{}

func (Headless) Supported() bool                                      { return false }
func (Headless) MainWindow(int) (*types.WindowInfo, error)            { return nil, ErrNoWindow }
func (Headless) FindByTitle(string, []int) (*types.WindowInfo, error) { return nil, ErrNoWindow }
func (Headless) List([]int) []*types.WindowInfo                       { return nil }
func (Headless) Activate(uintptr) bool                                { return false }
func (Headless) Minimize(uintptr) bool                                { return false }
func (Headless) Restore(uintptr) bool                                 { return false }
func (Headless) RequestClose(uintptr) bool                            { return false }
func (Headless) IsHung(uintptr) bool                                  { return false }
func (Headless) Refresh(uintptr) (*types.WindowInfo, error)           { return nil, ErrNoWindow }
