package process

import (
	"time"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// Backend is the raw OS process API. Implementations return errors wrapping
// ErrNotFound, ErrAccessDenied or ErrUnsupported for the expected failures;
// anything else is treated as unexpected.
type Backend interface {
	Alive(pid int) (bool, error)
	Name(pid int) (string, error)
	ExecutablePath(pid int) (string, error)
	ParentPID(pid int) (int, error)
	MemoryBytes(pid int) (uint64, error)
	StartTime(pid int) (time.Time, error)
	// Responding reports scheduler-level health (stopped, traced). Window
	// hang detection is layered on top by Monitor.
	Responding(pid int) (bool, error)
	PIDs() ([]int, error)
	// RequestClose asks the process to exit on its own (SIGTERM on unix).
	RequestClose(pid int) error
	Kill(pid int) error
}

// WindowProber is the slice of the window manager the monitor uses for
// responsiveness and graceful close.
type WindowProber interface {
	Supported() bool
	MainWindow(pid int) (*types.WindowInfo, error)
	IsHung(handle uintptr) bool
	RequestClose(handle uintptr) bool
}

// NewPlatformBackend returns the backend for the running OS.
func NewPlatformBackend() (Backend, error) {
	return newPlatformBackend()
}
