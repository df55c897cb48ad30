package types

import "time"

// ProcessInfo is a snapshot of one OS process. Fields that could not be read
// are left zero and the failure is recorded in CollectionErrors.
type ProcessInfo struct {
	PID              int       `json:"pid"`
	ParentPID        int       `json:"parent_pid"`
	Name             string    `json:"name"`
	ExecutablePath   string    `json:"executable_path,omitempty"`
	MemoryMB         float64   `json:"memory_mb"`
	IsResponding     bool      `json:"is_responding"`
	HasExited        bool      `json:"has_exited"`
	StartTime        time.Time `json:"start_time,omitempty"`
	MainWindowTitle  string    `json:"main_window_title,omitempty"`
	HasWindow        bool      `json:"has_window"`
	CollectionErrors []string  `json:"collection_errors,omitempty"`
	SampledAt        time.Time `json:"sampled_at"`
}

// WindowInfo is a snapshot of one top-level window
type WindowInfo struct {
	Handle      uintptr `json:"handle"`
	ProcessID   int     `json:"process_id"`
	Title       string  `json:"title"`
	ClassName   string  `json:"class_name,omitempty"`
	IsVisible   bool    `json:"is_visible"`
	IsActive    bool    `json:"is_active"`
	IsMinimized bool    `json:"is_minimized"`
}

// Clone returns a copy of w
func (w *WindowInfo) Clone() *WindowInfo {
	if w == nil {
		return nil
	}
	c := *w
	return &c
}
