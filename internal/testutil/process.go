package testutil

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/platform/process"
)

// FakeProcess describes one simulated process
type FakeProcess struct {
	PID      int
	Name     string
	Path     string
	Parent   int
	MemoryMB float64
	Started  time.Time
	// Stopped marks the process as suspended (not responding).
	Stopped bool
	// IgnoreClose makes graceful close requests no-ops.
	IgnoreClose bool
	// IgnoreKill makes kills no-ops.
	IgnoreKill bool
	// Denied makes every inspection fail with access denied.
	Denied bool

	alive bool
}

// FakeBackend is an in-memory process.Backend
type FakeBackend struct {
	mu      sync.Mutex
	procs   map[int]*FakeProcess
	nextPID int
	closes  map[int]int
	kills   map[int]int
	// PanicOn names a Backend method that panics when called.
	PanicOn string
}

// NewFakeBackend creates an empty fake process table
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		procs:   make(map[int]*FakeProcess),
		nextPID: 1000,
		closes:  make(map[int]int),
		kills:   make(map[int]int),
	}
}

// Spawn adds a live process and returns its pid
func (f *FakeBackend) Spawn(p FakeProcess) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.PID == 0 {
		f.nextPID++
		p.PID = f.nextPID
	}
	if p.Name == "" && p.Path != "" {
		p.Name = filepath.Base(strings.ReplaceAll(p.Path, "\\", "/"))
	}
	if p.Started.IsZero() {
		p.Started = time.Now()
	}
	p.alive = true
	cp := p
	f.procs[p.PID] = &cp
	return p.PID
}

// Exit marks pid as exited
func (f *FakeBackend) Exit(pid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.procs[pid]; ok {
		p.alive = false
	}
}

// Update mutates a live process under the lock
func (f *FakeBackend) Update(pid int, fn func(p *FakeProcess)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.procs[pid]; ok {
		fn(p)
	}
}

// IsAlive reports the simulated liveness
func (f *FakeBackend) IsAlive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.procs[pid]
	return ok && p.alive
}

// CloseRequests returns how many graceful closes pid received
func (f *FakeBackend) CloseRequests(pid int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes[pid]
}

// Kills returns how many kills pid received
func (f *FakeBackend) Kills(pid int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kills[pid]
}

// TotalKills returns the number of kill calls across all pids
func (f *FakeBackend) TotalKills() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.kills {
		n += k
	}
	return n
}

func (f *FakeBackend) lookup(op string, pid int) (*FakeProcess, error) {
	if f.PanicOn == op {
		panic(fmt.Sprintf("fake backend %s panic", op))
	}
	p, ok := f.procs[pid]
	if !ok || !p.alive {
		return nil, process.ErrNotFound
	}
	if p.Denied {
		return nil, process.ErrAccessDenied
	}
	return p, nil
}

func (f *FakeBackend) Alive(pid int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.lookup("Alive", pid)
	switch {
	case err == nil:
		return true, nil
	case err == process.ErrNotFound:
		return false, nil
	}
	return false, err
}

func (f *FakeBackend) Name(pid int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup("Name", pid)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

func (f *FakeBackend) ExecutablePath(pid int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup("ExecutablePath", pid)
	if err != nil {
		return "", err
	}
	return p.Path, nil
}

func (f *FakeBackend) ParentPID(pid int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup("ParentPID", pid)
	if err != nil {
		return 0, err
	}
	return p.Parent, nil
}

func (f *FakeBackend) MemoryBytes(pid int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup("MemoryBytes", pid)
	if err != nil {
		return 0, err
	}
	return uint64(p.MemoryMB * 1024 * 1024), nil
}

func (f *FakeBackend) StartTime(pid int) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup("StartTime", pid)
	if err != nil {
		return time.Time{}, err
	}
	return p.Started, nil
}

func (f *FakeBackend) Responding(pid int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup("Responding", pid)
	if err != nil {
		return false, err
	}
	return !p.Stopped, nil
}

func (f *FakeBackend) PIDs() ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PanicOn == "PIDs" {
		panic("fake backend PIDs panic")
	}
	pids := make([]int, 0, len(f.procs))
	for pid, p := range f.procs {
		if p.alive {
			pids = append(pids, pid)
		}
	}
	sort.Ints(pids)
	return pids, nil
}

func (f *FakeBackend) RequestClose(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup("RequestClose", pid)
	if err != nil {
		return err
	}
	f.closes[pid]++
	if !p.IgnoreClose {
		p.alive = false
	}
	return nil
}

func (f *FakeBackend) Kill(pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, err := f.lookup("Kill", pid)
	if err != nil {
		return err
	}
	f.kills[pid]++
	if !p.IgnoreKill {
		p.alive = false
	}
	return nil
}
