package launcher

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// ErrInvalidArgument is returned by Launch for a nil application or a blank
// launchedBy. It is the only error Launch returns; every runtime failure is
// reported through the LaunchResult.
var ErrInvalidArgument = errors.New("invalid launch argument")

// TerminateMode selects how Terminate stops an instance
type TerminateMode int

const (
	// Graceful asks the application to close and waits for it
	Graceful TerminateMode = iota
	// Force kills without asking
	Force
)

func (m TerminateMode) String() string {
	if m == Force {
		return "force"
	}
	return "graceful"
}

// Launcher starts and controls instances of the application types it
// accepts. Launchers never store instances; the instance registry owns them
// and hands launchers copies.
type Launcher interface {
	Name() string
	// Priority breaks ties when several launchers accept an application.
	// Higher wins.
	Priority() int
	CanLaunch(app *types.Application) bool
	Launch(ctx context.Context, app *types.Application, launchedBy string) (*types.LaunchResult, error)
	// FindExistingInstance picks the first of candidates that is still live.
	FindExistingInstance(ctx context.Context, app *types.Application, candidates []*types.ApplicationInstance) (*types.ApplicationInstance, bool)
	SwitchTo(ctx context.Context, inst *types.ApplicationInstance) bool
	Terminate(ctx context.Context, inst *types.ApplicationInstance, mode TerminateMode, timeout time.Duration) bool
	// Cleanup releases whatever the launcher holds for a finished instance.
	Cleanup(ctx context.Context, inst *types.ApplicationInstance) bool
}

// WindowController is implemented by launchers that can minimize and
// restore their instances' windows.
type WindowController interface {
	Minimize(ctx context.Context, inst *types.ApplicationInstance) bool
	Restore(ctx context.Context, inst *types.ApplicationInstance) bool
}

// Probe is one liveness observation of an instance
type Probe struct {
	Alive       bool
	Responding  bool
	MemoryMB    float64
	ProcessName string
	Window      *types.WindowInfo
}

// LivenessProber is implemented by launchers that know how to observe
// their instances. The monitoring sweep falls back to the process monitor
// for launchers that do not.
type LivenessProber interface {
	Probe(ctx context.Context, inst *types.ApplicationInstance) Probe
}

// Starter starts an OS process and returns its pid. The process must
// outlive ctx.
type Starter interface {
	Start(ctx context.Context, path string, args []string, dir string) (int, error)
}

// TitleResolver fetches the display title of a web page
type TitleResolver interface {
	ResolveTitle(ctx context.Context, url string) (string, error)
}

// Registry holds launchers ordered by descending priority
type Registry struct {
	mu        sync.RWMutex
	launchers []Launcher
}

// NewRegistry creates a registry with the given launchers
func NewRegistry(launchers ...Launcher) *Registry {
	r := &Registry{}
	for _, l := range launchers {
		r.Register(l)
	}
	return r
}

// Register adds l, replacing any launcher with the same name
func (r *Registry) Register(l Launcher) {
	if l == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.launchers[:0:0]
	for _, existing := range r.launchers {
		if existing.Name() != l.Name() {
			kept = append(kept, existing)
		}
	}
	kept = append(kept, l)
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Priority() > kept[j].Priority() })
	r.launchers = kept
}

// Select returns the highest-priority launcher that accepts app
func (r *Registry) Select(app *types.Application) (Launcher, bool) {
	if app == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.launchers {
		if safeCanLaunch(l, app) {
			return l, true
		}
	}
	return nil, false
}

// Candidates returns every launcher that accepts app, best first
func (r *Registry) Candidates(app *types.Application) []Launcher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Launcher
	for _, l := range r.launchers {
		if safeCanLaunch(l, app) {
			out = append(out, l)
		}
	}
	return out
}

// Get returns the launcher with the given name
func (r *Registry) Get(name string) (Launcher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, l := range r.launchers {
		if l.Name() == name {
			return l, true
		}
	}
	return nil, false
}

// ForInstance returns the launcher that started inst, falling back to
// selection by application.
func (r *Registry) ForInstance(inst *types.ApplicationInstance) (Launcher, bool) {
	if inst == nil {
		return nil, false
	}
	if inst.Launcher != "" {
		if l, ok := r.Get(inst.Launcher); ok {
			return l, true
		}
	}
	return r.Select(inst.Application)
}

// Names lists registered launchers in priority order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.launchers))
	for i, l := range r.launchers {
		names[i] = l.Name()
	}
	return names
}

func safeCanLaunch(l Launcher, app *types.Application) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return l.CanLaunch(app)
}
