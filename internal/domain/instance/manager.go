package instance

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
	"go.uber.org/zap"
)

// StaleAfter is how old LastUpdated may get before Validate flags an
// active instance.
const StaleAfter = time.Hour

// ErrNotFound is returned by Mutate for unknown instance ids.
var ErrNotFound = errors.New("instance not found")

// table is one published version of the registry. Neither the map nor the
// instances in it are modified after publication.
type table map[string]*types.ApplicationInstance

// Manager is the registry of tracked application instances.
//
// Writers are serialized by mu, which also covers event emission so that
// handlers observe events in mutation order. Every write builds a new table
// and publishes it with a single atomic store, so readers see the registry
// either before or after a whole operation, bulk cleanups included.
type Manager struct {
	mu      sync.Mutex
	items   atomic.Pointer[table]
	subs    []subscription // Protected by mu
	nextSub int            // Protected by mu

	log     *logging.Logger
	metrics *monitoring.Metrics
	now     func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(log *logging.Logger) Option {
	return func(m *Manager) { m.log = logging.OrNop(log).Named("instances") }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates an empty registry
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		log: logging.NewNop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.items.Store(&table{})
	return m
}

func (m *Manager) load() table {
	return *m.items.Load()
}

// edit copies the current table, applies fn and publishes the result.
// Must be called with m.mu held.
func (m *Manager) edit(fn func(t table)) {
	cur := m.load()
	next := make(table, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	fn(next)
	m.items.Store(&next)
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Add registers inst. It returns false for a nil instance, an empty id, an
// id that is already present, or an active non-virtual instance whose
// process id is already owned by another active instance.
func (m *Manager) Add(inst *types.ApplicationInstance) bool {
	if inst == nil || strings.TrimSpace(inst.InstanceID) == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.load()[inst.InstanceID]; exists {
		m.log.Warn("Rejected duplicate instance id", zap.String("instance_id", inst.InstanceID))
		return false
	}
	if owner := m.processOwner(inst); owner != "" {
		m.log.Warn("Rejected second instance for process",
			zap.String("instance_id", inst.InstanceID),
			zap.Int("pid", inst.ProcessID),
			zap.String("owner", owner))
		return false
	}

	stored := inst.Clone()
	m.edit(func(t table) { t[stored.InstanceID] = stored })

	m.log.Debug("Instance added",
		zap.String("instance_id", stored.InstanceID),
		zap.String("app_id", stored.ApplicationID()),
		zap.Int("pid", stored.ProcessID))
	m.emit(Event{Kind: EventAdded, Instance: stored.Clone(), Reason: "launched", At: m.now()})
	m.publish()
	return true
}

// processOwner returns the id of another active instance tracking the same
// OS process, or "". Instances that share a process but own different
// windows (Chrome app windows of one browser) do not collide. Must be called
// with m.mu held.
func (m *Manager) processOwner(inst *types.ApplicationInstance) string {
	if inst.IsVirtual || inst.ProcessID <= 0 || !inst.IsActiveInstance() {
		return ""
	}
	for _, other := range m.load() {
		if other.InstanceID == inst.InstanceID || other.IsVirtual ||
			other.ProcessID != inst.ProcessID || !other.IsActiveInstance() {
			continue
		}
		if inst.Window != nil && other.Window != nil && inst.Window.Handle != other.Window.Handle {
			continue
		}
		return other.InstanceID
	}
	return ""
}

// Remove drops the instance with the given id
func (m *Manager) Remove(id, reason string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.removeLocked([]string{id}, reason) == 0 {
		return false
	}
	m.publish()
	return true
}

// removeLocked publishes a table without ids, then emits one EventRemoved
// per removed instance. Must be called with m.mu held.
func (m *Manager) removeLocked(ids []string, reason string) int {
	cur := m.load()
	var gone []*types.ApplicationInstance
	for _, id := range ids {
		if inst, ok := cur[id]; ok {
			gone = append(gone, inst)
		}
	}
	if len(gone) == 0 {
		return 0
	}
	m.edit(func(t table) {
		for _, inst := range gone {
			delete(t, inst.InstanceID)
		}
	})
	at := m.now()
	for _, inst := range gone {
		m.emit(Event{Kind: EventRemoved, Instance: inst.Clone(), Reason: reason, At: at})
	}
	return len(gone)
}

// Update replaces the stored instance with a copy of inst and stamps
// LastUpdated. Unknown ids are rejected.
func (m *Manager) Update(inst *types.ApplicationInstance, reason string) bool {
	if inst == nil || inst.InstanceID == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.load()[inst.InstanceID]; !ok {
		return false
	}
	stored := inst.Clone()
	stored.LastUpdated = m.now()
	m.edit(func(t table) { t[stored.InstanceID] = stored })

	m.emit(Event{Kind: EventUpdated, Instance: stored.Clone(), Reason: reason, At: stored.LastUpdated})
	m.publish()
	return true
}

// Mutate applies fn to a copy of the stored instance and stores the result
// under the write lock. The instance id may not be changed. When fn returns an error
// nothing is stored and the error is returned.
func (m *Manager) Mutate(id, reason string, fn func(*types.ApplicationInstance) error) (*types.ApplicationInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.load()[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.InstanceID = id
	next.LastUpdated = m.now()
	m.edit(func(t table) { t[id] = next })

	m.emit(Event{Kind: EventUpdated, Instance: next.Clone(), Reason: reason, At: next.LastUpdated})
	m.publish()
	return next.Clone(), nil
}

// Get returns a copy of the instance with the given id
func (m *Manager) Get(id string) (*types.ApplicationInstance, bool) {
	inst, ok := m.load()[id]
	if !ok {
		return nil, false
	}
	return inst.Clone(), true
}

// Contains reports whether id is tracked
func (m *Manager) Contains(id string) bool {
	_, ok := m.load()[id]
	return ok
}

// All returns copies of every tracked instance ordered by start time
func (m *Manager) All() []*types.ApplicationInstance {
	return m.collect(func(*types.ApplicationInstance) bool { return true })
}

// Active returns instances that have not reached a terminal state
func (m *Manager) Active() []*types.ApplicationInstance {
	return m.collect(func(i *types.ApplicationInstance) bool { return i.IsActiveInstance() })
}

// ByApplication returns instances of the given application id
func (m *Manager) ByApplication(appID string) []*types.ApplicationInstance {
	return m.collect(func(i *types.ApplicationInstance) bool { return i.ApplicationID() == appID })
}

// ByProcess returns instances tracking the given process id
func (m *Manager) ByProcess(pid int) []*types.ApplicationInstance {
	return m.collect(func(i *types.ApplicationInstance) bool { return i.ProcessID == pid })
}

// ByUser returns instances launched by username, compared case-insensitively
func (m *Manager) ByUser(username string) []*types.ApplicationInstance {
	return m.collect(func(i *types.ApplicationInstance) bool { return strings.EqualFold(i.LaunchedBy, username) })
}

// ByState returns instances in the given state
func (m *Manager) ByState(state types.State) []*types.ApplicationInstance {
	return m.collect(func(i *types.ApplicationInstance) bool { return i.State == state })
}

// ByType returns instances of the given application type
func (m *Manager) ByType(t types.ApplicationType) []*types.ApplicationInstance {
	return m.collect(func(i *types.ApplicationInstance) bool { return i.Type() == t })
}

// Find returns copies of all instances matching pred. A panicking
// predicate yields no matches.
func (m *Manager) Find(pred func(*types.ApplicationInstance) bool) (out []*types.ApplicationInstance) {
	if pred == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Warn("Instance predicate panicked", zap.Any("panic", r))
			out = nil
		}
	}()
	return m.collect(pred)
}

// FindFirst returns the earliest-started instance matching pred
func (m *Manager) FindFirst(pred func(*types.ApplicationInstance) bool) (*types.ApplicationInstance, bool) {
	matches := m.Find(pred)
	if len(matches) == 0 {
		return nil, false
	}
	return matches[0], true
}

// Count returns the number of tracked instances
func (m *Manager) Count() int {
	return len(m.load())
}

// ActiveCount returns the number of active instances
func (m *Manager) ActiveCount() int {
	n := 0
	for _, inst := range m.load() {
		if inst.IsActiveInstance() {
			n++
		}
	}
	return n
}

// TotalMemoryMB sums memory usage across active instances
func (m *Manager) TotalMemoryMB() float64 {
	total := 0.0
	for _, inst := range m.load() {
		if inst.IsActiveInstance() {
			total += inst.MemoryUsageMB
		}
	}
	return total
}

// collect returns clones of the stored instances accepted by pred, ordered
// by start time then id.
func (m *Manager) collect(pred func(*types.ApplicationInstance) bool) []*types.ApplicationInstance {
	var out []*types.ApplicationInstance
	for _, inst := range m.load() {
		if c := inst.Clone(); pred(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].InstanceID < out[j].InstanceID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}

// CleanupTerminated removes every instance in a terminal state and returns
// how many were removed. One EventRemoved is emitted per instance.
func (m *Manager) CleanupTerminated() int {
	return m.removeWhere("cleanup_terminated", func(i *types.ApplicationInstance) bool {
		return i.State.IsTerminated()
	})
}

// CleanupOlderThan removes instances launched more than maxAge ago
func (m *Manager) CleanupOlderThan(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := m.now().Add(-maxAge)
	return m.removeWhere("cleanup_age", func(i *types.ApplicationInstance) bool {
		return i.StartTime.Before(cutoff)
	})
}

func (m *Manager) removeWhere(reason string, match func(*types.ApplicationInstance) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, inst := range m.load() {
		if match(inst) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	removed := m.removeLocked(ids, reason)
	if removed > 0 {
		m.log.Info("Removed instances", zap.String("reason", reason), zap.Int("count", removed))
		m.publish()
	}
	return removed
}

// Clear drops every instance and emits a single EventCleared
func (m *Manager) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.load())
	m.items.Store(&table{})

	m.emit(Event{Kind: EventCleared, Count: n, Reason: "clear", At: m.now()})
	m.publish()
	return n
}

// publish pushes gauges to metrics. Must be called with m.mu held.
func (m *Manager) publish() {
	if m.metrics == nil {
		return
	}
	byState := make(map[string]int)
	active := 0
	mem := 0.0
	for _, inst := range m.load() {
		byState[string(inst.State)]++
		if inst.IsActiveInstance() {
			active++
			mem += inst.MemoryUsageMB
		}
	}
	m.metrics.SetInstances(active, byState, mem)
}
