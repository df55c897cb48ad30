package process

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// Memory change significance thresholds
const (
	MemoryChangeThresholdMB       = 50.0
	MemoryChangeThresholdFraction = 0.25
)

// EventKind names a monitor event
type EventKind string

const (
	EventExited        EventKind = "process_exited"
	EventNotResponding EventKind = "process_not_responding"
	EventMemoryChanged EventKind = "process_memory_changed"
)

// Event is raised by Sample when a tracked process changes notably
type Event struct {
	Kind             EventKind
	PID              int
	Name             string
	PreviousMemoryMB float64
	MemoryMB         float64
	At               time.Time
}

// EventHandler receives monitor events. Handlers run synchronously on the
// sampling goroutine.
type EventHandler func(Event)

type sample struct {
	name       string
	memoryMB   float64
	responding bool
}

// Subscribe registers h for all future events
func (m *Monitor) Subscribe(h EventHandler) {
	if h == nil {
		return
	}
	m.mu.Lock()
	m.handlers = append(m.handlers, h)
	m.mu.Unlock()
}

// IsSignificantMemoryChange is true when memory moved by more than 50MB or
// by more than 25% of the previous value.
func IsSignificantMemoryChange(previousMB, currentMB float64) bool {
	delta := math.Abs(currentMB - previousMB)
	if delta > MemoryChangeThresholdMB {
		return true
	}
	return previousMB > 0 && delta/previousMB > MemoryChangeThresholdFraction
}

// Sample probes pid, compares against the previous sample and raises events.
// It returns the fresh snapshot, or nil once the process is gone.
func (m *Monitor) Sample(pid int) *types.ProcessInfo {
	info, err := m.GetProcessInfo(pid)

	m.mu.Lock()
	prev, seen := m.samples[pid]
	var events []Event
	now := m.now()

	if err != nil {
		if IsNotFound(err) {
			delete(m.samples, pid)
			if seen {
				events = append(events, Event{Kind: EventExited, PID: pid, Name: prev.name, PreviousMemoryMB: prev.memoryMB, At: now})
			}
		}
		handlers := m.handlers
		m.mu.Unlock()
		m.dispatch(handlers, events)
		return nil
	}

	if seen {
		if prev.responding && !info.IsResponding {
			events = append(events, Event{Kind: EventNotResponding, PID: pid, Name: info.Name, MemoryMB: info.MemoryMB, At: now})
		}
		if IsSignificantMemoryChange(prev.memoryMB, info.MemoryMB) {
			events = append(events, Event{
				Kind:             EventMemoryChanged,
				PID:              pid,
				Name:             info.Name,
				PreviousMemoryMB: prev.memoryMB,
				MemoryMB:         info.MemoryMB,
				At:               now,
			})
		}
	} else if !info.IsResponding {
		events = append(events, Event{Kind: EventNotResponding, PID: pid, Name: info.Name, MemoryMB: info.MemoryMB, At: now})
	}

	m.samples[pid] = sample{name: info.Name, memoryMB: info.MemoryMB, responding: info.IsResponding}
	handlers := m.handlers
	m.mu.Unlock()

	m.dispatch(handlers, events)
	return info
}

// Forget drops the sampling history for pid
func (m *Monitor) Forget(pid int) {
	m.mu.Lock()
	delete(m.samples, pid)
	m.mu.Unlock()
}

func (m *Monitor) dispatch(handlers []EventHandler, events []Event) {
	for _, ev := range events {
		for _, h := range handlers {
			func() {
				defer func() {
					if r := recover(); r != nil {
						m.log.Error("process event handler panicked", zap.String("event", string(ev.Kind)), zap.Any("panic", r))
					}
				}()
				h(ev)
			}()
		}
	}
}
