package instance

import (
	"time"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
	"go.uber.org/zap"
)

// EventKind identifies a registry event
type EventKind string

const (
	EventAdded   EventKind = "instance_added"
	EventRemoved EventKind = "instance_removed"
	EventUpdated EventKind = "instance_updated"
	EventCleared EventKind = "collection_cleared"
)

// Event describes one registry change. Instance is a clone and may be kept
// by the handler. For EventCleared it is nil and Count holds the number of
// instances dropped.
type Event struct {
	Kind     EventKind
	Instance *types.ApplicationInstance
	Reason   string
	Count    int
	At       time.Time
}

// Handler receives registry events. Handlers run while the registry write
// lock is held: they may read from the Manager but must not mutate it.
type Handler func(Event)

type subscription struct {
	id      int
	handler Handler
}

// Subscribe registers h and returns a function that removes it.
func (m *Manager) Subscribe(h Handler) func() {
	if h == nil {
		return func() {}
	}
	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	m.subs = append(m.subs, subscription{id: id, handler: h})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// emit must be called with m.mu held.
func (m *Manager) emit(ev Event) {
	m.metrics.RecordInstanceEvent(string(ev.Kind))
	for _, s := range m.subs {
		m.dispatch(s.handler, ev)
	}
}

func (m *Manager) dispatch(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			id := ""
			if ev.Instance != nil {
				id = ev.Instance.InstanceID
			}
			m.log.Error("Instance event handler panicked",
				zap.String("event", string(ev.Kind)),
				zap.String("instance_id", id),
				zap.Any("panic", r))
		}
	}()
	h(ev)
}
