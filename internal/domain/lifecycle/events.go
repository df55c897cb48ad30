package lifecycle

import (
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

// EventKind identifies a lifecycle event
type EventKind string

const (
	EventStarted      EventKind = "instance_started"
	EventStopped      EventKind = "instance_stopped"
	EventStateChanged EventKind = "instance_state_changed"
	EventActivated    EventKind = "instance_activated"
	EventUpdated      EventKind = "instance_updated"
)

// Event is one lifecycle notification. Instance is a copy owned by the
// receiver.
type Event struct {
	Kind     EventKind
	Instance *types.ApplicationInstance
	From     types.State
	To       types.State
	Reason   string
	Method   types.ShutdownMethod
}

// Handler receives lifecycle events. Handlers run after the registry has
// been updated and may call back into the Service.
type Handler func(Event)

type subscription struct {
	id      int
	handler Handler
}

// Subscribe registers h and returns a function that removes it
func (s *Service) Subscribe(h Handler) func() {
	if h == nil {
		return func() {}
	}
	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subscription{id: id, handler: h})
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Service) emit(ev Event) {
	s.metrics.RecordInstanceEvent(string(ev.Kind))

	s.subMu.RLock()
	subs := append([]subscription(nil), s.subs...)
	s.subMu.RUnlock()

	for _, sub := range subs {
		e := ev
		if e.Instance != nil {
			e.Instance = e.Instance.Clone()
		}
		s.dispatch(sub.handler, e)
	}
}

func (s *Service) dispatch(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Lifecycle event handler panicked", zap.String("event", string(ev.Kind)), zap.Any("panic", r))
		}
	}()
	h(ev)
}
