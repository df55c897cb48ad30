package types

import (
	"errors"
	"fmt"
)

// State is an instance lifecycle state
type State string

const (
	StateStarting      State = "starting"
	StateRunning       State = "running"
	StateNotResponding State = "not_responding"
	StateClosing       State = "closing"
	StateTerminated    State = "terminated"
	StateError         State = "error"
)

// ErrInvalidTransition is returned when a state change is not an edge of the
// lifecycle graph.
var ErrInvalidTransition = errors.New("invalid state transition")

// Error is entered only from Starting or Running.
var transitions = map[State][]State{
	StateStarting:      {StateRunning, StateClosing, StateTerminated, StateError},
	StateRunning:       {StateNotResponding, StateClosing, StateTerminated, StateError},
	StateNotResponding: {StateRunning, StateClosing, StateTerminated},
	StateClosing:       {StateTerminated},
}

// IsActive is true while the instance still owns (or may own) a live process.
func (s State) IsActive() bool {
	switch s {
	case StateStarting, StateRunning, StateNotResponding, StateClosing:
		return true
	}
	return false
}

// IsTerminated is true for the two terminal states.
func (s State) IsTerminated() bool {
	return s == StateTerminated || s == StateError
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func transitionError(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
