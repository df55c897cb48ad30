package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateClassification(t *testing.T) {
	tests := []struct {
		state      State
		active     bool
		terminated bool
	}{
		{StateStarting, true, false},
		{StateRunning, true, false},
		{StateNotResponding, true, false},
		{StateClosing, true, false},
		{StateTerminated, false, true},
		{StateError, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			assert.Equal(t, tt.active, tt.state.IsActive())
			assert.Equal(t, tt.terminated, tt.state.IsTerminated())
		})
	}
}

func TestOnlyRunningAndNotRespondingAreBidirectional(t *testing.T) {
	all := []State{StateStarting, StateRunning, StateNotResponding, StateClosing, StateTerminated, StateError}

	for _, from := range all {
		for _, to := range all {
			if from == to || !from.CanTransitionTo(to) || !to.CanTransitionTo(from) {
				continue
			}
			pair := []State{from, to}
			assert.ElementsMatch(t, []State{StateRunning, StateNotResponding}, pair)
		}
	}
}

func TestErrorOnlyFromStartingOrRunning(t *testing.T) {
	all := []State{StateStarting, StateRunning, StateNotResponding, StateClosing, StateTerminated, StateError}
	var from []State
	for _, s := range all {
		if s.CanTransitionTo(StateError) {
			from = append(from, s)
		}
	}
	assert.ElementsMatch(t, []State{StateStarting, StateRunning}, from)

	now := time.Now()
	inst := NewInstance(&Application{ID: "calc"}, "alice", 10, nil, now)
	require.NoError(t, inst.TransitionTo(StateRunning, now))
	require.NoError(t, inst.TransitionTo(StateClosing, now))
	assert.ErrorIs(t, inst.Fail("close failed", now), ErrInvalidTransition)
	assert.Equal(t, StateClosing, inst.State)
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range []State{StateTerminated, StateError} {
		for _, next := range []State{StateStarting, StateRunning, StateClosing} {
			assert.False(t, s.CanTransitionTo(next), "%s -> %s", s, next)
		}
	}
}

func TestTransitionToStampsEndTime(t *testing.T) {
	now := time.Now()
	inst := NewInstance(&Application{ID: "calc"}, "alice", 10, DesktopInstanceData{}, now)

	require.NoError(t, inst.TransitionTo(StateRunning, now))
	assert.Nil(t, inst.EndTime)

	later := now.Add(time.Minute)
	require.NoError(t, inst.TransitionTo(StateClosing, later))
	require.NoError(t, inst.TransitionTo(StateTerminated, later))

	require.NotNil(t, inst.EndTime)
	assert.Equal(t, later, *inst.EndTime)
	assert.False(t, inst.IsActiveInstance())
	assert.Equal(t, time.Minute, inst.Uptime(later.Add(time.Hour)))
}

func TestTransitionToRejectsInvalidEdge(t *testing.T) {
	now := time.Now()
	inst := NewInstance(&Application{ID: "calc"}, "alice", 10, nil, now)
	require.NoError(t, inst.TransitionTo(StateTerminated, now))

	err := inst.TransitionTo(StateRunning, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateTerminated, inst.State)
}

func TestTransitionToSameStateIsNoop(t *testing.T) {
	now := time.Now()
	inst := NewInstance(&Application{ID: "calc"}, "alice", 10, nil, now)
	assert.NoError(t, inst.TransitionTo(StateStarting, now.Add(time.Second)))
	assert.Equal(t, now, inst.LastUpdated)
}

func TestFailSetsMessage(t *testing.T) {
	now := time.Now()
	inst := NewInstance(&Application{ID: "calc"}, "alice", 10, nil, now)

	require.NoError(t, inst.Fail("boom", now))
	assert.Equal(t, StateError, inst.State)
	assert.Equal(t, "boom", inst.ErrorMessage)
	assert.NotNil(t, inst.EndTime)
}
