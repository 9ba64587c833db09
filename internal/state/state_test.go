package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStates = []AppState{Idle, Recording, Processing, PostProcessing}

// machineAt walks a fresh machine along legal edges to reach s.
func machineAt(t *testing.T, s AppState) *Machine {
	t.Helper()
	m := New()
	path := map[AppState][]AppState{
		Idle:           nil,
		Recording:      {Recording},
		Processing:     {Recording, Processing},
		PostProcessing: {Recording, Processing, PostProcessing},
	}[s]
	for _, step := range path {
		require.NoError(t, m.TransitionTo(step))
	}
	require.Equal(t, s, m.Current())
	return m
}

func TestMachine_StartsIdle(t *testing.T) {
	assert.Equal(t, Idle, New().Current())
}

func TestMachine_LegalTransitions(t *testing.T) {
	for _, from := range allStates {
		for _, to := range allStates {
			if from == to || !IsLegal(from, to) {
				continue
			}
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				m := machineAt(t, from)
				var events []Transition
				m.Subscribe(func(tr Transition) { events = append(events, tr) })

				require.NoError(t, m.TransitionTo(to))
				assert.Equal(t, to, m.Current())
				require.Len(t, events, 1)
				assert.Equal(t, from, events[0].From)
				assert.Equal(t, to, events[0].To)
				assert.False(t, events[0].At.IsZero())
			})
		}
	}
}

func TestMachine_IllegalTransitions(t *testing.T) {
	for _, from := range allStates {
		for _, to := range allStates {
			if from == to || IsLegal(from, to) {
				continue
			}
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				m := machineAt(t, from)
				fired := 0
				m.Subscribe(func(Transition) { fired++ })

				err := m.TransitionTo(to)
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidTransition))

				var invalid *InvalidTransitionError
				require.True(t, errors.As(err, &invalid))
				assert.Equal(t, from, invalid.Current)
				assert.Equal(t, to, invalid.Target)

				assert.Equal(t, from, m.Current())
				assert.Zero(t, fired)
			})
		}
	}
}

func TestMachine_SelfTransitionIsNoop(t *testing.T) {
	for _, s := range allStates {
		t.Run(s.String(), func(t *testing.T) {
			m := machineAt(t, s)
			fired := 0
			m.Subscribe(func(Transition) { fired++ })

			require.NoError(t, m.TransitionTo(s))
			assert.Equal(t, s, m.Current())
			assert.Zero(t, fired)
		})
	}
}

func TestMachine_LegalSet(t *testing.T) {
	expected := map[[2]AppState]bool{
		{Idle, Recording}:            true,
		{Recording, Processing}:      true,
		{Processing, PostProcessing}: true,
		{Processing, Idle}:           true,
		{PostProcessing, Idle}:       true,
	}
	for _, from := range allStates {
		for _, to := range allStates {
			assert.Equal(t, expected[[2]AppState{from, to}], IsLegal(from, to), "%s -> %s", from, to)
		}
	}
}

func TestMachine_SubscribersSeeNewState(t *testing.T) {
	m := New()
	var seen AppState = -1
	m.Subscribe(func(tr Transition) { seen = m.Current() })

	require.NoError(t, m.TransitionTo(Recording))
	assert.Equal(t, Recording, seen)
}

func TestAppState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "recording", Recording.String())
	assert.Equal(t, "processing", Processing.String())
	assert.Equal(t, "post-processing", PostProcessing.String())
	assert.Equal(t, "unknown(9)", AppState(9).String())
}
