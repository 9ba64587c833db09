package state

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

type AppState int

const (
	Idle AppState = iota
	Recording
	Processing
	PostProcessing
)

func (s AppState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	case PostProcessing:
		return "post-processing"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ErrInvalidTransition is matched by every *InvalidTransitionError.
var ErrInvalidTransition = errors.New("invalid state transition")

// InvalidTransitionError reports a rejected (current, target) pair.
type InvalidTransitionError struct {
	Current AppState
	Target  AppState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.Current, e.Target)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Transition is delivered to subscribers after every successful state change.
type Transition struct {
	From AppState
	To   AppState
	At   time.Time
}

var legal = map[AppState][]AppState{
	Idle:           {Recording},
	Recording:      {Processing},
	Processing:     {PostProcessing, Idle},
	PostProcessing: {Idle},
}

// IsLegal reports whether from -> to is part of the dictation lifecycle.
func IsLegal(from, to AppState) bool {
	for _, s := range legal[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Machine guards the dictation lifecycle. It has no timers or goroutines of
// its own; subscribers run synchronously inside TransitionTo.
type Machine struct {
	mu          sync.RWMutex
	current     AppState
	subscribers []func(Transition)
	now         func() time.Time
}

func New() *Machine {
	return &Machine{current: Idle, now: time.Now}
}

func (m *Machine) Current() AppState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe registers fn for every future transition.
func (m *Machine) Subscribe(fn func(Transition)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.subscribers = append(m.subscribers, fn)
	m.mu.Unlock()
}

// TransitionTo moves the machine to target. Moving to the current state is a
// no-op and emits nothing.
func (m *Machine) TransitionTo(target AppState) error {
	m.mu.Lock()
	from := m.current
	if from == target {
		m.mu.Unlock()
		return nil
	}
	if !IsLegal(from, target) {
		m.mu.Unlock()
		return &InvalidTransitionError{Current: from, Target: target}
	}
	m.current = target
	event := Transition{From: from, To: target, At: m.now()}
	subs := make([]func(Transition), len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(event)
	}
	return nil
}
