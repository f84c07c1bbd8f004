package modestate

import "sync"

// Mirror is a non-authoritative copy of the host's state. Each flag is
// last-write-wins: applying a change overwrites only the flag it names.
type Mirror struct {
	mu        sync.Mutex
	state     State
	observers []func(Change)
}

// NewMirror starts from Default(), which is what the host reports before any
// mutation.
func NewMirror() *Mirror {
	return &Mirror{state: Default()}
}

// Snapshot returns the mirrored state.
func (m *Mirror) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Observe registers fn to run after every applied change.
func (m *Mirror) Observe(fn func(Change)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Apply copies the changed flag into the mirror and notifies observers.
func (m *Mirror) Apply(c Change) {
	m.mu.Lock()
	next, ok := m.state.With(c)
	if !ok {
		m.mu.Unlock()
		return
	}
	m.state = next
	observers := append([]func(Change){}, m.observers...)
	m.mu.Unlock()

	for _, fn := range observers {
		fn(c)
	}
}

// SetMovementMode, SetVisible and SetScale apply single-flag replies from
// state queries.
func (m *Mirror) SetMovementMode(enabled bool) {
	m.Apply(Change{Flag: FlagMovementMode, State: State{MovementMode: enabled}})
}

func (m *Mirror) SetVisible(visible bool) {
	m.Apply(Change{Flag: FlagVisible, State: State{Visible: visible}})
}

func (m *Mirror) SetScale(scale float64) {
	m.Apply(Change{Flag: FlagScale, State: State{Scale: scale}})
}
