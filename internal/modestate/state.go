// Package modestate holds the movement-mode, visibility and scale flags. The
// host owns the authoritative Store; every other process keeps a Mirror.
package modestate

import (
	"math"
	"sync"
)

const (
	MinScale     = 0.3
	MaxScale     = 1.0
	DefaultScale = 1.0
)

// Flag identifies one of the three mode flags.
type Flag string

const (
	FlagMovementMode Flag = "movement_mode"
	FlagVisible      Flag = "visible"
	FlagScale        Flag = "scale"
)

// State is a snapshot of all mode flags.
type State struct {
	MovementMode bool    `json:"movement_mode"`
	Visible      bool    `json:"visible"`
	Scale        float64 `json:"scale"`
}

// Default returns the launch state: not moving, visible, full size.
func Default() State {
	return State{MovementMode: false, Visible: true, Scale: DefaultScale}
}

// Change describes one mutation and the state that resulted from it. It is
// the payload broadcast to observers.
type Change struct {
	Flag  Flag  `json:"flag"`
	State State `json:"state"`
}

// With returns s with the flag named by c copied from c.State. ok is false
// for an unknown flag.
func (s State) With(c Change) (State, bool) {
	switch c.Flag {
	case FlagMovementMode:
		s.MovementMode = c.State.MovementMode
	case FlagVisible:
		s.Visible = c.State.Visible
	case FlagScale:
		s.Scale = ClampScale(c.State.Scale)
	default:
		return s, false
	}
	return s, true
}

// ClampScale forces v into [MinScale, MaxScale]. Out-of-range values are
// clamped, never rejected.
func ClampScale(v float64) float64 {
	return math.Max(MinScale, math.Min(MaxScale, v))
}

// Store is the single authoritative copy of the mode flags.
type Store struct {
	mu    sync.Mutex
	state State
}

// NewStore creates a store initialised to Default().
func NewStore() *Store {
	return &Store{state: Default()}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ToggleMovementMode flips movement mode.
func (s *Store) ToggleMovementMode() Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MovementMode = !s.state.MovementMode
	return Change{Flag: FlagMovementMode, State: s.state}
}

// ToggleVisibility flips visibility.
func (s *Store) ToggleVisibility() Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Visible = !s.state.Visible
	return Change{Flag: FlagVisible, State: s.state}
}

// SetScale clamps v and stores it. NaN leaves the scale untouched and ok is
// false; the returned change still carries the current state.
func (s *Store) SetScale(v float64) (change Change, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if math.IsNaN(v) {
		return Change{Flag: FlagScale, State: s.state}, false
	}
	s.state.Scale = ClampScale(v)
	return Change{Flag: FlagScale, State: s.state}, true
}
