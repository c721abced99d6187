// Package status tracks which stage an extraction run is in.
package status

import (
	"fmt"
	"slices"
	"sync"

	"github.com/matheus3301/imsgx/internal/bus"
)

// Stage is a step of an extraction run.
type Stage string

const (
	Idle      Stage = "IDLE"
	Opening   Stage = "OPENING"
	Resolving Stage = "RESOLVING"
	Reading   Stage = "READING"
	Merging   Stage = "MERGING"
	Writing   Stage = "WRITING"
	Done      Stage = "DONE"
	Failed    Stage = "FAILED"
)

// validTransitions defines allowed stage transitions. A finished run may start over.
var validTransitions = map[Stage][]Stage{
	Idle:      {Opening},
	Opening:   {Resolving, Failed},
	Resolving: {Reading, Failed},
	Reading:   {Merging, Failed},
	Merging:   {Writing, Failed},
	Writing:   {Done, Failed},
	Done:      {Opening},
	Failed:    {Opening},
}

// Machine tracks and enforces run stage transitions.
type Machine struct {
	mu      sync.RWMutex
	current Stage
	bus     *bus.Bus
}

// NewMachine creates a machine in the Idle stage. b may be nil.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Idle,
		bus:     b,
	}
}

// Current returns the current stage.
func (m *Machine) Current() Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Transition moves to a new stage and publishes the change.
func (m *Machine) Transition(to Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slices.Contains(validTransitions[m.current], to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	m.bus.Emit(bus.KindStageChanged, StageChange{From: from, To: to})
	return nil
}

// Fail moves to Failed from any stage that allows it. It reports whether the
// stage changed.
func (m *Machine) Fail() bool {
	return m.Transition(Failed) == nil
}

// Terminal reports whether s ends a run.
func (s Stage) Terminal() bool {
	return s == Done || s == Failed
}

// StageChange is the payload of run.stage_changed events.
type StageChange struct {
	From Stage
	To   Stage
}
