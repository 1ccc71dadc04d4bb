// Package statemachine provides the state-function pattern used for room
// lifecycles: each state is a function that receives the entity and returns
// the next state, nil meaning terminal.
package statemachine

import (
	"reflect"
	"sync"
)

// StateFn is one state of the machine. It inspects or mutates the entity and
// returns the state to transition to.
type StateFn[T any] func(*T) StateFn[T]

// Machine drives an entity through StateFn transitions. Safe for concurrent
// use; the entity itself must be guarded by its own lock.
type Machine[T any] struct {
	mu     sync.RWMutex
	entity *T
	state  StateFn[T]
}

// New creates a machine positioned at the initial state.
func New[T any](entity *T, initial StateFn[T]) *Machine[T] {
	return &Machine[T]{entity: entity, state: initial}
}

// Step runs the current state function once and advances to its successor.
// It reports false when the machine has reached a terminal state.
func (m *Machine[T]) Step() bool {
	m.mu.Lock()
	fn := m.state
	m.mu.Unlock()
	if fn == nil {
		return false
	}
	next := fn(m.entity)
	m.mu.Lock()
	m.state = next
	m.mu.Unlock()
	return next != nil
}

// Settle steps until the machine stops moving: a state returning itself, or
// a terminal state, ends the run. A state function that hands back a
// different state is executed in the same call, so callers observe completed
// transitions rather than pending ones.
func (m *Machine[T]) Settle() {
	for {
		prev := m.Current()
		if !m.Step() {
			return
		}
		if reflect.ValueOf(m.Current()).Pointer() == reflect.ValueOf(prev).Pointer() {
			return
		}
	}
}

// Dispatch jumps to the given state and runs it once.
func (m *Machine[T]) Dispatch(fn StateFn[T]) {
	m.mu.Lock()
	m.state = fn
	m.mu.Unlock()
	m.Step()
}

// Current returns the current state function, nil when terminal.
func (m *Machine[T]) Current() StateFn[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Set repositions the machine without executing anything.
func (m *Machine[T]) Set(fn StateFn[T]) {
	m.mu.Lock()
	m.state = fn
	m.mu.Unlock()
}
