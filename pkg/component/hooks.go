package component

import (
	"fmt"
	"sync"

	"github.com/livesub/livesub-go/pkg/scope"
)

type hookKind uint8

const (
	kindState hookKind = iota
	kindRef
	kindEffect
	kindScope
)

func (k hookKind) String() string {
	switch k {
	case kindState:
		return "state"
	case kindRef:
		return "ref"
	case kindEffect:
		return "effect"
	case kindScope:
		return "scope"
	default:
		return "unknown"
	}
}

type slot struct {
	kind   hookKind
	value  any // *stateCell[T] or *Ref[T]
	effect *effect
}

// next returns the slot for the current hook call, creating it on the
// first pass. It panics with hookOrderPanic on drift.
func (i *Instance) next(kind hookKind, create func() *slot) *slot {
	if !i.rendering {
		panic(ErrNotRendering)
	}

	idx := i.cursor
	i.cursor++

	if idx < len(i.slots) {
		s := i.slots[idx]
		if s.kind != kind {
			panic(hookOrderPanic{detail: fmt.Sprintf("hook %d was %s, now %s", idx, s.kind, kind)})
		}
		return s
	}
	if i.mounted {
		panic(hookOrderPanic{detail: fmt.Sprintf("hook %d (%s) not rendered by previous pass", idx, kind)})
	}

	s := create()
	s.kind = kind
	i.slots = append(i.slots, s)
	return s
}

// stateCell is a thread-safe state slot.
type stateCell[T any] struct {
	mu    sync.Mutex
	value T
	inst  *Instance
}

// Setter updates a state cell. It is safe to use from any goroutine and
// remains valid for the life of the instance.
type Setter[T any] struct {
	cell *stateCell[T]
}

// Set replaces the state and schedules a re-render. Dropped after unmount.
func (s Setter[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update replaces the state with fn(current) atomically and schedules a
// re-render. Dropped after unmount.
func (s Setter[T]) Update(fn func(T) T) {
	c := s.cell
	if c.inst.Unmounted() {
		return
	}
	c.mu.Lock()
	c.value = fn(c.value)
	c.mu.Unlock()
	c.inst.markDirty()
}

// Get returns the current state without rendering.
func (s Setter[T]) Get() T {
	s.cell.mu.Lock()
	defer s.cell.mu.Unlock()
	return s.cell.value
}

// UseState returns the current state snapshot and its setter. initial is
// used only on the first pass.
func UseState[T any](inst *Instance, initial T) (T, Setter[T]) {
	s := inst.next(kindState, func() *slot {
		return &slot{value: &stateCell[T]{value: initial, inst: inst}}
	})
	cell, ok := s.value.(*stateCell[T])
	if !ok {
		panic(hookOrderPanic{detail: fmt.Sprintf("state hook %d changed type to %T", inst.cursor-1, initial)})
	}
	setter := Setter[T]{cell: cell}
	return setter.Get(), setter
}

// Ref is a stable mutable cell. Safe for concurrent use.
type Ref[T any] struct {
	mu    sync.RWMutex
	value T
}

// Load returns the current value.
func (r *Ref[T]) Load() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Store replaces the value. Storing never triggers a re-render.
func (r *Ref[T]) Store(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = v
}

// UseRef returns the instance's ref for this slot. initial is used only on
// the first pass.
func UseRef[T any](inst *Instance, initial T) *Ref[T] {
	s := inst.next(kindRef, func() *slot {
		return &slot{value: &Ref[T]{value: initial}}
	})
	ref, ok := s.value.(*Ref[T])
	if !ok {
		panic(hookOrderPanic{detail: fmt.Sprintf("ref hook %d changed type to %T", inst.cursor-1, initial)})
	}
	return ref
}

// effect is one effect slot.
type effect struct {
	key       any
	committed bool
	cleanup   func()

	pending    bool
	pendingKey any
	pendingFn  func() func()
}

func (e *effect) clearPending() {
	e.pending = false
	e.pendingKey = nil
	e.pendingFn = nil
}

func (e *effect) runCleanup() {
	if e.cleanup == nil {
		return
	}
	cleanup := e.cleanup
	e.cleanup = nil
	cleanup()
}

func (e *effect) run() {
	fn := e.pendingFn
	e.key = e.pendingKey
	e.committed = true
	e.clearPending()
	e.cleanup = fn()
}

// UseEffect schedules fn to run at commit when key differs from the key of
// the last committed run (always on the first pass). key must be
// comparable. The cleanup fn returns, if non-nil, runs before the next run
// of this effect and on unmount.
func UseEffect(inst *Instance, key any, fn func() func()) {
	s := inst.next(kindEffect, func() *slot {
		return &slot{effect: &effect{}}
	})
	e := s.effect
	if e.committed && e.key == key {
		e.clearPending()
		return
	}
	e.pending = true
	e.pendingKey = key
	e.pendingFn = fn
}

// UseScope returns the scope the instance is mounted under. Hooks that read
// ambient values call it unconditionally so the hook sequence is stable.
func UseScope(inst *Instance) *scope.Scope {
	inst.next(kindScope, func() *slot { return &slot{} })
	return inst.scope
}
