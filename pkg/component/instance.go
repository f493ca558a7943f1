package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/livesub/livesub-go/pkg/log"
	"github.com/livesub/livesub-go/pkg/scope"
)

// RenderFunc is a component body. It registers hooks on inst.
type RenderFunc func(inst *Instance) error

// Option configures an Instance.
type Option func(*Instance)

// WithLogger sets the lifecycle trace logger.
func WithLogger(l log.Logger) Option {
	return func(i *Instance) {
		i.logger = log.OrNoop(l)
	}
}

// WithName sets a human-readable component name used in traces.
func WithName(name string) Option {
	return func(i *Instance) {
		i.name = name
	}
}

// Instance is one mounted component instance with its own hook state.
type Instance struct {
	id     uuid.UUID
	name   string
	scope  *scope.Scope
	logger log.Logger

	// Guarded by mu; touched by setters from any goroutine.
	mu        sync.Mutex
	dirty     bool
	unmounted bool
	updates   chan struct{}

	// Owned by the render goroutine.
	rendering bool
	slots     []*slot
	cursor    int
	mounted   bool
	renders   int
}

// NewInstance creates an instance mounted under s.
func NewInstance(s *scope.Scope, opts ...Option) *Instance {
	i := &Instance{
		id:      uuid.New(),
		scope:   s,
		logger:  log.NoopLogger{},
		updates: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// ID returns the instance ID.
func (i *Instance) ID() string {
	return i.id.String()
}

// Name returns the component name given with WithName.
func (i *Instance) Name() string {
	return i.name
}

// Renders returns the number of committed render passes.
func (i *Instance) Renders() int {
	return i.renders
}

// Updates returns a channel that receives a value whenever state changes
// after the last render. Notifications coalesce. The channel is closed on
// unmount.
func (i *Instance) Updates() <-chan struct{} {
	return i.updates
}

// Dirty reports whether state changed since the last render started.
func (i *Instance) Dirty() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.dirty
}

// Unmounted reports whether Unmount has been called.
func (i *Instance) Unmounted() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.unmounted
}

// Log records a trace event, stamping it with the instance identity.
func (i *Instance) Log(event log.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.InstanceID = i.ID()
	event.Component = i.name
	i.logger.Log(event)
}

// Render runs one render pass followed by a commit.
//
// If fn returns an error the pass is discarded: no effect runs and, for the
// first pass, no hook state is kept. A pass whose hook sequence differs from
// the previous committed pass fails with ErrHookOrder.
func (i *Instance) Render(fn RenderFunc) error {
	if i.rendering {
		return ErrReentrantRender
	}

	i.mu.Lock()
	if i.unmounted {
		i.mu.Unlock()
		return ErrUnmounted
	}
	i.dirty = false
	i.mu.Unlock()

	if err := i.renderPass(fn); err != nil {
		i.discard()
		return err
	}

	i.commit()
	return nil
}

func (i *Instance) renderPass(fn RenderFunc) (err error) {
	i.rendering = true
	i.cursor = 0
	defer func() {
		i.rendering = false
		if r := recover(); r != nil {
			p, ok := r.(hookOrderPanic)
			if !ok {
				panic(r)
			}
			err = fmt.Errorf("%w: %s", ErrHookOrder, p.detail)
		}
	}()

	if err := fn(i); err != nil {
		return err
	}
	if i.mounted && i.cursor != len(i.slots) {
		return fmt.Errorf("%w: rendered %d hooks, previous pass rendered %d", ErrHookOrder, i.cursor, len(i.slots))
	}
	return nil
}

// discard drops pending effects of a failed pass.
func (i *Instance) discard() {
	if !i.mounted {
		i.slots = nil
		return
	}
	for _, s := range i.slots {
		if s.effect != nil {
			s.effect.clearPending()
		}
	}
}

func (i *Instance) commit() {
	var changed []*effect
	for _, s := range i.slots {
		if s.effect != nil && s.effect.pending {
			changed = append(changed, s.effect)
		}
	}

	for _, e := range changed {
		e.runCleanup()
	}
	for _, e := range changed {
		e.run()
	}

	i.renders++
	if !i.mounted {
		i.mounted = true
		i.logState("", "MOUNTED", "first commit")
	}
}

// Unmount runs every effect cleanup in slot order and closes Updates.
// It is idempotent.
func (i *Instance) Unmount() {
	i.mu.Lock()
	if i.unmounted {
		i.mu.Unlock()
		return
	}
	i.unmounted = true
	i.mu.Unlock()

	for _, s := range i.slots {
		if s.effect != nil {
			s.effect.runCleanup()
		}
	}

	i.mu.Lock()
	close(i.updates)
	i.mu.Unlock()

	old := "MOUNTED"
	if !i.mounted {
		old = "CREATED"
	}
	i.logState(old, "UNMOUNTED", "unmount")
}

// Run renders fn, then re-renders every time state changes, until ctx is
// done or the instance is unmounted. onRender, if non-nil, is called after
// every pass with its error. Run returns the first render error, ctx.Err(),
// or nil after unmount.
func (i *Instance) Run(ctx context.Context, fn RenderFunc, onRender func(error)) error {
	render := func() error {
		err := i.Render(fn)
		if onRender != nil {
			onRender(err)
		}
		return err
	}

	if err := render(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-i.updates:
			if !ok {
				return nil
			}
			if err := render(); err != nil {
				if errors.Is(err, ErrUnmounted) {
					return nil
				}
				return err
			}
		}
	}
}

// markDirty flags a pending re-render and signals Updates.
func (i *Instance) markDirty() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.unmounted {
		return
	}
	i.dirty = true
	select {
	case i.updates <- struct{}{}:
	default:
	}
}

func (i *Instance) logState(oldState, newState, reason string) {
	i.Log(log.Event{
		Layer:    log.LayerComponent,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityInstance,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
