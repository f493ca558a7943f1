package livesub

import (
	"errors"
	"sync"

	"github.com/livesub/livesub-go/pkg/component"
	"github.com/livesub/livesub-go/pkg/graphql"
	"github.com/livesub/livesub-go/pkg/log"
)

// Result is an immutable snapshot of a subscription hook.
//
// At any observed state exactly one holds:
//   - Loading is true and Err is nil (initial, or re-subscribing);
//   - Loading is false, Data is set and Err is nil (latest push);
//   - Loading is false and Err is set (failed until the next subscription).
//
// Data is kept next to Err when a push failed after earlier data arrived.
type Result struct {
	Data    any
	Err     error
	Loading bool
}

// OnSubscriptionDataOptions is passed to an OnSubscriptionData callback.
type OnSubscriptionDataOptions struct {
	// Client is the client the subscription was opened with.
	Client graphql.Client

	// SubscriptionData is the result that was just stored.
	SubscriptionData Result
}

// OnSubscriptionData is called after every data push, once the result has
// been stored.
type OnSubscriptionData func(OnSubscriptionDataOptions)

// Options configures UseSubscription.
type Options struct {
	// Variables are the operation variables.
	Variables map[string]any

	// OnSubscriptionData, if set, is called after each data push. The most
	// recent callback is used; changing it does not re-subscribe.
	OnSubscriptionData OnSubscriptionData

	// Client overrides the client provided by the instance scope.
	Client graphql.Client

	// Transport holds client-specific fields passed through as
	// graphql.Request.Options. They are part of the request identity.
	Transport map[string]any

	// KeepDataOnResubscribe keeps the last data in the loading result while a
	// replacement subscription is opened. Off by default: a re-subscription
	// resets the result to {Loading: true}.
	KeepDataOnResubscribe bool
}

// State names a phase of the subscription state machine. Transitions are
// reported through the instance trace logger.
type State uint8

const (
	StateIdle State = iota
	StateSubscribing
	StateStreaming
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSubscribing:
		return "SUBSCRIBING"
	case StateStreaming:
		return "STREAMING"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// UseSubscription opens and maintains a subscription to doc for inst.
//
// It returns ErrMissingClient when no client can be resolved, and wraps
// graphql.ErrUnencodableRequest when the variables or transport options
// cannot be encoded. Both abort the render.
func UseSubscription(inst *component.Instance, doc *graphql.Document, opts Options) (Result, error) {
	client, err := UseClient(inst, opts.Client)
	if err != nil {
		return Result{}, err
	}

	onData := component.UseRef[OnSubscriptionData](inst, nil)
	onData.Store(opts.OnSubscriptionData)

	result, setResult := component.UseState(inst, Result{Loading: true})
	committed := component.UseRef(inst, graphql.Key{})

	req := graphql.Request{
		Document:  doc,
		Variables: opts.Variables,
		Options:   opts.Transport,
	}
	key, err := graphql.KeyOf(req)
	if err != nil {
		return Result{}, err
	}

	component.UseEffect(inst, key, func() func() {
		committed.Store(key)
		sub := &activeSubscription{
			inst:      inst,
			client:    client,
			req:       req,
			key:       key,
			setResult: setResult,
			onData:    onData,
			keepData:  opts.KeepDataOnResubscribe,
		}
		sub.open()
		return sub.close
	})

	// The stored result still belongs to the previous request until the
	// effect commits.
	if committed.Load() != key {
		return loadingFrom(result, opts.KeepDataOnResubscribe), nil
	}
	return result, nil
}

func loadingFrom(prev Result, keepData bool) Result {
	if keepData {
		return Result{Data: prev.Data, Loading: true}
	}
	return Result{Loading: true}
}

// activeSubscription is one live network subscription opened by the hook.
type activeSubscription struct {
	inst      *component.Instance
	client    graphql.Client
	req       graphql.Request
	key       graphql.Key
	setResult component.Setter[Result]
	onData    *component.Ref[OnSubscriptionData]
	keepData  bool

	mu     sync.Mutex
	live   bool
	state  State
	handle graphql.Subscription
	once   sync.Once
}

func (s *activeSubscription) open() {
	s.mu.Lock()
	s.live = true
	s.mu.Unlock()

	s.trace(log.ActionSubscribe)
	s.transition(StateSubscribing, "subscribe")

	handle := s.client.Subscribe(s.req).Listen(s.handleData, s.handleError)

	s.mu.Lock()
	if !s.live {
		// Torn down while Listen was running.
		s.mu.Unlock()
		handle.Unsubscribe()
		return
	}
	s.handle = handle
	s.mu.Unlock()
}

func (s *activeSubscription) handleData(p graphql.Payload) {
	if err := p.Err(); err != nil {
		s.handleError(err)
		return
	}

	next := Result{Data: p.Data, Loading: false}

	s.mu.Lock()
	if !s.live {
		s.mu.Unlock()
		s.trace(log.ActionIgnored)
		return
	}
	s.setResult.Set(next)
	s.mu.Unlock()

	s.trace(log.ActionData)
	s.transition(StateStreaming, "data")

	// Tracing may have torn the subscription down. A teardown racing in
	// from another goroutine after this check can still see one callback.
	cb := s.onData.Load()
	if cb == nil || !s.isLive() {
		return
	}
	cb(OnSubscriptionDataOptions{Client: s.client, SubscriptionData: next})
}

func (s *activeSubscription) isLive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

func (s *activeSubscription) handleError(err error) {
	var terr *graphql.TransportError
	if !errors.As(err, &terr) {
		terr = &graphql.TransportError{Operation: s.req.Document.OperationName(), Err: err}
	}

	s.mu.Lock()
	if !s.live {
		s.mu.Unlock()
		s.trace(log.ActionIgnored)
		return
	}
	s.setResult.Update(func(prev Result) Result {
		return Result{Data: prev.Data, Err: terr, Loading: false}
	})
	s.mu.Unlock()

	s.trace(log.ActionError)
	s.transition(StateFailed, terr.Error())
}

// close resets the result to loading and unsubscribes. Only the first call
// has any effect.
func (s *activeSubscription) close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.live = false
		handle := s.handle
		s.mu.Unlock()

		s.setResult.Update(func(prev Result) Result {
			return loadingFrom(prev, s.keepData)
		})

		if handle != nil {
			handle.Unsubscribe()
		}
		s.trace(log.ActionUnsubscribe)
		s.transition(StateIdle, "teardown")
	})
}

// transition moves the state machine to to. After teardown only the move
// to Idle is recorded.
func (s *activeSubscription) transition(to State, reason string) {
	s.mu.Lock()
	if !s.live && to != StateIdle {
		s.mu.Unlock()
		return
	}
	from := s.state
	s.state = to
	s.mu.Unlock()

	if from == to {
		return
	}
	s.inst.Log(log.Event{
		Layer:    log.LayerHook,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySubscription,
			OldState: from.String(),
			NewState: to.String(),
			Reason:   reason,
		},
	})
}

func (s *activeSubscription) trace(action log.Action) {
	s.inst.Log(log.Event{
		Layer:    log.LayerHook,
		Category: log.CategorySubscription,
		Subscription: &log.SubscriptionEvent{
			Action:    action,
			Operation: s.req.Document.OperationName(),
			Key:       s.key.String(),
			Variables: s.req.Variables,
		},
	})
}
