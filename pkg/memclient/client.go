package memclient

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/livesub/livesub-go/pkg/graphql"
	"github.com/livesub/livesub-go/pkg/log"
)

// DefaultMaxSubscriptions is the default limit on concurrently active
// subscriptions.
const DefaultMaxSubscriptions = 64

var (
	// ErrResourceExhausted is delivered to a listener when the client already
	// holds Config.MaxSubscriptions active subscriptions.
	ErrResourceExhausted = errors.New("memclient: too many active subscriptions")

	// ErrDisconnected is delivered by Disconnect when no cause is given.
	ErrDisconnected = errors.New("memclient: disconnected")
)

// Config holds client configuration.
type Config struct {
	// MaxSubscriptions limits concurrently active subscriptions.
	MaxSubscriptions int

	// Retain delivers the last payload published to an operation to new
	// listeners of that operation.
	Retain bool
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() Config {
	return Config{
		MaxSubscriptions: DefaultMaxSubscriptions,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithConfig replaces the client configuration.
func WithConfig(cfg Config) Option {
	return func(c *Client) {
		c.config = cfg
	}
}

// WithLogger sets the transport trace logger.
func WithLogger(l log.Logger) Option {
	return func(c *Client) {
		c.logger = log.OrNoop(l)
	}
}

// Client is an in-memory graphql.Client.
type Client struct {
	config Config
	logger log.Logger

	mu           sync.RWMutex
	requests     []graphql.Request
	subscribers  map[uuid.UUID]*subscriber
	byOperation  map[string][]*subscriber
	retained     map[string]graphql.Payload
	unsubscribes int
}

// New creates a client with the default configuration.
func New(opts ...Option) *Client {
	c := &Client{
		config:      DefaultConfig(),
		logger:      log.NoopLogger{},
		subscribers: make(map[uuid.UUID]*subscriber),
		byOperation: make(map[string][]*subscriber),
		retained:    make(map[string]graphql.Payload),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.config.MaxSubscriptions <= 0 {
		c.config.MaxSubscriptions = DefaultMaxSubscriptions
	}
	return c
}

// Subscribe records req and returns a stream that registers a subscriber
// when listened to.
func (c *Client) Subscribe(req graphql.Request) graphql.Stream {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	return &stream{client: c, req: req}
}

// Requests returns every request passed to Subscribe, in order.
func (c *Client) Requests() []graphql.Request {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]graphql.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// Active returns the number of active subscribers for operation.
func (c *Client) Active(operation string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byOperation[operation])
}

// Count returns the number of active subscribers across all operations.
func (c *Client) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscribers)
}

// Unsubscribes returns how many subscribers have been unsubscribed.
func (c *Client) Unsubscribes() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.unsubscribes
}

// Publish delivers data to every active subscriber of operation and returns
// the number of subscribers reached.
func (c *Client) Publish(operation string, data any) int {
	return c.PublishPayload(operation, nil, graphql.Payload{Data: data})
}

// PublishTo delivers data to the active subscribers of operation whose
// variables contain every entry of vars.
func (c *Client) PublishTo(operation string, vars map[string]any, data any) int {
	return c.PublishPayload(operation, vars, graphql.Payload{Data: data})
}

// PublishPayload delivers p to the active subscribers of operation whose
// variables contain every entry of vars. A nil vars matches every subscriber.
func (c *Client) PublishPayload(operation string, vars map[string]any, p graphql.Payload) int {
	if c.config.Retain && len(vars) == 0 {
		c.mu.Lock()
		c.retained[operation] = p
		c.mu.Unlock()
	}

	delivered := 0
	for _, sub := range c.match(operation, vars) {
		if sub.deliverData(p) {
			delivered++
		}
	}
	c.trace(log.ActionData, operation, "", vars)
	return delivered
}

// Fail delivers err to every active subscriber of operation.
func (c *Client) Fail(operation string, err error) int {
	return c.FailTo(operation, nil, err)
}

// FailTo delivers err to the active subscribers of operation whose variables
// contain every entry of vars.
func (c *Client) FailTo(operation string, vars map[string]any, err error) int {
	delivered := 0
	for _, sub := range c.match(operation, vars) {
		if sub.deliverError(err) {
			delivered++
		}
	}
	c.trace(log.ActionError, operation, "", vars)
	return delivered
}

// Disconnect delivers cause to every active subscriber and then drops them
// all, as a lost connection would. A nil cause delivers ErrDisconnected.
func (c *Client) Disconnect(cause error) int {
	if cause == nil {
		cause = ErrDisconnected
	}

	c.mu.Lock()
	subs := make([]*subscriber, 0, len(c.subscribers))
	for _, sub := range c.subscribers {
		subs = append(subs, sub)
	}
	c.subscribers = make(map[uuid.UUID]*subscriber)
	c.byOperation = make(map[string][]*subscriber)
	c.mu.Unlock()

	delivered := 0
	for _, sub := range subs {
		if sub.deliverError(cause) {
			delivered++
		}
		sub.deactivate()
	}
	return delivered
}

// Retained returns the payload retained for operation, if any.
func (c *Client) Retained(operation string) (graphql.Payload, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.retained[operation]
	return p, ok
}

func (c *Client) match(operation string, vars map[string]any) []*subscriber {
	c.mu.RLock()
	candidates := c.byOperation[operation]
	subs := make([]*subscriber, 0, len(candidates))
	for _, sub := range candidates {
		if containsAll(sub.req.Variables, vars) {
			subs = append(subs, sub)
		}
	}
	c.mu.RUnlock()
	return subs
}

func (c *Client) listen(req graphql.Request, onData func(graphql.Payload), onError func(error)) graphql.Subscription {
	operation := req.Document.OperationName()
	sub := &subscriber{
		id:        uuid.New(),
		client:    c,
		req:       req,
		operation: operation,
		onData:    onData,
		onError:   onError,
	}

	c.mu.Lock()
	if len(c.subscribers) >= c.config.MaxSubscriptions {
		c.mu.Unlock()
		c.traceError(operation, ErrResourceExhausted)
		if onError != nil {
			onError(ErrResourceExhausted)
		}
		return sub
	}
	sub.active = true
	c.subscribers[sub.id] = sub
	c.byOperation[operation] = append(c.byOperation[operation], sub)
	retained, hasRetained := c.retained[operation]
	c.mu.Unlock()

	c.trace(log.ActionSubscribe, operation, sub.id.String(), req.Variables)

	if c.config.Retain && hasRetained {
		sub.deliverData(retained)
	}
	return sub
}

func (c *Client) remove(sub *subscriber) {
	c.mu.Lock()
	if _, ok := c.subscribers[sub.id]; ok {
		delete(c.subscribers, sub.id)
		subs := c.byOperation[sub.operation]
		for i, s := range subs {
			if s == sub {
				c.byOperation[sub.operation] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(c.byOperation[sub.operation]) == 0 {
			delete(c.byOperation, sub.operation)
		}
	}
	c.unsubscribes++
	c.mu.Unlock()

	c.trace(log.ActionUnsubscribe, sub.operation, sub.id.String(), sub.req.Variables)
}

func (c *Client) trace(action log.Action, operation, id string, vars map[string]any) {
	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerTransport,
		Category:  log.CategorySubscription,
		Subscription: &log.SubscriptionEvent{
			Action:         action,
			SubscriptionID: id,
			Operation:      operation,
			Variables:      vars,
		},
	})
}

func (c *Client) traceError(operation string, err error) {
	c.logger.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerTransport,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
			Context: operation,
		},
	})
}

type stream struct {
	client *Client
	req    graphql.Request
}

func (s *stream) Listen(onData func(graphql.Payload), onError func(error)) graphql.Subscription {
	return s.client.listen(s.req, onData, onError)
}

// subscriber is one registered listener.
type subscriber struct {
	id        uuid.UUID
	client    *Client
	req       graphql.Request
	operation string
	onData    func(graphql.Payload)
	onError   func(error)

	mu     sync.Mutex
	active bool
	once   sync.Once
}

// Unsubscribe deactivates the subscriber. Only the first call has any effect.
func (s *subscriber) Unsubscribe() {
	s.once.Do(func() {
		if !s.deactivate() {
			return
		}
		s.client.remove(s)
	})
}

// deactivate reports whether the subscriber was active.
func (s *subscriber) deactivate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.active
	s.active = false
	return was
}

func (s *subscriber) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *subscriber) deliverData(p graphql.Payload) bool {
	if !s.isActive() || s.onData == nil {
		return false
	}
	s.onData(p)
	return true
}

func (s *subscriber) deliverError(err error) bool {
	if !s.isActive() || s.onError == nil {
		return false
	}
	s.onError(err)
	return true
}

// valueEncMode encodes filter values for comparison. Times keep
// nanosecond precision.
var valueEncMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano

	var err error
	valueEncMode, err = opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create filter CBOR encoder mode: %v", err))
	}
}

// containsAll reports whether vars holds every entry of filter. Values are
// compared by canonical encoding so numbers match regardless of Go type.
func containsAll(vars, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := vars[k]
		if !ok || !sameValue(got, want) {
			return false
		}
	}
	return true
}

func sameValue(a, b any) bool {
	ea, errA := valueEncMode.Marshal(a)
	eb, errB := valueEncMode.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return string(ea) == string(eb)
}
