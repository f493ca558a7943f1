package livesub

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/livesub/livesub-go/pkg/component"
	"github.com/livesub/livesub-go/pkg/graphql"
	"github.com/livesub/livesub-go/pkg/log"
)

var (
	itemDoc  = graphql.MustParse(`subscription OnItem($id: ID!) { item(id: $id) { id name } }`)
	priceDoc = graphql.MustParse(`subscription OnPrice($symbol: String!) { price(symbol: $symbol) }`)
)

// ---------------------------------------------------------------------------
// fakeClient: records calls in order and lets tests push events
// ---------------------------------------------------------------------------

type fakeClient struct {
	mu       sync.Mutex
	calls    []string
	requests []graphql.Request
	subs     []*fakeSub

	// prime, if set, is delivered from inside Listen.
	prime any
}

func (f *fakeClient) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeClient) Subscribe(req graphql.Request) graphql.Stream {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	f.record("subscribe %v", req.Variables)
	return &fakeStream{f: f, req: req, prime: f.prime}
}

func (f *fakeClient) sub(i int) *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[i]
}

func (f *fakeClient) latest() *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs[len(f.subs)-1]
}

func (f *fakeClient) subscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeStream struct {
	f   *fakeClient
	req graphql.Request

	// prime, if set, is delivered from inside Listen.
	prime any
}

func (s *fakeStream) Listen(onData func(graphql.Payload), onError func(error)) graphql.Subscription {
	sub := &fakeSub{f: s.f, req: s.req, onData: onData, onError: onError}
	s.f.mu.Lock()
	s.f.subs = append(s.f.subs, sub)
	s.f.mu.Unlock()
	if s.prime != nil {
		sub.push(s.prime)
	}
	return sub
}

// fakeSub keeps delivering after Unsubscribe so tests can check the hook
// drops stale events on its own.
type fakeSub struct {
	f       *fakeClient
	req     graphql.Request
	onData  func(graphql.Payload)
	onError func(error)

	mu           sync.Mutex
	unsubscribes int
}

func (s *fakeSub) Unsubscribe() {
	s.mu.Lock()
	s.unsubscribes++
	s.mu.Unlock()
	s.f.record("unsubscribe %v", s.req.Variables)
}

func (s *fakeSub) unsubscribeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribes
}

func (s *fakeSub) push(data any) { s.onData(graphql.Payload{Data: data}) }

func (s *fakeSub) fail(err error) { s.onError(err) }

// ---------------------------------------------------------------------------
// testify stubs for strict call counting
// ---------------------------------------------------------------------------

type stubClient struct{ mock.Mock }

func (c *stubClient) Subscribe(req graphql.Request) graphql.Stream {
	return c.Called(req).Get(0).(graphql.Stream)
}

type stubStream struct {
	mock.Mock
	onData  func(graphql.Payload)
	onError func(error)
}

func (s *stubStream) Listen(onData func(graphql.Payload), onError func(error)) graphql.Subscription {
	s.onData, s.onError = onData, onError
	return s.Called().Get(0).(graphql.Subscription)
}

type stubSubscription struct{ mock.Mock }

func (s *stubSubscription) Unsubscribe() { s.Called() }

// ---------------------------------------------------------------------------
// widget: a component body that records every hook result
// ---------------------------------------------------------------------------

type widget struct {
	doc     *graphql.Document
	opts    Options
	results []Result
}

func (p *widget) render(inst *component.Instance) error {
	res, err := UseSubscription(inst, p.doc, p.opts)
	if err != nil {
		return err
	}
	p.results = append(p.results, res)
	return nil
}

func (p *widget) last() Result {
	return p.results[len(p.results)-1]
}

// renderSettled renders once, then keeps rendering while state is dirty.
func renderSettled(t *testing.T, inst *component.Instance, p *widget) Result {
	t.Helper()
	require.NoError(t, inst.Render(p.render))
	for i := 0; inst.Dirty(); i++ {
		require.Less(t, i, 10, "render loop did not settle")
		require.NoError(t, inst.Render(p.render))
	}
	return p.last()
}

type recordingLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recordingLogger) Log(e log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingLogger) transitions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.StateChange != nil && e.StateChange.Entity == log.StateEntitySubscription {
			out = append(out, e.StateChange.OldState+"->"+e.StateChange.NewState)
		}
	}
	return out
}

func (r *recordingLogger) actions() []log.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []log.Action
	for _, e := range r.events {
		if e.Subscription != nil {
			out = append(out, e.Subscription.Action)
		}
	}
	return out
}
