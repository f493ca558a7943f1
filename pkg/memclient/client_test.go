package memclient

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/livesub/livesub-go/pkg/graphql"
	"github.com/livesub/livesub-go/pkg/log"
)

var (
	itemDoc  = graphql.MustParse(`subscription OnItem($id: ID!) { item(id: $id) { id } }`)
	priceDoc = graphql.MustParse(`subscription OnPrice { price }`)
)

type recorder struct {
	mu     sync.Mutex
	data   []any
	errs   []error
	events []log.Event
}

func (r *recorder) onData(p graphql.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data = append(r.data, p.Data)
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) Log(e log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func listen(c *Client, doc *graphql.Document, vars map[string]any) (*recorder, graphql.Subscription) {
	r := &recorder{}
	sub := c.Subscribe(graphql.Request{Document: doc, Variables: vars}).Listen(r.onData, r.onError)
	return r, sub
}

func TestSubscribeIsLazy(t *testing.T) {
	c := New()
	c.Subscribe(graphql.Request{Document: itemDoc})

	if got := len(c.Requests()); got != 1 {
		t.Errorf("Requests() len = %d, want 1", got)
	}
	if got := c.Active("OnItem"); got != 0 {
		t.Errorf("Active() = %d, want 0 before Listen", got)
	}
}

func TestPublishByOperation(t *testing.T) {
	c := New()
	item1, _ := listen(c, itemDoc, map[string]any{"id": 1})
	item2, _ := listen(c, itemDoc, map[string]any{"id": 2})
	price, _ := listen(c, priceDoc, nil)

	if n := c.Publish("OnItem", "x"); n != 2 {
		t.Errorf("Publish() = %d, want 2", n)
	}
	if len(item1.data) != 1 || len(item2.data) != 1 {
		t.Errorf("item subscribers got %v and %v, want one push each", item1.data, item2.data)
	}
	if len(price.data) != 0 {
		t.Errorf("price subscriber got %v, want nothing", price.data)
	}
	if n := c.Publish("OnMissing", "x"); n != 0 {
		t.Errorf("Publish(unknown) = %d, want 0", n)
	}
}

func TestPublishToMatchesVariables(t *testing.T) {
	c := New()
	item1, _ := listen(c, itemDoc, map[string]any{"id": 1, "lang": "en"})
	item2, _ := listen(c, itemDoc, map[string]any{"id": 2})

	// int64 and int compare equal.
	if n := c.PublishTo("OnItem", map[string]any{"id": int64(1)}, "one"); n != 1 {
		t.Errorf("PublishTo() = %d, want 1", n)
	}
	if len(item1.data) != 1 || item1.data[0] != "one" {
		t.Errorf("item1 data = %v, want [one]", item1.data)
	}
	if len(item2.data) != 0 {
		t.Errorf("item2 data = %v, want none", item2.data)
	}

	if n := c.PublishTo("OnItem", map[string]any{"id": 1, "lang": "de"}, "x"); n != 0 {
		t.Errorf("PublishTo(mismatch) = %d, want 0", n)
	}
}

func TestPublishToMatchesSubSecondTimes(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := New()
	early, _ := listen(c, itemDoc, map[string]any{"since": base})
	late, _ := listen(c, itemDoc, map[string]any{"since": base.Add(500 * time.Millisecond)})

	if n := c.PublishTo("OnItem", map[string]any{"since": base.Add(500 * time.Millisecond)}, "x"); n != 1 {
		t.Errorf("PublishTo() = %d, want 1", n)
	}
	if len(early.data) != 0 {
		t.Errorf("early data = %v, want none", early.data)
	}
	if len(late.data) != 1 {
		t.Errorf("late data = %v, want one push", late.data)
	}
}

func TestFailDeliversError(t *testing.T) {
	c := New()
	r, _ := listen(c, itemDoc, map[string]any{"id": 1})

	cause := errors.New("socket closed")
	if n := c.Fail("OnItem", cause); n != 1 {
		t.Errorf("Fail() = %d, want 1", n)
	}
	if len(r.errs) != 1 || !errors.Is(r.errs[0], cause) {
		t.Errorf("errs = %v, want [%v]", r.errs, cause)
	}
}

func TestUnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	c := New()
	r, sub := listen(c, itemDoc, nil)

	sub.Unsubscribe()
	sub.Unsubscribe()

	if n := c.Publish("OnItem", "late"); n != 0 {
		t.Errorf("Publish() after unsubscribe = %d, want 0", n)
	}
	if len(r.data) != 0 {
		t.Errorf("data = %v, want none", r.data)
	}
	if got := c.Unsubscribes(); got != 1 {
		t.Errorf("Unsubscribes() = %d, want 1", got)
	}
	if got := c.Active("OnItem"); got != 0 {
		t.Errorf("Active() = %d, want 0", got)
	}
}

func TestMaxSubscriptions(t *testing.T) {
	c := New(WithConfig(Config{MaxSubscriptions: 1}))
	listen(c, itemDoc, nil)
	r, sub := listen(c, itemDoc, nil)

	if len(r.errs) != 1 || !errors.Is(r.errs[0], ErrResourceExhausted) {
		t.Fatalf("errs = %v, want [%v]", r.errs, ErrResourceExhausted)
	}
	if got := c.Count(); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}

	sub.Unsubscribe()
	if got := c.Unsubscribes(); got != 0 {
		t.Errorf("Unsubscribes() = %d, want 0 for a rejected listener", got)
	}
}

func TestRetainDeliversLastPayloadToNewListeners(t *testing.T) {
	c := New(WithConfig(Config{Retain: true}))
	c.Publish("OnPrice", 41)
	c.Publish("OnPrice", 42)

	r, _ := listen(c, priceDoc, nil)
	if len(r.data) != 1 || r.data[0] != 42 {
		t.Errorf("data = %v, want [42]", r.data)
	}

	// Filtered publishes are not retained.
	c.PublishTo("OnItem", map[string]any{"id": 1}, "x")
	if _, ok := c.Retained("OnItem"); ok {
		t.Error("Retained(OnItem) = true, want false")
	}
}

func TestRetainOffByDefault(t *testing.T) {
	c := New()
	c.Publish("OnPrice", 1)

	r, _ := listen(c, priceDoc, nil)
	if len(r.data) != 0 {
		t.Errorf("data = %v, want none", r.data)
	}
}

func TestDisconnect(t *testing.T) {
	c := New()
	a, subA := listen(c, itemDoc, nil)
	b, _ := listen(c, priceDoc, nil)

	if n := c.Disconnect(nil); n != 2 {
		t.Errorf("Disconnect() = %d, want 2", n)
	}
	if len(a.errs) != 1 || !errors.Is(a.errs[0], ErrDisconnected) {
		t.Errorf("a errs = %v", a.errs)
	}
	if len(b.errs) != 1 {
		t.Errorf("b errs = %v", b.errs)
	}
	if got := c.Count(); got != 0 {
		t.Errorf("Count() = %d, want 0", got)
	}

	subA.Unsubscribe()
	if got := c.Unsubscribes(); got != 0 {
		t.Errorf("Unsubscribes() = %d, want 0 after disconnect", got)
	}
}

func TestUnsubscribeFromCallback(t *testing.T) {
	c := New()
	var sub graphql.Subscription
	pushes := 0
	sub = c.Subscribe(graphql.Request{Document: itemDoc}).Listen(func(graphql.Payload) {
		pushes++
		sub.Unsubscribe()
	}, nil)

	c.Publish("OnItem", 1)
	c.Publish("OnItem", 2)

	if pushes != 1 {
		t.Errorf("pushes = %d, want 1", pushes)
	}
}

func TestTransportTrace(t *testing.T) {
	r := &recorder{}
	c := New(WithLogger(r))

	_, sub := listen(c, itemDoc, map[string]any{"id": 1})
	c.Publish("OnItem", "x")
	c.Fail("OnItem", errors.New("E"))
	sub.Unsubscribe()

	want := []log.Action{log.ActionSubscribe, log.ActionData, log.ActionError, log.ActionUnsubscribe}
	if len(r.events) != len(want) {
		t.Fatalf("events = %d, want %d", len(r.events), len(want))
	}
	for i, e := range r.events {
		if e.Layer != log.LayerTransport {
			t.Errorf("event %d layer = %v, want TRANSPORT", i, e.Layer)
		}
		if e.Subscription == nil || e.Subscription.Action != want[i] {
			t.Errorf("event %d = %+v, want action %v", i, e.Subscription, want[i])
		}
	}
	if r.events[0].Subscription.SubscriptionID == "" {
		t.Error("subscribe event has no subscription ID")
	}
	if r.events[0].Subscription.SubscriptionID != r.events[3].Subscription.SubscriptionID {
		t.Error("subscribe and unsubscribe IDs differ")
	}
}

func TestConcurrentPublishAndUnsubscribe(t *testing.T) {
	c := New()
	var subs []graphql.Subscription
	for i := 0; i < 20; i++ {
		_, sub := listen(c, itemDoc, map[string]any{"id": i})
		subs = append(subs, sub)
	}

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(2)
		go func(s graphql.Subscription) {
			defer wg.Done()
			s.Unsubscribe()
		}(sub)
		go func() {
			defer wg.Done()
			c.Publish("OnItem", "x")
		}()
	}
	wg.Wait()

	if got := c.Active("OnItem"); got != 0 {
		t.Errorf("Active() = %d, want 0", got)
	}
	if got := c.Unsubscribes(); got != 20 {
		t.Errorf("Unsubscribes() = %d, want 20", got)
	}
}
