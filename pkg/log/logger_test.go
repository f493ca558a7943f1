package log

import (
	"testing"
	"time"
)

func TestNoopLoggerDoesNotPanic(t *testing.T) {
	logger := NoopLogger{}

	event := Event{
		Timestamp:  time.Now(),
		InstanceID: "inst-1",
		Layer:      LayerHook,
		Category:   CategorySubscription,
	}
	logger.Log(event)

	event.Subscription = &SubscriptionEvent{Action: ActionSubscribe, Operation: "OnMessage"}
	logger.Log(event)

	event.Subscription = nil
	event.StateChange = &StateChangeEvent{Entity: StateEntityInstance, NewState: "MOUNTED"}
	logger.Log(event)

	event.StateChange = nil
	event.Error = &ErrorEventData{Message: "boom"}
	logger.Log(event)
}

func TestNoopLoggerIsZeroValue(t *testing.T) {
	var logger NoopLogger
	logger.Log(Event{})
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Errorf("OrNoop(nil) = %T, want NoopLogger", OrNoop(nil))
	}

	m := &mockLogger{}
	if got := OrNoop(m); got != m {
		t.Errorf("OrNoop(m) = %v, want m", got)
	}
}

func TestParseNames(t *testing.T) {
	if l, ok := ParseLayer("hook"); !ok || l != LayerHook {
		t.Errorf("ParseLayer(hook) = %v, %v", l, ok)
	}
	if _, ok := ParseLayer("wire"); ok {
		t.Error("ParseLayer(wire) should fail")
	}
	if c, ok := ParseCategory("Error"); !ok || c != CategoryError {
		t.Errorf("ParseCategory(Error) = %v, %v", c, ok)
	}
	if a, ok := ParseAction("unsubscribe"); !ok || a != ActionUnsubscribe {
		t.Errorf("ParseAction(unsubscribe) = %v, %v", a, ok)
	}
	if Action(99).String() != "UNKNOWN" {
		t.Errorf("Action(99).String() = %q, want UNKNOWN", Action(99).String())
	}
}
