package log

import (
	"strings"
	"time"
)

// Event represents a lifecycle event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// InstanceID identifies the component instance (UUID).
	InstanceID string `cbor:"2,keyasint,omitempty"`

	// Layer where the event was captured.
	Layer Layer `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Component is the human-readable component name, if one was given.
	Component string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	StateChange  *StateChangeEvent  `cbor:"10,keyasint,omitempty"` // Instance/subscription state
	Subscription *SubscriptionEvent `cbor:"11,keyasint,omitempty"` // Subscribe/unsubscribe/push
	Error        *ErrorEventData    `cbor:"12,keyasint,omitempty"` // Errors at any layer
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerComponent is the host rendering layer (render, mount, unmount).
	LayerComponent Layer = 0
	// LayerHook is the subscription hook layer.
	LayerHook Layer = 1
	// LayerTransport is the GraphQL client layer.
	LayerTransport Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerComponent:
		return "COMPONENT"
	case LayerHook:
		return "HOOK"
	case LayerTransport:
		return "TRANSPORT"
	default:
		return "UNKNOWN"
	}
}

// ParseLayer converts a layer name (case-insensitive) back to a Layer.
func ParseLayer(s string) (Layer, bool) {
	for _, l := range []Layer{LayerComponent, LayerHook, LayerTransport} {
		if strings.EqualFold(l.String(), s) {
			return l, true
		}
	}
	return 0, false
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a state change.
	CategoryState Category = 0
	// CategorySubscription indicates a subscription action or push event.
	CategorySubscription Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategorySubscription:
		return "SUBSCRIPTION"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory converts a category name (case-insensitive) back to a Category.
func ParseCategory(s string) (Category, bool) {
	for _, c := range []Category{CategoryState, CategorySubscription, CategoryError} {
		if strings.EqualFold(c.String(), s) {
			return c, true
		}
	}
	return 0, false
}

// StateChangeEvent captures instance and subscription lifecycle transitions.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityInstance indicates a component instance state change.
	StateEntityInstance StateEntity = 0
	// StateEntitySubscription indicates a hook subscription state change.
	StateEntitySubscription StateEntity = 1
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityInstance:
		return "INSTANCE"
	case StateEntitySubscription:
		return "SUBSCRIPTION"
	default:
		return "UNKNOWN"
	}
}

// SubscriptionEvent captures one subscription action.
type SubscriptionEvent struct {
	// Action is what happened to the subscription.
	Action Action `cbor:"1,keyasint"`

	// SubscriptionID identifies the transport subscription, when known.
	SubscriptionID string `cbor:"2,keyasint,omitempty"`

	// Operation is the GraphQL operation name.
	Operation string `cbor:"3,keyasint,omitempty"`

	// Key is the request identity the subscription was opened for.
	Key string `cbor:"4,keyasint,omitempty"`

	// Variables are the request variables (CBOR-compatible representation).
	Variables map[string]any `cbor:"5,keyasint,omitempty"`
}

// Action indicates the kind of subscription event.
type Action uint8

const (
	// ActionSubscribe indicates a new network subscription was opened.
	ActionSubscribe Action = 0
	// ActionUnsubscribe indicates a subscription was torn down.
	ActionUnsubscribe Action = 1
	// ActionData indicates a push event carrying data.
	ActionData Action = 2
	// ActionError indicates a push event carrying an error.
	ActionError Action = 3
	// ActionIgnored indicates an event from a superseded subscription was dropped.
	ActionIgnored Action = 4
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionSubscribe:
		return "SUBSCRIBE"
	case ActionUnsubscribe:
		return "UNSUBSCRIBE"
	case ActionData:
		return "DATA"
	case ActionError:
		return "ERROR"
	case ActionIgnored:
		return "IGNORED"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}

// ParseAction converts an action name (case-insensitive) back to an Action.
func ParseAction(s string) (Action, bool) {
	for _, a := range []Action{ActionSubscribe, ActionUnsubscribe, ActionData, ActionError, ActionIgnored} {
		if strings.EqualFold(a.String(), s) {
			return a, true
		}
	}
	return 0, false
}
