package graphql

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Client opens subscriptions. A Client may be shared by any number of
// component instances; each opens independent subscriptions through it.
type Client interface {
	// Subscribe prepares a stream for req. No network activity is required
	// until the stream is listened to.
	Subscribe(req Request) Stream
}

// Stream is a push-based source of results for one request.
type Stream interface {
	// Listen opens the subscription. onData is called for every result and
	// onError for transport failures. Neither is called after the returned
	// Subscription has been unsubscribed.
	Listen(onData func(Payload), onError func(error)) Subscription
}

// Subscription is a handle to a live network subscription.
type Subscription interface {
	// Unsubscribe stops the subscription. It is idempotent.
	Unsubscribe()
}

// Payload is one result pushed by the server.
type Payload struct {
	// Data is the decoded result data.
	Data any

	// Errors are GraphQL errors reported alongside (or instead of) data.
	Errors gqlerror.List
}

// Err returns the payload's GraphQL errors as a single error when the payload
// carries errors and no data; nil otherwise.
func (p Payload) Err() error {
	if p.Data == nil && len(p.Errors) > 0 {
		return p.Errors
	}
	return nil
}

// TransportError wraps an error delivered by a subscription stream.
type TransportError struct {
	// Operation is the operation name of the failing subscription.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("subscription %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}
