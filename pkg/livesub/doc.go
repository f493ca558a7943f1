// Package livesub binds GraphQL subscriptions to component instances.
//
// UseSubscription declares a live query inside a render function. The first
// render returns a loading result; once the effect commits, the hook opens a
// network subscription and folds every pushed result or error into the
// instance state, which schedules a re-render:
//
//	func Ticker(inst *component.Instance) error {
//	    res, err := livesub.UseSubscription(inst, onTick, livesub.Options{
//	        Variables: map[string]any{"symbol": "ACME"},
//	    })
//	    if err != nil {
//	        return err
//	    }
//	    if res.Loading {
//	        // show spinner
//	    }
//	    return nil
//	}
//
// # Re-subscription
//
// A subscription is reused for as long as the request identity (document
// pointer plus a deterministic encoding of variables and transport options)
// stays the same. When it changes, the previous subscription is torn down
// and the result reset to loading before the replacement is opened. Swapping
// the OnSubscriptionData callback never re-subscribes.
//
// # Errors
//
// A missing client is a configuration error and aborts the render with
// ErrMissingClient. Transport errors never abort anything: they are stored
// in Result.Err, wrapped in a *graphql.TransportError, and the last data
// received is kept alongside them.
package livesub
