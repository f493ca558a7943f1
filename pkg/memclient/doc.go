// Package memclient implements an in-memory GraphQL subscription client.
//
// Subscriptions are grouped by the operation name of their document. Events
// are pushed with Publish and Fail, either to every active subscriber of an
// operation or only to those whose variables match a filter.
//
// # Retained payloads
//
// With Config.Retain set, the last payload published to an operation is
// delivered to every new listener from inside Listen, the way a server
// answers a subscription with the current value before streaming changes.
//
// # Delivery
//
// Callbacks run on the publishing goroutine, outside any client lock. A
// subscriber that has been unsubscribed receives nothing further from
// publishes that start after Unsubscribe returns.
package memclient
