// Package graphql defines the contracts livesub consumes from a GraphQL
// client: subscription requests, push-event streams, and the request
// identity used to decide whether a live subscription can be reused.
//
// # Client Contract
//
// A Client turns a Request into a Stream. Listening on the stream opens the
// network subscription and returns a Subscription handle:
//
//	sub := client.Subscribe(req).Listen(onData, onError)
//	defer sub.Unsubscribe()
//
// Implementations must stop delivering events once Unsubscribe returns, and
// Unsubscribe must be idempotent.
//
// # Request Identity
//
// KeyOf derives a comparable Key from the document pointer and a
// deterministic CBOR encoding of the variables and transport options. Two
// requests built from freshly constructed but equal maps yield equal keys.
package graphql
