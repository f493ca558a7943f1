// Package scope provides the explicit client scope chain that component
// instances are mounted under. A scope makes a GraphQL client available to a
// subtree of instances without passing it to every hook call.
//
// Scopes are immutable. Providing a client creates a child scope; lookups
// walk from the child towards the root and return the nearest client.
package scope

import "github.com/livesub/livesub-go/pkg/graphql"

// Scope is one node of the scope chain.
// A nil *Scope is valid and behaves like Root().
type Scope struct {
	parent *Scope
	client graphql.Client
	depth  int
}

// Root returns an empty scope with no client.
func Root() *Scope {
	return &Scope{}
}

// Provide returns a child scope that makes client ambient to everything
// mounted under it. A nil client provides nothing; lookups fall through to
// the parent.
func (s *Scope) Provide(client graphql.Client) *Scope {
	return &Scope{parent: s, client: client, depth: s.Depth() + 1}
}

// Client returns the nearest client in the chain, or nil when none was provided.
func (s *Scope) Client() graphql.Client {
	for n := s; n != nil; n = n.parent {
		if n.client != nil {
			return n.client
		}
	}
	return nil
}

// Depth returns the number of Provide calls between s and the root.
func (s *Scope) Depth() int {
	if s == nil {
		return 0
	}
	return s.depth
}

// Provider is the wrapper form of Provide: it creates the child scope for
// client and mounts each child under it, in order.
func Provider(parent *Scope, client graphql.Client, children ...func(*Scope)) *Scope {
	child := parent.Provide(client)
	for _, mount := range children {
		mount(child)
	}
	return child
}
