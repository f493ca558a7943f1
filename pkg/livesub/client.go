package livesub

import (
	"errors"

	"github.com/livesub/livesub-go/pkg/component"
	"github.com/livesub/livesub-go/pkg/graphql"
)

// ErrMissingClient is returned when no client was provided by a scope or
// passed in through options.
var ErrMissingClient = errors.New(`could not find "client" in the scope or passed in as an option: ` +
	`wrap the root component in a Provider, or pass a client in via options`)

// UseClient resolves the client for inst. explicit takes precedence over the
// client provided by the instance scope. The scope is consulted on every
// call, whether or not explicit is set, so the hook sequence is the same on
// every pass.
func UseClient(inst *component.Instance, explicit graphql.Client) (graphql.Client, error) {
	client := component.UseScope(inst).Client()

	if explicit != nil {
		client = explicit
	}

	if client == nil {
		return nil, ErrMissingClient
	}
	return client, nil
}
