package graphql

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

func TestPayloadErr(t *testing.T) {
	assert.NoError(t, Payload{Data: map[string]any{"a": 1}}.Err())
	assert.NoError(t, Payload{}.Err())

	withBoth := Payload{Data: 1, Errors: gqlerror.List{gqlerror.Errorf("partial")}}
	assert.NoError(t, withBoth.Err())

	onlyErrors := Payload{Errors: gqlerror.List{gqlerror.Errorf("denied")}}
	err := onlyErrors.Err()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestTransportErrorWraps(t *testing.T) {
	cause := errors.New("connection reset")
	var err error = &TransportError{Operation: "OnItem", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "subscription OnItem: connection reset", err.Error())

	var te *TransportError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, "OnItem", te.Operation)
}
