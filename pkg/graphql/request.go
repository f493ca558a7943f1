package graphql

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// ErrUnencodableRequest is returned when variables or options cannot be
// serialized for request identity.
var ErrUnencodableRequest = errors.New("request parameters cannot be encoded")

// Request is one subscription request.
type Request struct {
	// Document is the subscription document.
	Document *Document

	// Variables are the operation variables.
	Variables map[string]any

	// Options are transport-specific fields passed through to the client.
	Options map[string]any
}

// Key is the identity of a Request for re-subscription purposes.
// Keys are comparable and can be used as effect keys or map keys.
type Key struct {
	doc    *Document
	params string
}

// keyEncMode encodes request parameters deterministically:
// canonical map key ordering, no indefinite lengths, and nanosecond times.
var keyEncMode cbor.EncMode

func init() {
	opts := cbor.CanonicalEncOptions()
	opts.Time = cbor.TimeRFC3339Nano

	var err error
	keyEncMode, err = opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create request key CBOR encoder mode: %v", err))
	}
}

// requestParams is the encoded part of a request key.
type requestParams struct {
	Variables map[string]any `cbor:"1,keyasint,omitempty"`
	Options   map[string]any `cbor:"2,keyasint,omitempty"`
}

// KeyOf derives the identity of req. Nil and empty maps are equivalent.
func KeyOf(req Request) (Key, error) {
	data, err := keyEncMode.Marshal(requestParams{
		Variables: req.Variables,
		Options:   req.Options,
	})
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrUnencodableRequest, err)
	}
	return Key{doc: req.Document, params: string(data)}, nil
}

// IsZero reports whether k is the zero Key (no request).
func (k Key) IsZero() bool {
	return k == Key{}
}

// Document returns the document the key was derived from.
func (k Key) Document() *Document {
	return k.doc
}

// String returns a short printable form: operation name and a digest of the
// encoded parameters.
func (k Key) String() string {
	if k.IsZero() {
		return "<none>"
	}
	sum := sha256.Sum256([]byte(k.params))
	return fmt.Sprintf("%s#%x", k.doc.OperationName(), sum[:6])
}
