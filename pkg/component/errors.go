package component

import "errors"

// Component errors.
var (
	ErrHookOrder       = errors.New("hook order changed between renders")
	ErrUnmounted       = errors.New("instance is unmounted")
	ErrNotRendering    = errors.New("hook called outside a render pass")
	ErrReentrantRender = errors.New("render called during render")
)

// hookOrderPanic carries a drift description from a hook back to Render.
type hookOrderPanic struct {
	detail string
}
