// Package component implements the host rendering model livesub hooks run in.
//
// An Instance is one mounted component. Each call to Render executes a
// render function that registers hooks in order: state cells, refs,
// effects, and the scope lookup. The sequence of hooks must be identical
// on every pass; a pass that registers a different number or kind of hooks
// fails with ErrHookOrder and nothing is committed.
//
// # Render and Commit
//
// A pass has two phases:
//
//  1. Render: the render function runs. Hooks read state and record which
//     effects need to run. Render must not mutate state.
//  2. Commit: for every effect whose key changed, the previous cleanup
//     runs, then (after all cleanups) the new effect runs, in slot order.
//
// # State Updates
//
// State setters are safe to call from any goroutine, including transport
// callbacks. A setter replaces the stored snapshot, marks the instance
// dirty, and signals Updates(). The owner re-renders in response; Run does
// this in a loop.
//
// # Unmount
//
// Unmount runs every effect cleanup once, in slot order, and closes the
// Updates channel. Setter calls after unmount are dropped.
package component
