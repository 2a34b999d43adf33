package queue

import "errors"

// Structural queue errors. These indicate caller bugs or invalid state
// and are surfaced directly, never swallowed.
var (
	// ErrQueueFull is returned by Enqueue when the configured capacity
	// bound has been reached.
	ErrQueueFull = errors.New("queue is full")

	// ErrUnknownItem is returned when an operation references an item ID
	// the queue has never seen.
	ErrUnknownItem = errors.New("unknown work item")

	// ErrInvalidTransition is returned when an ack or nack targets an item
	// that is not in flight.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInvalidState is returned by Restore when the supplied state
	// violates the status/cursor invariant.
	ErrInvalidState = errors.New("invalid queue state")
)
