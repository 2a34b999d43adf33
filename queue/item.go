package queue

import "time"

// Status represents the lifecycle state of a work item.
type Status string

const (
	// StatusPending means the item is waiting for delivery.
	StatusPending Status = "pending"
	// StatusInFlight means the item has been dequeued but not yet acknowledged.
	StatusInFlight Status = "in_flight"
	// StatusDone means the item was acknowledged successfully.
	StatusDone Status = "done"
	// StatusFailed means the item exhausted its retry budget.
	StatusFailed Status = "failed"
)

// terminal reports whether a status admits no further transitions.
func (s Status) terminal() bool {
	return s == StatusDone || s == StatusFailed
}

func (s Status) valid() bool {
	switch s {
	case StatusPending, StatusInFlight, StatusDone, StatusFailed:
		return true
	}
	return false
}

// WorkItem is a single unit of work passing through the queue.
// The payload is opaque to the queue; only the queue mutates status
// and attempt count.
type WorkItem struct {
	// ID is unique within a queue and monotonically increasing from 1.
	ID uint64 `json:"id"`

	// Payload carries the caller's data, typically a JSON document.
	Payload string `json:"payload"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// Attempts counts how many times delivery of this item has failed.
	Attempts int `json:"attempts"`

	// EnqueuedAt is the time the item was accepted by the queue.
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Clone returns an independent copy of the item.
func (w *WorkItem) Clone() *WorkItem {
	c := *w
	return &c
}
