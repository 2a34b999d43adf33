package queue

import (
	"fmt"
	"time"
)

// State is a point-in-time copy of a queue: every live and terminal item
// in ID order, the pending delivery order, and the ID cursor. It is the
// unit serialized by the backup store.
type State struct {
	// Items holds every item the queue knows about, sorted by ID.
	Items []WorkItem `json:"items"`

	// Pending lists the IDs of pending items in delivery order. Requeued
	// items appear at the tail, so this order is not always ID order.
	Pending []uint64 `json:"pending"`

	// NextID is the ID the next enqueued item will receive.
	NextID uint64 `json:"next_id"`
}

// Validate checks the status/cursor invariant:
// IDs are unique, strictly increasing, and below the cursor; statuses are
// legal; and the pending list references exactly the pending items.
func (s State) Validate() error {
	if s.NextID < 1 {
		return fmt.Errorf("%w: cursor %d below 1", ErrInvalidState, s.NextID)
	}

	pendingIDs := make(map[uint64]bool, len(s.Items))
	var prev uint64
	for i, item := range s.Items {
		if item.ID == 0 {
			return fmt.Errorf("%w: item at index %d has zero ID", ErrInvalidState, i)
		}
		if item.ID >= s.NextID {
			return fmt.Errorf("%w: item %d at or beyond cursor %d", ErrInvalidState, item.ID, s.NextID)
		}
		if item.ID <= prev {
			return fmt.Errorf("%w: item IDs not strictly increasing at %d", ErrInvalidState, item.ID)
		}
		prev = item.ID

		if !item.Status.valid() {
			return fmt.Errorf("%w: item %d has unknown status %q", ErrInvalidState, item.ID, item.Status)
		}
		if item.Attempts < 0 {
			return fmt.Errorf("%w: item %d has negative attempt count", ErrInvalidState, item.ID)
		}
		if item.Status == StatusPending {
			pendingIDs[item.ID] = true
		}
	}

	seen := make(map[uint64]bool, len(s.Pending))
	for _, id := range s.Pending {
		if seen[id] {
			return fmt.Errorf("%w: item %d listed twice in pending order", ErrInvalidState, id)
		}
		seen[id] = true
		if !pendingIDs[id] {
			return fmt.Errorf("%w: pending order references non-pending item %d", ErrInvalidState, id)
		}
	}
	if len(seen) != len(pendingIDs) {
		return fmt.Errorf("%w: %d pending items but %d in pending order", ErrInvalidState, len(pendingIDs), len(seen))
	}

	return nil
}

// Equal reports whether two states describe the same queue contents.
// Timestamps are compared with time.Time.Equal so that states surviving
// a serialization round trip still compare equal.
func (s State) Equal(other State) bool {
	if s.NextID != other.NextID ||
		len(s.Items) != len(other.Items) ||
		len(s.Pending) != len(other.Pending) {
		return false
	}
	for i, item := range s.Items {
		o := other.Items[i]
		if item.ID != o.ID || item.Payload != o.Payload ||
			item.Status != o.Status || item.Attempts != o.Attempts ||
			!item.EnqueuedAt.Equal(o.EnqueuedAt) {
			return false
		}
	}
	for i, id := range s.Pending {
		if id != other.Pending[i] {
			return false
		}
	}
	return true
}

// Normalize converts all timestamps to UTC truncated to the microsecond.
// Backup encoding normalizes states so that artifacts are byte-identical
// across wall-clock monotonic readings.
func (s State) Normalize() State {
	out := State{
		Items:   make([]WorkItem, len(s.Items)),
		Pending: append([]uint64(nil), s.Pending...),
		NextID:  s.NextID,
	}
	for i, item := range s.Items {
		item.EnqueuedAt = item.EnqueuedAt.UTC().Truncate(time.Microsecond)
		out.Items[i] = item
	}
	return out
}
