// Package queue implements the durable in-process work queue at the heart
// of the orchestration core. Items move Pending -> InFlight -> Done, with
// nack requeueing at the tail until the retry budget is spent, after which
// the item becomes Failed and is surfaced rather than dropped.
//
// All mutation is serialized under a single mutex so status transitions
// are atomic; Snapshot holds the lock only for the duration of a copy.
package queue

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultMaxAttempts is the retry budget used when Config.MaxAttempts is 0.
const DefaultMaxAttempts = 3

// Config controls queue bounds and retry policy.
type Config struct {
	// Capacity bounds the number of live (pending + in-flight) items.
	// Zero means unbounded.
	Capacity int

	// MaxAttempts is how many failed deliveries an item may accumulate
	// before the next nack marks it Failed. Zero applies DefaultMaxAttempts.
	MaxAttempts int
}

// Queue is a FIFO work queue with at-least-once delivery semantics.
// It is safe for concurrent use.
type Queue struct {
	mu          sync.Mutex
	items       map[uint64]*WorkItem
	pending     []uint64 // delivery order; requeued items go to the tail
	nextID      uint64
	live        int // pending + in-flight
	capacity    int
	maxAttempts int
}

// New creates an empty queue.
func New(cfg Config) *Queue {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Queue{
		items:       make(map[uint64]*WorkItem),
		nextID:      1,
		capacity:    cfg.Capacity,
		maxAttempts: maxAttempts,
	}
}

// Enqueue accepts a payload and returns the assigned item ID.
// Returns ErrQueueFull when the capacity bound is reached.
func (q *Queue) Enqueue(payload string) (uint64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.capacity > 0 && q.live >= q.capacity {
		return 0, fmt.Errorf("%w: capacity %d reached", ErrQueueFull, q.capacity)
	}

	id := q.nextID
	q.nextID++
	q.items[id] = &WorkItem{
		ID:         id,
		Payload:    payload,
		Status:     StatusPending,
		EnqueuedAt: time.Now().UTC(),
	}
	q.pending = append(q.pending, id)
	q.live++
	return id, nil
}

// Dequeue returns a copy of the oldest pending item and marks it in flight.
// The second return value is false when no pending item exists; callers
// should treat Dequeue as a non-blocking poll.
func (q *Queue) Dequeue() (*WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, false
	}

	id := q.pending[0]
	q.pending = q.pending[1:]
	item := q.items[id]
	item.Status = StatusInFlight
	return item.Clone(), true
}

// Ack marks an in-flight item as done.
func (q *Queue) Ack(id uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownItem, id)
	}
	if item.Status != StatusInFlight {
		return fmt.Errorf("%w: cannot ack item %d in status %q", ErrInvalidTransition, id, item.Status)
	}

	item.Status = StatusDone
	q.live--
	return nil
}

// Nack reports a failed delivery. The item is requeued at the tail with an
// incremented attempt count, preserving FIFO fairness for items already
// pending. Once the attempt count exceeds the retry budget the item
// becomes Failed and stays visible via Failed().
func (q *Queue) Nack(id uint64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	item, ok := q.items[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownItem, id)
	}
	if item.Status != StatusInFlight {
		return fmt.Errorf("%w: cannot nack item %d in status %q", ErrInvalidTransition, id, item.Status)
	}

	item.Attempts++
	if item.Attempts > q.maxAttempts {
		item.Status = StatusFailed
		q.live--
		return nil
	}

	item.Status = StatusPending
	q.pending = append(q.pending, id)
	return nil
}

// Failed returns copies of all items that exhausted their retry budget,
// in ID order.
func (q *Queue) Failed() []*WorkItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	var failed []*WorkItem
	for _, item := range q.items {
		if item.Status == StatusFailed {
			failed = append(failed, item.Clone())
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].ID < failed[j].ID })
	return failed
}

// Snapshot returns a consistent point-in-time copy of the queue state.
// The lock is held only while copying.
func (q *Queue) Snapshot() State {
	q.mu.Lock()
	defer q.mu.Unlock()

	st := State{
		Items:   make([]WorkItem, 0, len(q.items)),
		Pending: append([]uint64(nil), q.pending...),
		NextID:  q.nextID,
	}
	for _, item := range q.items {
		st.Items = append(st.Items, *item)
	}
	sort.Slice(st.Items, func(i, j int) bool { return st.Items[i].ID < st.Items[j].ID })
	return st
}

// Restore atomically replaces the queue contents with the supplied state.
// Statuses are preserved exactly as supplied, so a Snapshot followed by a
// Restore is symmetric. Returns ErrInvalidState, leaving the live state
// untouched, if the state violates the status/cursor invariant.
//
// After restoring a state taken from a crashed process, call Recover to
// requeue items that were in flight when the snapshot was taken.
func (q *Queue) Restore(st State) error {
	if err := st.Validate(); err != nil {
		return err
	}

	items := make(map[uint64]*WorkItem, len(st.Items))
	live := 0
	for i := range st.Items {
		item := st.Items[i].Clone()
		if !item.Status.terminal() {
			live++
		}
		items[item.ID] = item
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = items
	q.pending = append([]uint64(nil), st.Pending...)
	q.nextID = st.NextID
	q.live = live
	return nil
}

// Recover requeues every in-flight item at the head of the delivery order
// and returns the number of items requeued. In-flight items in a restored
// snapshot were dispatched but never acknowledged; after a restart no
// consumer holds them, so they must be delivered again before newer work.
func (q *Queue) Recover() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	var redeliver []uint64
	for _, item := range q.items {
		if item.Status == StatusInFlight {
			item.Status = StatusPending
			redeliver = append(redeliver, item.ID)
		}
	}
	// Oldest first: in-flight items were dequeued in ID order.
	sort.Slice(redeliver, func(i, j int) bool { return redeliver[i] < redeliver[j] })
	q.pending = append(redeliver, q.pending...)
	return len(redeliver)
}

// Stats summarizes item counts by status for observability gauges.
type Stats struct {
	Pending  int
	InFlight int
	Done     int
	Failed   int
}

// Total returns the number of items ever accepted that are still tracked.
func (s Stats) Total() int {
	return s.Pending + s.InFlight + s.Done + s.Failed
}

// Stats returns current item counts by status.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	var s Stats
	for _, item := range q.items {
		switch item.Status {
		case StatusPending:
			s.Pending++
		case StatusInFlight:
			s.InFlight++
		case StatusDone:
			s.Done++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Len returns the number of pending items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
