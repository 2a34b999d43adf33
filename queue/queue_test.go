package queue

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueAssignsMonotonicIDs(t *testing.T) {
	q := New(Config{})

	for want := uint64(1); want <= 5; want++ {
		id, err := q.Enqueue("payload")
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
}

func TestEnqueueCapacityBound(t *testing.T) {
	q := New(Config{Capacity: 2})

	_, err := q.Enqueue("a")
	require.NoError(t, err)
	_, err = q.Enqueue("b")
	require.NoError(t, err)

	_, err = q.Enqueue("c")
	require.ErrorIs(t, err, ErrQueueFull)

	// Acking frees a slot.
	item, ok := q.Dequeue()
	require.True(t, ok)
	require.NoError(t, q.Ack(item.ID))

	_, err = q.Enqueue("c")
	assert.NoError(t, err)
}

func TestDequeueFIFO(t *testing.T) {
	q := New(Config{})

	a, _ := q.Enqueue("a")
	b, _ := q.Enqueue("b")

	first, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, a, first.ID)
	assert.Equal(t, StatusInFlight, first.Status)

	second, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, b, second.ID)

	_, ok = q.Dequeue()
	assert.False(t, ok, "empty queue must return false, not block")
}

func TestAckTransitions(t *testing.T) {
	q := New(Config{})
	id, _ := q.Enqueue("a")

	t.Run("ack before dequeue is invalid", func(t *testing.T) {
		err := q.Ack(id)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("ack unknown id", func(t *testing.T) {
		err := q.Ack(999)
		assert.ErrorIs(t, err, ErrUnknownItem)
	})

	t.Run("ack in-flight succeeds once", func(t *testing.T) {
		item, ok := q.Dequeue()
		require.True(t, ok)
		require.NoError(t, q.Ack(item.ID))

		// Done is terminal.
		assert.ErrorIs(t, q.Ack(item.ID), ErrInvalidTransition)
		assert.ErrorIs(t, q.Nack(item.ID), ErrInvalidTransition)
	})
}

func TestNackRequeuesAtTail(t *testing.T) {
	// The documented ordering: enqueue 1,2,3; dequeue 1 and ack; dequeue 2
	// and nack. With 3 still pending, the requeued 2 goes to the tail, so
	// the next dequeue returns 3, then 2 with attempt count 1.
	q := New(Config{})
	id1, _ := q.Enqueue("one")
	id2, _ := q.Enqueue("two")
	id3, _ := q.Enqueue("three")

	item, ok := q.Dequeue()
	require.True(t, ok)
	require.Equal(t, id1, item.ID)
	require.NoError(t, q.Ack(id1))

	item, ok = q.Dequeue()
	require.True(t, ok)
	require.Equal(t, id2, item.ID)
	require.NoError(t, q.Nack(id2))

	item, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, id3, item.ID, "item 3 is delivered before the requeued item 2")

	item, ok = q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, id2, item.ID)
	assert.Equal(t, 1, item.Attempts)
}

func TestRetryBudgetExhaustion(t *testing.T) {
	const maxAttempts = 3
	q := New(Config{MaxAttempts: maxAttempts})
	id, _ := q.Enqueue("flaky")

	// The item survives exactly maxAttempts nacks.
	for i := 1; i <= maxAttempts; i++ {
		item, ok := q.Dequeue()
		require.True(t, ok)
		require.Equal(t, id, item.ID)
		require.NoError(t, q.Nack(id))

		assert.Empty(t, q.Failed(), "item must not fail on nack %d", i)
	}

	// The maxAttempts+1'th nack marks it Failed.
	item, ok := q.Dequeue()
	require.True(t, ok)
	require.Equal(t, id, item.ID)
	require.NoError(t, q.Nack(id))

	failed := q.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, id, failed[0].ID)
	assert.Equal(t, maxAttempts+1, failed[0].Attempts)

	_, ok = q.Dequeue()
	assert.False(t, ok, "failed items are not redelivered")
}

func TestConservationOfWorkItems(t *testing.T) {
	// For any sequence of operations, Pending + InFlight + Done + Failed
	// equals the number of successful enqueues.
	q := New(Config{MaxAttempts: 1})

	const n = 50
	for i := 0; i < n; i++ {
		_, err := q.Enqueue("work")
		require.NoError(t, err)
	}

	// Drive a mixed sequence: ack evens, nack odds to failure.
	for {
		item, ok := q.Dequeue()
		if !ok {
			break
		}
		if item.ID%2 == 0 {
			require.NoError(t, q.Ack(item.ID))
		} else {
			require.NoError(t, q.Nack(item.ID))
		}
	}

	stats := q.Stats()
	assert.Equal(t, n, stats.Total())
	assert.Zero(t, stats.Pending)
	assert.Zero(t, stats.InFlight)
}

func TestConcurrentDequeueNeverDoubleDelivers(t *testing.T) {
	q := New(Config{})
	const n = 200
	for i := 0; i < n; i++ {
		_, err := q.Enqueue("work")
		require.NoError(t, err)
	}

	var mu sync.Mutex
	seen := make(map[uint64]int)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				item, ok := q.Dequeue()
				if !ok {
					return
				}
				mu.Lock()
				seen[item.ID]++
				mu.Unlock()
				_ = q.Ack(item.ID)
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	for id, count := range seen {
		assert.Equal(t, 1, count, "item %d delivered %d times", id, count)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	q := New(Config{})
	for i := 0; i < 5; i++ {
		_, err := q.Enqueue("work")
		require.NoError(t, err)
	}
	item, ok := q.Dequeue()
	require.True(t, ok)
	require.NoError(t, q.Ack(item.ID))
	_, ok = q.Dequeue()
	require.True(t, ok) // leave one in flight

	st := q.Snapshot()
	require.NoError(t, st.Validate())

	restored := New(Config{})
	require.NoError(t, restored.Restore(st))
	assert.True(t, restored.Snapshot().Equal(st), "restore must reproduce the snapshot exactly")

	// New IDs continue beyond the cursor.
	id, err := restored.Enqueue("new")
	require.NoError(t, err)
	assert.Equal(t, st.NextID, id)
}

func TestSnapshotIsIsolatedFromLiveQueue(t *testing.T) {
	q := New(Config{})
	_, err := q.Enqueue("a")
	require.NoError(t, err)

	st := q.Snapshot()

	_, err = q.Enqueue("b")
	require.NoError(t, err)
	item, ok := q.Dequeue()
	require.True(t, ok)
	require.NoError(t, q.Ack(item.ID))

	assert.Len(t, st.Items, 1)
	assert.Equal(t, StatusPending, st.Items[0].Status)
}

func TestRecoverRequeuesInFlightAtHead(t *testing.T) {
	q := New(Config{})
	id1, _ := q.Enqueue("a")
	id2, _ := q.Enqueue("b")
	_, ok := q.Dequeue() // id1 in flight
	require.True(t, ok)

	st := q.Snapshot()

	fresh := New(Config{})
	require.NoError(t, fresh.Restore(st))
	assert.Equal(t, 1, fresh.Recover())

	item, ok := fresh.Dequeue()
	require.True(t, ok)
	assert.Equal(t, id1, item.ID, "recovered item is delivered before newer pending work")

	item, ok = fresh.Dequeue()
	require.True(t, ok)
	assert.Equal(t, id2, item.ID)
}

func TestRestoreRejectsInvalidState(t *testing.T) {
	valid := func() State {
		return State{
			Items: []WorkItem{
				{ID: 1, Status: StatusPending},
				{ID: 2, Status: StatusInFlight},
			},
			Pending: []uint64{1},
			NextID:  3,
		}
	}

	tests := []struct {
		name   string
		mutate func(*State)
	}{
		{"cursor below item IDs", func(s *State) { s.NextID = 2 }},
		{"zero cursor", func(s *State) { s.NextID = 0 }},
		{"duplicate item IDs", func(s *State) { s.Items[1].ID = 1 }},
		{"unknown status", func(s *State) { s.Items[0].Status = "bogus" }},
		{"negative attempts", func(s *State) { s.Items[0].Attempts = -1 }},
		{"pending order references in-flight item", func(s *State) { s.Pending = []uint64{1, 2} }},
		{"pending order misses a pending item", func(s *State) { s.Pending = nil }},
		{"duplicate pending entries", func(s *State) { s.Pending = []uint64{1, 1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := valid()
			require.NoError(t, st.Validate())

			tt.mutate(&st)
			q := New(Config{})
			before, err := q.Enqueue("live")
			require.NoError(t, err)

			err = q.Restore(st)
			require.True(t, errors.Is(err, ErrInvalidState), "got %v", err)

			// Live state untouched on failure.
			item, ok := q.Dequeue()
			require.True(t, ok)
			assert.Equal(t, before, item.ID)
		})
	}
}

func TestDequeueReturnsCopy(t *testing.T) {
	q := New(Config{})
	_, err := q.Enqueue("a")
	require.NoError(t, err)

	item, ok := q.Dequeue()
	require.True(t, ok)
	item.Payload = "mutated"
	item.Status = StatusDone

	st := q.Snapshot()
	assert.Equal(t, "a", st.Items[0].Payload)
	assert.Equal(t, StatusInFlight, st.Items[0].Status)
}
