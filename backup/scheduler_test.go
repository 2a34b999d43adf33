package backup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genforge-dev/genforge/queue"
)

func TestSchedulerSnapshotNow(t *testing.T) {
	q := queue.New(queue.Config{})
	_, err := q.Enqueue("work")
	require.NoError(t, err)

	store := NewMemoryStore()
	sched := NewScheduler(q, store, "test")

	rec, err := sched.SnapshotNow(context.Background())
	require.NoError(t, err)
	assert.Contains(t, rec.Handle, "test-")

	st, err := store.Restore(context.Background(), rec.Handle)
	require.NoError(t, err)
	assert.Len(t, st.Items, 1)
}

func TestSchedulerHandlesNeverCollide(t *testing.T) {
	q := queue.New(queue.Config{})
	store := NewMemoryStore()
	sched := NewScheduler(q, store, "auto")

	ctx := context.Background()
	first, err := sched.SnapshotNow(ctx)
	require.NoError(t, err)
	second, err := sched.SnapshotNow(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.Handle, second.Handle)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	sched := NewScheduler(queue.New(queue.Config{}), NewMemoryStore(), "auto")
	err := sched.Start("not a cron spec")
	assert.Error(t, err)
}

func TestSchedulerPeriodicSnapshots(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-dependent")
	}

	q := queue.New(queue.Config{})
	store := NewMemoryStore()
	sched := NewScheduler(q, store, "auto")

	require.NoError(t, sched.Start("@every 100ms"))
	time.Sleep(350 * time.Millisecond)
	sched.Stop()

	records, err := store.List(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, records)
}
