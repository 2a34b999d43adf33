package backup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genforge-dev/genforge/queue"
)

func sampleState(t *testing.T) queue.State {
	t.Helper()

	q := queue.New(queue.Config{})
	for _, payload := range []string{"alpha", "beta", "gamma"} {
		_, err := q.Enqueue(payload)
		require.NoError(t, err)
	}
	item, ok := q.Dequeue()
	require.True(t, ok)
	require.NoError(t, q.Ack(item.ID))
	_, ok = q.Dequeue()
	require.True(t, ok) // leave one in flight
	return q.Snapshot()
}

func TestEncodingIsDeterministic(t *testing.T) {
	st := sampleState(t)

	first, sum1, err := encodeState(st)
	require.NoError(t, err)
	second, sum2, err := encodeState(st)
	require.NoError(t, err)

	assert.Equal(t, first, second, "same state must produce byte-identical artifacts")
	assert.Equal(t, sum1, sum2)
}

func TestDecodeRejectsTamperedArtifact(t *testing.T) {
	st := sampleState(t)
	data, _, err := encodeState(st)
	require.NoError(t, err)

	t.Run("flipped byte", func(t *testing.T) {
		tampered := append([]byte(nil), data...)
		// Flip a byte inside the state body, past the envelope header.
		tampered[len(tampered)/2] ^= 0x01
		_, err := decodeState(tampered)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := decodeState([]byte("garbage"))
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("unknown version", func(t *testing.T) {
		_, err := decodeState([]byte(`{"version":99,"checksum":"","state":{}}`))
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()
	ctx := context.Background()

	st := sampleState(t)
	rec, err := store.Create(ctx, "trip", st)
	require.NoError(t, err)
	assert.Equal(t, "trip", rec.Handle)
	assert.NotEmpty(t, rec.Checksum)

	restored, err := store.Restore(ctx, "trip")
	require.NoError(t, err)
	assert.True(t, restored.Equal(st.Normalize()))

	// Idempotent restore: same handle, equal state both times.
	again, err := store.Restore(ctx, "trip")
	require.NoError(t, err)
	assert.True(t, restored.Equal(again))
}

func TestMemoryStoreWriteOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, "only", sampleState(t))
	require.NoError(t, err)

	_, err = store.Create(ctx, "only", sampleState(t))
	assert.ErrorIs(t, err, ErrWriteFailed)
}

func TestMemoryStoreUnknownHandle(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Restore(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreCorruptArtifact(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Create(ctx, "victim", sampleState(t))
	require.NoError(t, err)

	store.corrupt("victim", []byte(`{"version":1,"checksum":"deadbeef","state":{}}`))
	_, err = store.Restore(ctx, "victim")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestMemoryStoreGeneratedHandle(t *testing.T) {
	store := NewMemoryStore()
	rec, err := store.Create(context.Background(), "", sampleState(t))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Handle)
}

func TestMemoryStoreClosed(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	_, err := store.Create(context.Background(), "x", sampleState(t))
	assert.ErrorIs(t, err, ErrStoreClosed)
	_, err = store.List(context.Background())
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestRestoredStateDrivesAFreshQueue(t *testing.T) {
	// End to end: snapshot a queue mid-run, back it up, restore into a new
	// queue, and finish the work there.
	ctx := context.Background()
	store := NewMemoryStore()

	q := queue.New(queue.Config{})
	_, err := q.Enqueue("one")
	require.NoError(t, err)
	_, err = q.Enqueue("two")
	require.NoError(t, err)
	item, ok := q.Dequeue()
	require.True(t, ok)

	_, err = store.Create(ctx, "mid-run", q.Snapshot())
	require.NoError(t, err)

	st, err := store.Restore(ctx, "mid-run")
	require.NoError(t, err)

	fresh := queue.New(queue.Config{})
	require.NoError(t, fresh.Restore(st))
	assert.Equal(t, 1, fresh.Recover())

	got, ok := fresh.Dequeue()
	require.True(t, ok)
	assert.Equal(t, item.ID, got.ID, "the in-flight item is redelivered first")
}

func TestListOrdersNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	st := sampleState(t)
	for _, handle := range []string{"first", "second"} {
		_, err := store.Create(ctx, handle, st)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "second", records[0].Handle)
	assert.Equal(t, "first", records[1].Handle)
}
