package backup

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/genforge-dev/genforge/queue"
)

// MemoryStore implements Store with in-process storage. Useful for tests
// and for ephemeral deployments that only need restart-free snapshots.
type MemoryStore struct {
	mu        sync.RWMutex
	artifacts map[string][]byte
	records   map[string]*Record
	closed    bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		artifacts: make(map[string][]byte),
		records:   make(map[string]*Record),
	}
}

// Create stores the encoded state under the handle.
func (s *MemoryStore) Create(ctx context.Context, handle string, st queue.State) (*Record, error) {
	if handle == "" {
		handle = uuid.New().String()
	}
	if err := validateHandle(handle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	data, checksum, err := encodeState(st)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	if _, exists := s.artifacts[handle]; exists {
		return nil, fmt.Errorf("%w: handle %q already exists", ErrWriteFailed, handle)
	}

	rec := &Record{
		Handle:    handle,
		CreatedAt: time.Now().UTC(),
		Version:   formatVersion,
		Checksum:  checksum,
	}
	s.artifacts[handle] = data
	s.records[handle] = rec
	return rec, nil
}

// Restore decodes the artifact stored under handle.
func (s *MemoryStore) Restore(ctx context.Context, handle string) (queue.State, error) {
	if err := ctx.Err(); err != nil {
		return queue.State{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return queue.State{}, ErrStoreClosed
	}

	data, ok := s.artifacts[handle]
	if !ok {
		return queue.State{}, fmt.Errorf("%w: %s", ErrNotFound, handle)
	}
	return decodeState(data)
}

// List returns all records, newest first.
func (s *MemoryStore) List(ctx context.Context) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}

	records := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		c := *rec
		records = append(records, &c)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	return records, nil
}

// Delete removes an artifact. Unknown handles are ignored.
func (s *MemoryStore) Delete(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	delete(s.artifacts, handle)
	delete(s.records, handle)
	return nil
}

// Close marks the store closed; further operations fail with ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// corrupt overwrites a stored artifact, for tests exercising ErrCorrupt.
func (s *MemoryStore) corrupt(handle string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[handle] = data
}
