package backup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/genforge-dev/genforge/queue"
)

// Scheduler snapshots a live queue into a store on a cron schedule, so a
// crash between explicit backups loses at most one interval of progress.
type Scheduler struct {
	q      *queue.Queue
	store  Store
	prefix string
	cron   *cron.Cron
}

// NewScheduler creates a scheduler that snapshots q into store. Handles
// are prefix plus a UTC timestamp, so successive snapshots never collide
// with the write-once store contract.
func NewScheduler(q *queue.Queue, store Store, prefix string) *Scheduler {
	if prefix == "" {
		prefix = "auto"
	}
	return &Scheduler{
		q:      q,
		store:  store,
		prefix: prefix,
		cron:   cron.New(),
	}
}

// Start begins taking snapshots on the given cron spec (e.g. "@every 5m").
func (s *Scheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.SnapshotNow(context.Background()); err != nil {
			log.Printf("[backup] scheduled snapshot failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	s.cron.Start()
	return nil
}

// SnapshotNow takes one snapshot immediately and stores it.
func (s *Scheduler) SnapshotNow(ctx context.Context) (*Record, error) {
	handle := fmt.Sprintf("%s-%s", s.prefix, time.Now().UTC().Format("20060102T150405.000000000"))
	rec, err := s.store.Create(ctx, handle, s.q.Snapshot())
	if err != nil {
		return nil, err
	}
	log.Printf("[backup] snapshot %s written (checksum %.8s)", rec.Handle, rec.Checksum)
	return rec, nil
}

// Stop halts the schedule, waiting for any in-progress snapshot.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
