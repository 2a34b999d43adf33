// Package genforge wires the orchestration core together: an agent
// registry, a durable work queue, a backup store, and the pipeline
// dispatcher that drains the queue through the registered agents.
package genforge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/genforge-dev/genforge/agent"
	"github.com/genforge-dev/genforge/backup"
	"github.com/genforge-dev/genforge/pipeline"
	"github.com/genforge-dev/genforge/pkg/config"
	"github.com/genforge-dev/genforge/pkg/observability"
	"github.com/genforge-dev/genforge/queue"
)

// System is the assembled orchestration core.
type System struct {
	Registry     *agent.Registry
	Queue        *queue.Queue
	Store        backup.Store
	Orchestrator *pipeline.Orchestrator
	Dispatcher   *pipeline.Dispatcher
	Scheduler    *backup.Scheduler

	cfg *config.Config
}

// New assembles a System from configuration. Agents are registered by the
// caller on the returned Registry before Run.
func New(cfg *config.Config) (*System, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	observability.InitMetrics()

	registry := agent.NewRegistry()
	q := queue.New(queue.Config{
		Capacity:    cfg.Queue.Capacity,
		MaxAttempts: cfg.Queue.MaxAttempts,
	})

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	var opts []pipeline.Option
	if cfg.Pipeline.Mode == "fanout" {
		opts = append(opts, pipeline.WithFanOut(true))
	}
	if cfg.Pipeline.FailFast {
		opts = append(opts, pipeline.WithFailFast(true))
	}
	if cfg.Pipeline.AgentTimeout > 0 {
		opts = append(opts, pipeline.WithAgentTimeout(time.Duration(cfg.Pipeline.AgentTimeout)))
	}
	orch := pipeline.NewOrchestrator(registry, opts...)
	dispatcher := pipeline.NewDispatcher(q, orch, time.Duration(cfg.Pipeline.PollInterval))

	sys := &System{
		Registry:     registry,
		Queue:        q,
		Store:        store,
		Orchestrator: orch,
		Dispatcher:   dispatcher,
		cfg:          cfg,
	}

	if cfg.Backup.Schedule != "" {
		sys.Scheduler = backup.NewScheduler(q, store, cfg.Backup.Prefix)
	}

	return sys, nil
}

func newStore(cfg *config.Config) (backup.Store, error) {
	switch cfg.Backup.Store {
	case "file":
		return backup.NewFileStore(cfg.Backup.Dir)
	case "memory":
		return backup.NewMemoryStore(), nil
	case "redis":
		return backup.NewRedisStore(backup.RedisConfig{
			Addr:     cfg.Backup.Redis.Addr,
			Password: cfg.Backup.Redis.Password,
			DB:       cfg.Backup.Redis.DB,
			Prefix:   cfg.Backup.Redis.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown backup store %q", cfg.Backup.Store)
	}
}

// Submit enqueues one work item payload.
func (s *System) Submit(payload string) (uint64, error) {
	id, err := s.Queue.Enqueue(payload)
	if err != nil {
		return 0, err
	}
	observability.RecordEnqueue()
	return id, nil
}

// Run starts the periodic snapshot schedule (when configured) and drains
// the queue until ctx is cancelled.
func (s *System) Run(ctx context.Context) error {
	if s.Scheduler != nil {
		if err := s.Scheduler.Start(s.cfg.Backup.Schedule); err != nil {
			return fmt.Errorf("start snapshot schedule: %w", err)
		}
		log.Printf("snapshot schedule %q started", s.cfg.Backup.Schedule)
	}

	err := s.Dispatcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Snapshot captures the queue into the backup store under the given handle.
func (s *System) Snapshot(ctx context.Context, handle string) (*backup.Record, error) {
	return s.Store.Create(ctx, handle, s.Queue.Snapshot())
}

// Restore loads a backup artifact into the queue and requeues items that
// were in flight when the snapshot was taken.
func (s *System) Restore(ctx context.Context, handle string) error {
	st, err := s.Store.Restore(ctx, handle)
	if err != nil {
		return err
	}
	if err := s.Queue.Restore(st); err != nil {
		return err
	}
	if n := s.Queue.Recover(); n > 0 {
		log.Printf("requeued %d in-flight items from backup %q", n, handle)
	}
	return nil
}

// Close stops the scheduler and releases the backup store.
func (s *System) Close() error {
	if s.Scheduler != nil {
		s.Scheduler.Stop()
	}
	return s.Store.Close()
}
