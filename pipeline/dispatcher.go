package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/genforge-dev/genforge/agent"
	"github.com/genforge-dev/genforge/queue"
	metrics "github.com/genforge-dev/genforge/pkg/observability"
)

// DefaultPollInterval is how often an idle Dispatcher checks the queue.
const DefaultPollInterval = 100 * time.Millisecond

// Dispatcher is the queue's primary client: it drains work items and runs
// the pipeline on each item's payload. A Completed run acknowledges the
// item; anything else negatively acknowledges it for redelivery.
type Dispatcher struct {
	q        *queue.Queue
	orch     *Orchestrator
	interval time.Duration
}

// NewDispatcher binds an orchestrator to a queue. A non-positive interval
// falls back to DefaultPollInterval.
func NewDispatcher(q *queue.Queue, orch *Orchestrator, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Dispatcher{q: q, orch: orch, interval: interval}
}

// ProcessOne dequeues and executes a single work item. It reports whether
// an item was available. Pipeline failures are settled via Nack and are not
// returned as errors; only queue bookkeeping failures are.
func (d *Dispatcher) ProcessOne(ctx context.Context) (bool, error) {
	item, ok := d.q.Dequeue()
	if !ok {
		return false, nil
	}

	input := agent.NewRawMessage("work_item", item.Payload)
	res, err := d.orch.Execute(ctx, input)

	if err == nil && res.Status() == StatusCompleted {
		if ackErr := d.q.Ack(item.ID); ackErr != nil {
			return true, fmt.Errorf("ack item %d: %w", item.ID, ackErr)
		}
		metrics.RecordAck()
		d.updateDepthGauges()
		return true, nil
	}

	log.Printf("pipeline run %s for item %d finished %s, requeueing", res.ID(), item.ID, res.Status())
	if nackErr := d.q.Nack(item.ID); nackErr != nil {
		return true, fmt.Errorf("nack item %d: %w", item.ID, nackErr)
	}
	metrics.RecordNack()
	d.updateDepthGauges()
	return true, nil
}

func (d *Dispatcher) updateDepthGauges() {
	stats := d.q.Stats()
	metrics.SetQueueDepth(string(queue.StatusPending), stats.Pending)
	metrics.SetQueueDepth(string(queue.StatusInFlight), stats.InFlight)
	metrics.SetQueueDepth(string(queue.StatusDone), stats.Done)
	metrics.SetQueueDepth(string(queue.StatusFailed), stats.Failed)
}

// Run drains the queue until ctx is cancelled, sleeping for the poll
// interval when the queue is empty.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		// Drain everything currently pending before sleeping.
		for {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			processed, err := d.ProcessOne(ctx)
			if err != nil {
				log.Printf("dispatcher: %v", err)
			}
			if !processed {
				break
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
