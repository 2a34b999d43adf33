// Package perf measures queue throughput and retry behavior under
// configurable concurrency and failure injection. Runs are seeded so a
// given configuration reproduces the same delivery outcomes.
package perf

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/genforge-dev/genforge/queue"
)

// Run drives cfg.MessageCount items through a fresh queue and reports the
// results. Failure injection draws from per-consumer rand sources seeded
// from cfg.Seed, so delivery outcomes are reproducible for a given seed.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid harness config: %w", err)
	}

	q := queue.New(queue.Config{MaxAttempts: cfg.MaxAttempts})
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = queue.DefaultMaxAttempts
	}

	var (
		terminal     atomic.Int64 // acked + exhausted items
		acked        atomic.Int64
		failed       atomic.Int64
		attempts     atomic.Int64
		nacks        atomic.Int64
		latencyNanos atomic.Int64
	)

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	// Producer.
	g.Go(func() error {
		for i := 0; i < cfg.MessageCount; i++ {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					return err
				}
			}
			if _, err := q.Enqueue(payload(i, cfg.PayloadSize)); err != nil {
				return fmt.Errorf("enqueue message %d: %w", i, err)
			}
		}
		return nil
	})

	// Consumers, each with its own seeded source.
	for w := 0; w < cfg.Concurrency; w++ {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(w)))
		g.Go(func() error {
			for terminal.Load() < int64(cfg.MessageCount) {
				if err := gctx.Err(); err != nil {
					return err
				}

				item, ok := q.Dequeue()
				if !ok {
					time.Sleep(time.Millisecond)
					continue
				}
				attempts.Add(1)

				if rng.Float64() < cfg.FailureInjectionRate {
					nacks.Add(1)
					if err := q.Nack(item.ID); err != nil {
						return fmt.Errorf("nack item %d: %w", item.ID, err)
					}
					// The nack that spends the budget is terminal.
					if item.Attempts+1 > maxAttempts {
						failed.Add(1)
						terminal.Add(1)
					}
					continue
				}

				if err := q.Ack(item.ID); err != nil {
					return fmt.Errorf("ack item %d: %w", item.ID, err)
				}
				latencyNanos.Add(time.Since(item.EnqueuedAt).Nanoseconds())
				acked.Add(1)
				terminal.Add(1)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	report := &Report{
		MessagesProcessed: int(acked.Load()),
		MessagesFailed:    int(failed.Load()),
		Attempts:          int(attempts.Load()),
		Elapsed:           elapsed,
	}
	if report.Attempts > 0 {
		report.ErrorRate = float64(nacks.Load()) / float64(report.Attempts)
	}
	if report.MessagesProcessed > 0 {
		report.AvgLatency = time.Duration(latencyNanos.Load() / acked.Load())
	}
	if elapsed > 0 {
		report.Throughput = float64(report.MessagesProcessed) / elapsed.Seconds()
	}
	return report, nil
}

// payload builds a deterministic synthetic payload of the given size.
func payload(seq, size int) string {
	prefix := fmt.Sprintf(`{"seq":%d,"data":"`, seq)
	suffix := `"}`
	fill := size - len(prefix) - len(suffix)
	if fill < 0 {
		fill = 0
	}
	return prefix + strings.Repeat("x", fill) + suffix
}
