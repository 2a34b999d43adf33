// Package pipeline drives registered agents over queued work. The
// Orchestrator executes every registered agent against one input, either
// sequentially in registration order or concurrently (fan-out-then-join),
// with per-agent failure isolation. The Dispatcher binds an Orchestrator to
// a durable queue.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/genforge-dev/genforge/agent"
	"github.com/genforge-dev/genforge/internal/observability"
	metrics "github.com/genforge-dev/genforge/pkg/observability"
)

// Orchestrator executes every agent in a registry against a single input.
type Orchestrator struct {
	registry     *agent.Registry
	fanOut       bool
	failFast     bool
	agentTimeout time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithFanOut enables concurrent fan-out-then-join execution. The default
// is sequential execution in registration order.
func WithFanOut(enabled bool) Option {
	return func(o *Orchestrator) {
		o.fanOut = enabled
	}
}

// WithFailFast makes the first agent failure abort the remaining
// invocations.
func WithFailFast(enabled bool) Option {
	return func(o *Orchestrator) {
		o.failFast = enabled
	}
}

// WithAgentTimeout bounds each agent invocation. Zero means no per-agent
// bound beyond the caller's context.
func WithAgentTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.agentTimeout = d
	}
}

// NewOrchestrator creates an Orchestrator over the given registry.
func NewOrchestrator(registry *agent.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{registry: registry}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Execute runs every registered agent against input and collects per-agent
// outcomes. Callers always receive a Result; the returned error is non-nil
// only when a fail-fast run aborted, and it wraps both ErrAborted and the
// offending agent's error.
func (o *Orchestrator) Execute(ctx context.Context, input *agent.Message) (*Result, error) {
	names := o.registry.List()

	mode := "sequential"
	if o.fanOut {
		mode = "fanout"
	}
	ctx, span := observability.StartSpan(ctx, "pipeline.execute",
		trace.WithAttributes(
			attribute.String("pipeline.mode", mode),
			attribute.Int("pipeline.agent_count", len(names)),
			attribute.Bool("pipeline.fail_fast", o.failFast),
		),
	)
	defer span.End()

	res := newResult()
	res.markRunning()

	if len(names) == 0 {
		res.finish(StatusCompleted, "")
		metrics.RecordPipelineRun(string(StatusCompleted))
		return res, nil
	}

	var runErr error
	if o.fanOut {
		runErr = o.executeFanOut(ctx, names, input, res)
	} else {
		runErr = o.executeSequential(ctx, names, input, res)
	}

	if runErr != nil {
		span.RecordError(runErr)
	}
	span.SetAttributes(
		attribute.String("pipeline.status", string(res.Status())),
		attribute.Int("pipeline.failed_count", len(res.Failed())),
	)
	metrics.RecordPipelineRun(string(res.Status()))
	return res, runErr
}

func (o *Orchestrator) executeSequential(ctx context.Context, names []string, input *agent.Message, res *Result) error {
	for _, name := range names {
		outcome := o.invoke(ctx, name, input)
		res.record(outcome)

		if outcome.Err != nil && o.failFast {
			res.finish(StatusAborted, name)
			return fmt.Errorf("%w: %w", ErrAborted, outcome.Err)
		}
	}

	if len(res.Failed()) > 0 {
		res.finish(StatusPartiallyFailed, "")
	} else {
		res.finish(StatusCompleted, "")
	}
	return nil
}

func (o *Orchestrator) executeFanOut(ctx context.Context, names []string, input *agent.Message, res *Result) error {
	// Slots keep outcomes in registration order regardless of completion
	// order. Slots left nil belong to invocations cancelled by a
	// fail-fast abort and are excluded from the result.
	slots := make([]*Outcome, len(names))

	if o.failFast {
		g, gctx := errgroup.WithContext(ctx)
		for i, name := range names {
			g.Go(func() error {
				outcome := o.invoke(gctx, name, input)
				if outcome.Err != nil {
					if errors.Is(outcome.Err, context.Canceled) && gctx.Err() != nil {
						// Cancelled by a sibling's failure, not a
						// failure of this agent.
						return nil
					}
					slots[i] = &outcome
					return outcome.Err
				}
				slots[i] = &outcome
				return nil
			})
		}
		err := g.Wait()

		for _, s := range slots {
			if s != nil {
				res.record(*s)
			}
		}
		if err != nil {
			abortedBy := ""
			var agentErr *AgentError
			if errors.As(err, &agentErr) {
				abortedBy = agentErr.Agent
			}
			res.finish(StatusAborted, abortedBy)
			return fmt.Errorf("%w: %w", ErrAborted, err)
		}
		res.finish(StatusCompleted, "")
		return nil
	}

	g := new(errgroup.Group)
	for i, name := range names {
		g.Go(func() error {
			outcome := o.invoke(ctx, name, input)
			slots[i] = &outcome
			return nil
		})
	}
	_ = g.Wait()

	failed := false
	for _, s := range slots {
		res.record(*s)
		if s.Err != nil {
			failed = true
		}
	}
	if failed {
		res.finish(StatusPartiallyFailed, "")
	} else {
		res.finish(StatusCompleted, "")
	}
	return nil
}

// invoke runs one agent with the configured bounded wait. Every failure,
// including timeout, is captured in the outcome rather than propagated.
func (o *Orchestrator) invoke(ctx context.Context, name string, input *agent.Message) Outcome {
	a, err := o.registry.Get(name)
	if err != nil {
		return Outcome{Agent: name, Err: &AgentError{Agent: name, Err: err}}
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if o.agentTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, o.agentTimeout)
		defer cancel()
	}

	start := time.Now()
	output, err := a.Execute(callCtx, input)
	duration := time.Since(start)

	metrics.RecordAgentExecution(name, duration)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && callCtx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("%w after %s: %w", ErrAgentTimeout, o.agentTimeout, err)
		}
		return Outcome{Agent: name, Err: &AgentError{Agent: name, Err: err}, Duration: duration}
	}
	return Outcome{Agent: name, Output: output, Duration: duration}
}
