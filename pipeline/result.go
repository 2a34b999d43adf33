package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/genforge-dev/genforge/agent"
)

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	StatusCreated         RunStatus = "created"
	StatusRunning         RunStatus = "running"
	StatusCompleted       RunStatus = "completed"
	StatusPartiallyFailed RunStatus = "partially_failed"
	StatusAborted         RunStatus = "aborted"
)

// terminal reports whether the status is final.
func (s RunStatus) terminal() bool {
	return s == StatusCompleted || s == StatusPartiallyFailed || s == StatusAborted
}

// Outcome is one agent's recorded result within a run. Exactly one of
// Output and Err is meaningful.
type Outcome struct {
	Agent    string
	Output   *agent.Message
	Err      error
	Duration time.Duration
}

// Result collects the per-agent outcomes of one pipeline run. Once the run
// reaches a terminal status the result no longer changes; accessors return
// copies so callers cannot mutate recorded outcomes.
type Result struct {
	mu         sync.RWMutex
	id         string
	status     RunStatus
	outcomes   []Outcome
	abortedBy  string
	startedAt  time.Time
	finishedAt time.Time
}

func newResult() *Result {
	return &Result{
		id:     uuid.New().String(),
		status: StatusCreated,
	}
}

// ID returns the run's unique identifier.
func (r *Result) ID() string {
	return r.id
}

// Status returns the run's current status.
func (r *Result) Status() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Outcomes returns a copy of the recorded outcomes in execution order.
func (r *Result) Outcomes() []Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Failed returns the outcomes that carry an error.
func (r *Result) Failed() []Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var failed []Outcome
	for _, o := range r.outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// AbortedBy returns the name of the agent whose failure aborted a fail-fast
// run, or "" if the run was not aborted.
func (r *Result) AbortedBy() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.abortedBy
}

// Duration returns the wall time of the run, or 0 if it has not finished.
func (r *Result) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.finishedAt.IsZero() {
		return 0
	}
	return r.finishedAt.Sub(r.startedAt)
}

func (r *Result) markRunning() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.terminal() {
		return
	}
	r.status = StatusRunning
	r.startedAt = time.Now()
}

func (r *Result) record(o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.terminal() {
		return
	}
	r.outcomes = append(r.outcomes, o)
}

func (r *Result) finish(status RunStatus, abortedBy string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.terminal() {
		return
	}
	r.status = status
	r.abortedBy = abortedBy
	r.finishedAt = time.Now()
}
