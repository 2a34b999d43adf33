package perf

import (
	"fmt"
	"time"
)

// Report summarizes one harness run.
type Report struct {
	// MessagesProcessed is the number of items acknowledged.
	MessagesProcessed int `json:"messages_processed"`

	// MessagesFailed is the number of items that exhausted their retry
	// budget.
	MessagesFailed int `json:"messages_failed"`

	// Attempts is the total number of deliveries, including retries.
	Attempts int `json:"attempts"`

	// ErrorRate is failed deliveries divided by total deliveries.
	ErrorRate float64 `json:"error_rate"`

	// AvgLatency is the mean enqueue-to-ack wall time.
	AvgLatency time.Duration `json:"avg_latency_ns"`

	// Throughput is acknowledged items per second of elapsed time.
	Throughput float64 `json:"throughput_per_sec"`

	// Elapsed is the total wall time of the run.
	Elapsed time.Duration `json:"elapsed_ns"`
}

func (r *Report) String() string {
	return fmt.Sprintf(
		"processed=%d failed=%d attempts=%d error_rate=%.4f avg_latency=%s throughput=%.1f/s elapsed=%s",
		r.MessagesProcessed, r.MessagesFailed, r.Attempts,
		r.ErrorRate, r.AvgLatency, r.Throughput, r.Elapsed,
	)
}
