package perf

import (
	"errors"
	"fmt"
)

// Defaults applied by Config.Validate for zero fields.
const (
	DefaultMessageCount = 1000
	DefaultConcurrency  = 4
	DefaultPayloadSize  = 64
)

// Config controls one harness run.
type Config struct {
	// MessageCount is the number of work items to drive through the queue.
	MessageCount int `json:"message_count"`

	// Concurrency is the number of consumer workers.
	Concurrency int `json:"concurrency"`

	// PayloadSize is the size in bytes of each synthetic payload.
	PayloadSize int `json:"payload_size"`

	// MaxAttempts is the queue's retry budget. Zero uses the queue default.
	MaxAttempts int `json:"max_attempts"`

	// FailureInjectionRate is the probability, per delivery, that a
	// consumer reports failure instead of acknowledging. Must be in [0, 1).
	FailureInjectionRate float64 `json:"failure_injection_rate"`

	// Seed drives failure injection. Runs with the same Seed and
	// Concurrency of 1 produce identical reports (modulo wall-clock
	// timings).
	Seed int64 `json:"seed"`

	// RatePerSecond paces the producer. Zero means unpaced.
	RatePerSecond float64 `json:"rate_per_second"`
}

// Validate applies defaults and rejects unusable settings.
func (c *Config) Validate() error {
	if c.MessageCount == 0 {
		c.MessageCount = DefaultMessageCount
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.PayloadSize == 0 {
		c.PayloadSize = DefaultPayloadSize
	}

	if c.MessageCount < 0 {
		return errors.New("message count must be positive")
	}
	if c.Concurrency < 0 {
		return errors.New("concurrency must be positive")
	}
	if c.PayloadSize < 0 {
		return errors.New("payload size must be positive")
	}
	if c.FailureInjectionRate < 0 || c.FailureInjectionRate >= 1 {
		return fmt.Errorf("failure injection rate %v outside [0, 1)", c.FailureInjectionRate)
	}
	if c.RatePerSecond < 0 {
		return errors.New("rate must not be negative")
	}
	return nil
}
