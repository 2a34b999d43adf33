package perf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunZeroInjection(t *testing.T) {
	report, err := Run(context.Background(), Config{
		MessageCount: 500,
		Concurrency:  4,
		Seed:         1,
	})
	require.NoError(t, err)

	assert.Equal(t, 500, report.MessagesProcessed)
	assert.Equal(t, 0, report.MessagesFailed)
	assert.Equal(t, 500, report.Attempts, "no retries without injected failures")
	assert.Zero(t, report.ErrorRate)
	assert.Positive(t, report.Throughput)
	assert.Positive(t, report.Elapsed)
}

func TestRunSeededReproducibility(t *testing.T) {
	cfg := Config{
		MessageCount:         300,
		Concurrency:          1,
		FailureInjectionRate: 0.2,
		Seed:                 42,
	}

	first, err := Run(context.Background(), cfg)
	require.NoError(t, err)
	second, err := Run(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, first.MessagesProcessed, second.MessagesProcessed)
	assert.Equal(t, first.MessagesFailed, second.MessagesFailed)
	assert.Equal(t, first.Attempts, second.Attempts)
	assert.Equal(t, first.ErrorRate, second.ErrorRate)
}

func TestRunWithInjectedFailures(t *testing.T) {
	report, err := Run(context.Background(), Config{
		MessageCount:         200,
		Concurrency:          2,
		MaxAttempts:          2,
		FailureInjectionRate: 0.3,
		Seed:                 7,
	})
	require.NoError(t, err)

	// Every message ends terminal: acked or retry-exhausted.
	assert.Equal(t, 200, report.MessagesProcessed+report.MessagesFailed)
	assert.Greater(t, report.Attempts, 200, "injected failures force retries")
	assert.Positive(t, report.ErrorRate)
	assert.Less(t, report.ErrorRate, 1.0)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults applied", Config{}, false},
		{"negative count", Config{MessageCount: -1}, true},
		{"negative concurrency", Config{Concurrency: -2}, true},
		{"rate of one", Config{FailureInjectionRate: 1.0}, true},
		{"negative rate", Config{FailureInjectionRate: -0.1}, true},
		{"negative pace", Config{RatePerSecond: -5}, true},
		{"valid injection", Config{FailureInjectionRate: 0.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, DefaultMessageCount, tt.cfg.MessageCount)
				assert.Equal(t, DefaultConcurrency, tt.cfg.Concurrency)
			}
		})
	}
}

func TestPayloadDeterministic(t *testing.T) {
	a := payload(3, 64)
	b := payload(3, 64)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, payload(4, 64), a)
}
