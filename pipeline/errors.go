package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrAgentTimeout indicates an agent invocation exceeded its bounded wait.
	ErrAgentTimeout = errors.New("agent execution timed out")

	// ErrAborted indicates a fail-fast run stopped before every agent ran.
	ErrAborted = errors.New("pipeline run aborted")
)

// AgentError wraps an agent's failure with the agent's name.
type AgentError struct {
	Agent string
	Err   error
}

func (e *AgentError) Error() string {
	return fmt.Sprintf("agent %s failed: %v", e.Agent, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}
