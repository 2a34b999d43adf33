package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDuplicateAgent is returned when registering a name that is
	// already taken. Duplicates are rejected, never overwritten.
	ErrDuplicateAgent = errors.New("agent already registered")

	// ErrAgentNotFound is returned when looking up an unregistered name.
	ErrAgentNotFound = errors.New("agent not found")
)

// Registry maps agent names to executable handles. It preserves
// registration order so pipeline execution is deterministic. There is no
// process-wide registry: construct one and pass it to the orchestrator.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	order  []string // registration order for deterministic execution
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]Agent),
		order:  make([]string, 0),
	}
}

// Register adds an agent. Returns ErrDuplicateAgent if the name is taken.
func (r *Registry) Register(a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if name == "" {
		return errors.New("agent name cannot be empty")
	}
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAgent, name)
	}

	r.agents[name] = a
	r.order = append(r.order, name)
	return nil
}

// Unregister removes an agent by name.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[name]; !exists {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}

	delete(r.agents, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get retrieves a registered agent by name.
func (r *Registry) Get(name string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, exists := r.agents[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return a, nil
}

// List returns all registered agent names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Call invokes an agent by name and waits for its response.
func (r *Registry) Call(ctx context.Context, name string, input *Message) (*Message, error) {
	a, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return a.Execute(ctx, input)
}
