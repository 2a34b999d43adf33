package agent

import "context"

// Agent is the capability contract every registered agent implements.
// Concrete bodies (search, matching, code generation, packaging) are
// external collaborators; the orchestration core only requires a name and
// an execute entry point.
type Agent interface {
	// Name returns the unique identifier for this agent instance.
	// Agent names must be unique within a Registry.
	Name() string

	// Execute processes an input message and returns a response.
	// Implementations should honor ctx cancellation and be safe for
	// concurrent invocation.
	Execute(ctx context.Context, input *Message) (*Message, error)
}

// Func adapts a plain function to the Agent interface.
type Func struct {
	AgentName string
	Fn        func(ctx context.Context, input *Message) (*Message, error)
}

// Name returns the adapted agent's name.
func (f *Func) Name() string { return f.AgentName }

// Execute invokes the adapted function.
func (f *Func) Execute(ctx context.Context, input *Message) (*Message, error) {
	return f.Fn(ctx, input)
}
