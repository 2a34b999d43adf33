package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoAgent(name string) Agent {
	return &Func{
		AgentName: name,
		Fn: func(ctx context.Context, input *Message) (*Message, error) {
			return NewMessage("echo", map[string]string{"from": name}), nil
		},
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoAgent("search")))

	err := r.Register(echoAgent("search"))
	assert.ErrorIs(t, err, ErrDuplicateAgent)

	// The original registration survives.
	assert.Equal(t, []string{"search"}, r.List())
}

func TestRegisterRejectsEmptyName(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register(echoAgent("")))
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"search", "matcher", "ui-selector", "codegen", "packager"}
	for _, name := range names {
		require.NoError(t, r.Register(echoAgent(name)))
	}
	assert.Equal(t, names, r.List())
	assert.Equal(t, len(names), r.Len())
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoAgent("a")))
	require.NoError(t, r.Register(echoAgent("b")))

	require.NoError(t, r.Unregister("a"))
	assert.Equal(t, []string{"b"}, r.List())

	err := r.Unregister("a")
	assert.ErrorIs(t, err, ErrAgentNotFound)

	_, err = r.Get("a")
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestCall(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoAgent("search")))

	out, err := r.Call(context.Background(), "search", NewMessage("req", nil))
	require.NoError(t, err)

	var payload map[string]string
	require.NoError(t, out.UnmarshalPayload(&payload))
	assert.Equal(t, "search", payload["from"])

	_, err = r.Call(context.Background(), "ghost", NewMessage("req", nil))
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestCallPropagatesAgentError(t *testing.T) {
	r := NewRegistry()
	boom := fmt.Errorf("index unavailable")
	require.NoError(t, r.Register(&Func{
		AgentName: "search",
		Fn: func(ctx context.Context, input *Message) (*Message, error) {
			return nil, boom
		},
	}))

	_, err := r.Call(context.Background(), "search", NewMessage("req", nil))
	assert.ErrorIs(t, err, boom)
}
