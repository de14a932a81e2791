package protocol

import (
	"context"
	"errors"
	"testing"

	"github.com/guseggert/terminalwire/entitlement"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		msg   Message
		valid bool
	}{
		{name: "initialization", msg: Initialization(entitlement.Serialized{Authority: "example.com"}, Program{Name: "x"}), valid: true},
		{name: "initialization without version", msg: Message{Event: EventInitialization, Entitlement: &entitlement.Serialized{}, Program: &Program{}}},
		{name: "command", msg: Command("file", "read", Parameters{"path": "/tmp/x"}), valid: true},
		{name: "notify", msg: Notify("stdout", "print", Parameters{"data": "hi"}), valid: true},
		{name: "command without command", msg: Command("file", "", nil)},
		{name: "resource without name", msg: Command("", "read", nil)},
		{name: "unknown action", msg: Message{Event: EventResource, Name: "file", Action: "poke", Command: "read"}},
		{name: "success", msg: Success("file", "data"), valid: true},
		{name: "failure", msg: Failure("file", "nope", "read", nil), valid: true},
		{name: "unknown status", msg: Message{Event: EventResource, Name: "file", Status: "maybe"}},
		{name: "exit", msg: Exit(0), valid: true},
		{name: "exit 255", msg: Exit(255), valid: true},
		{name: "exit out of range", msg: Exit(256)},
		{name: "exit negative", msg: Exit(-1)},
		{name: "exit without status", msg: Message{Event: EventExit}},
		{name: "unknown event", msg: Message{Event: "hello"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.msg.Validate()
			if c.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrProtocolViolation))
			var v *ViolationError
			assert.True(t, errors.As(err, &v))
		})
	}
}

func TestExitStatus(t *testing.T) {
	for _, status := range []any{3, int64(3), uint64(3), float64(3)} {
		n, err := Message{Event: EventExit, Status: status}.ExitStatus()
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	}
	_, err := Message{Event: EventExit, Status: 2.5}.ExitStatus()
	assert.Error(t, err)
	_, err = Message{Event: EventExit, Status: "0"}.ExitStatus()
	assert.Error(t, err)
}

func TestIsResponse(t *testing.T) {
	assert.True(t, Success("file", nil).IsResponse())
	assert.True(t, Failure("file", "x", "read", nil).IsResponse())
	assert.False(t, Command("file", "read", nil).IsResponse())
	assert.False(t, Exit(0).IsResponse())
}

func TestParameters(t *testing.T) {
	p := Parameters{
		"path":  "/tmp/x",
		"mode":  uint64(0o644),
		"float": float64(420),
		"half":  1.5,
		"num":   7,
		"nil":   nil,
	}

	s, err := p.String("path")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x", s)

	_, err = p.String("missing")
	assert.Error(t, err)
	_, err = p.String("num")
	assert.Error(t, err)

	_, ok, err := p.OptionalString("nil")
	require.NoError(t, err)
	assert.False(t, ok)

	for key, want := range map[string]int64{"mode": 0o644, "float": 420, "num": 7} {
		n, ok, err := p.Integer(key)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want, n, key)
	}
	_, _, err = p.Integer("half")
	assert.Error(t, err)
	_, ok, err = p.Integer("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", RequestID(ctx))
	assert.Equal(t, "abc", RequestID(WithRequestID(ctx, "abc")))
	assert.Equal(t, "", RequestID(WithRequestID(ctx, "")))
}
