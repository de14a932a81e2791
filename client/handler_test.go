package client

import (
	"bytes"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/guseggert/terminalwire/client/resource"
	"github.com/guseggert/terminalwire/protocol"
	"github.com/guseggert/terminalwire/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	status int
	err    error
}

// startHandler runs a Handler for example.com on one end of a pipe and returns the other end.
func startHandler(t *testing.T, opts ...Option) (*Handler, *protocol.Adapter, <-chan result) {
	t.Helper()
	a, b := net.Pipe()
	clientConn := protocol.NewAdapter(transport.NewSocket(a))
	serverConn := protocol.NewAdapter(transport.NewSocket(b))
	t.Cleanup(func() {
		clientConn.Close()
		serverConn.Close()
	})

	opts = append([]Option{WithRoot(t.TempDir()), WithStdio(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})}, opts...)
	h, err := New(clientConn, "example.com", opts...)
	require.NoError(t, err)

	done := make(chan result, 1)
	go func() {
		status, err := h.Run(context.Background())
		done <- result{status, err}
	}()
	return h, serverConn, done
}

func wait(t *testing.T, done <-chan result) result {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(10 * time.Second):
		t.Fatal("handler did not return")
		return result{}
	}
}

func TestHandshake(t *testing.T) {
	h, server, done := startHandler(t, WithProgram("demo", []string{"hello", "world"}))
	ctx := context.Background()

	msg, err := server.Read(ctx)
	require.NoError(t, err)
	require.NoError(t, msg.Validate())
	assert.Equal(t, protocol.EventInitialization, msg.Event)
	assert.Equal(t, protocol.Version, msg.Protocol.Version)
	assert.Equal(t, "example.com", msg.Entitlement.Authority)
	assert.Equal(t, h.Policy().Serialize(), *msg.Entitlement)
	assert.Equal(t, "demo", msg.Program.Name)
	assert.Equal(t, []string{"hello", "world"}, msg.Program.Arguments)

	require.NoError(t, server.Write(ctx, protocol.Exit(3)))
	r := wait(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, 3, r.status)
}

func TestNotificationsAreAppliedInOrderBeforeExit(t *testing.T) {
	var stdout bytes.Buffer
	_, server, done := startHandler(t, WithStdio(strings.NewReader(""), &stdout, &bytes.Buffer{}))
	ctx := context.Background()
	_, err := server.Read(ctx)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.NoError(t, server.Write(ctx, protocol.Notify("stdout", "print", protocol.Parameters{"data": string(rune('a' + i%26))})))
	}
	require.NoError(t, server.Write(ctx, protocol.Exit(0)))

	r := wait(t, done)
	require.NoError(t, r.err)
	assert.Equal(t, 0, r.status)
	assert.Equal(t, strings.Repeat("abcdefghijklmnopqrstuvwxyz", 4)[:100], stdout.String())
}

func TestCommandsRunConcurrently(t *testing.T) {
	h, server, done := startHandler(t)
	ctx := context.Background()

	release := make(chan struct{})
	slow := resource.NewBase("slow", &lockedWriter{h: h}, nil,
		func(string, protocol.Parameters) (bool, error) { return true, nil },
		map[string]resource.Handler{
			"wait": func(ctx context.Context, _ protocol.Parameters) (any, error) {
				<-release
				return "slow", nil
			},
		})
	require.NoError(t, h.Resources().Add(slow))

	_, err := server.Read(ctx)
	require.NoError(t, err)

	first := protocol.Command("slow", "wait", nil)
	first.ID = "first"
	second := protocol.Command("environment_variable", "read", protocol.Parameters{"name": "TERMINALWIRE_HOME"})
	second.ID = "second"
	require.NoError(t, server.Write(ctx, first))
	require.NoError(t, server.Write(ctx, second))

	msg, err := server.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", msg.ID)
	assert.Equal(t, protocol.StatusSuccess, msg.ResponseStatus())
	assert.Equal(t, h.Policy().RootPath(), msg.Response)

	close(release)
	msg, err = server.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", msg.ID)
	assert.Equal(t, "slow", msg.Response)

	require.NoError(t, server.Write(ctx, protocol.Exit(0)))
	assert.NoError(t, wait(t, done).err)
}

func TestDeniedCommandKeepsConnectionOpen(t *testing.T) {
	_, server, done := startHandler(t)
	ctx := context.Background()
	_, err := server.Read(ctx)
	require.NoError(t, err)

	cmd := protocol.Command("file", "write", protocol.Parameters{"path": "/etc/passwd", "content": "x"})
	cmd.ID = "1"
	require.NoError(t, server.Write(ctx, cmd))

	msg, err := server.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", msg.ID)
	assert.Equal(t, protocol.StatusFailure, msg.ResponseStatus())
	assert.Equal(t, "Client denied write", msg.Response)
	assert.Equal(t, "write", msg.Command)

	require.NoError(t, server.Write(ctx, protocol.Exit(0)))
	assert.NoError(t, wait(t, done).err)
}

func TestUnknownResourceIsFatal(t *testing.T) {
	_, server, done := startHandler(t)
	ctx := context.Background()
	_, err := server.Read(ctx)
	require.NoError(t, err)

	require.NoError(t, server.Write(ctx, protocol.Command("teleporter", "go", nil)))
	r := wait(t, done)
	assert.ErrorIs(t, r.err, protocol.ErrProtocolViolation)
	assert.Equal(t, 1, r.status)
}

func TestUnexpectedMessageIsFatal(t *testing.T) {
	_, server, done := startHandler(t)
	ctx := context.Background()
	_, err := server.Read(ctx)
	require.NoError(t, err)

	require.NoError(t, server.Write(ctx, protocol.Success("file", "x")))
	r := wait(t, done)
	assert.ErrorIs(t, r.err, protocol.ErrProtocolViolation)
}

func TestDisconnectWithoutExit(t *testing.T) {
	_, server, done := startHandler(t)
	_, err := server.Read(context.Background())
	require.NoError(t, err)
	require.NoError(t, server.Close())

	r := wait(t, done)
	assert.ErrorIs(t, r.err, ErrConnectionClosed)
	assert.Equal(t, 1, r.status)
}

func TestRootAuthorityPolicy(t *testing.T) {
	a, _ := net.Pipe()
	defer a.Close()
	h, err := New(protocol.NewAdapter(transport.NewSocket(a)), "terminalwire.com", WithRoot(t.TempDir()))
	require.NoError(t, err)
	assert.True(t, h.Policy().IsRoot())
	assert.Contains(t, h.Resources().Names(), "browser")
	assert.Len(t, h.Resources().Names(), 7)
}
