package server

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/guseggert/terminalwire/entitlement"
	"github.com/guseggert/terminalwire/protocol"
)

// Context is what a Program sees of the client: its resources, its identity and its entitlement.
type Context struct {
	Stdout              *Output
	Stderr              *Output
	Stdin               *Input
	File                *File
	Directory           *Directory
	EnvironmentVariable *EnvironmentVariable
	Browser             *Browser

	Authority       string
	Program         protocol.Program
	ProtocolVersion string
	// Entitlement is the policy the client announced. The client enforces it; the server only reads it.
	Entitlement entitlement.Serialized

	session *Session

	rootOnce sync.Once
	root     string
	rootErr  error

	exitMut sync.Mutex
	exited  bool
}

func newContext(session *Session, handshake protocol.Message) *Context {
	tc := &Context{
		Stdout:              &Output{stub{"stdout", session}},
		Stderr:              &Output{stub{"stderr", session}},
		Stdin:               &Input{stub{"stdin", session}},
		File:                &File{stub{"file", session}},
		Directory:           &Directory{stub{"directory", session}},
		EnvironmentVariable: &EnvironmentVariable{stub{"environment_variable", session}},
		Browser:             &Browser{stub{"browser", session}},
		session:             session,
	}
	if handshake.Protocol != nil {
		tc.ProtocolVersion = handshake.Protocol.Version
	}
	if handshake.Entitlement != nil {
		tc.Entitlement = *handshake.Entitlement
		tc.Authority = handshake.Entitlement.Authority
	}
	if handshake.Program != nil {
		tc.Program = *handshake.Program
	}
	return tc
}

// Policy rebuilds the client's policy from its announcement, for checking a path before asking for it.
func (c *Context) Policy() (*entitlement.Policy, error) {
	return entitlement.FromSerialized(c.Entitlement)
}

// RootPath returns the client's terminalwire home. It is read from the client on first use.
func (c *Context) RootPath(ctx context.Context) (string, error) {
	c.rootOnce.Do(func() {
		root, ok, err := c.EnvironmentVariable.Read(ctx, entitlement.HomeEnvironmentVariable)
		switch {
		case err != nil:
			c.rootErr = fmt.Errorf("reading %s: %w", entitlement.HomeEnvironmentVariable, err)
		case !ok || root == "":
			c.rootErr = fmt.Errorf("client did not report %s", entitlement.HomeEnvironmentVariable)
		default:
			c.root = root
		}
	})
	return c.root, c.rootErr
}

// AuthorityPath returns the client directory reserved for this authority.
func (c *Context) AuthorityPath(ctx context.Context) (string, error) {
	root, err := c.RootPath(ctx)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "authorities", c.Authority), nil
}

// StoragePath returns the client directory this authority may write to by default.
func (c *Context) StoragePath(ctx context.Context) (string, error) {
	p, err := c.AuthorityPath(ctx)
	if err != nil {
		return "", err
	}
	return filepath.Join(p, "storage"), nil
}

func (c *Context) Print(ctx context.Context, data string) error {
	return c.Stdout.Print(ctx, data)
}

func (c *Context) PrintLine(ctx context.Context, data string) error {
	return c.Stdout.PrintLine(ctx, data)
}

var errAlreadyExited = errors.New("exit already sent")

// Exit ends the client session with status. Only the first exit is sent.
// A Program that returns without calling Exit exits with 0, or 1 if it returned an error.
func (c *Context) Exit(ctx context.Context, status int) error {
	if status < 0 || status > 255 {
		return fmt.Errorf("exit status %d out of range", status)
	}
	c.exitMut.Lock()
	defer c.exitMut.Unlock()
	if c.exited {
		return errAlreadyExited
	}
	if err := c.session.Notify(ctx, protocol.Exit(status)); err != nil {
		return fmt.Errorf("sending exit: %w", err)
	}
	c.exited = true
	return nil
}
