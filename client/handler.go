// Package client runs the client side of a terminalwire connection: it announces the program and its entitlement, then executes the commands the server sends on the user's machine.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/guseggert/terminalwire/client/resource"
	"github.com/guseggert/terminalwire/entitlement"
	"github.com/guseggert/terminalwire/protocol"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrConnectionClosed is returned by Run when the server disconnects without sending exit.
var ErrConnectionClosed = errors.New("connection closed before exit")

// notificationBacklog is how many notifications may queue before the read loop waits for them.
const notificationBacklog = 256

// Conn is a message connection to the server, usually a *protocol.Adapter.
type Conn interface {
	Read(ctx context.Context) (protocol.Message, error)
	Write(ctx context.Context, msg protocol.Message) error
	Close() error
}

type Handler struct {
	conn      Conn
	authority string
	log       *zap.SugaredLogger

	root        string
	programName string
	arguments   []string
	stdin       io.Reader
	stdout      io.Writer
	stderr      io.Writer
	lookupEnv   resource.LookupEnvFunc
	openURL     resource.OpenURLFunc
	maxInFlight int64

	writeMut sync.Mutex

	policy    *entitlement.Policy
	resources *resource.Dispatcher
}

type Option func(h *Handler)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(h *Handler) {
		h.log = l.Named("client")
	}
}

// WithRoot sets the terminalwire home directory. It defaults to entitlement.DefaultRoot.
func WithRoot(root string) Option {
	return func(h *Handler) {
		h.root = root
	}
}

// WithProgram sets the program name and arguments sent in the handshake.
func WithProgram(name string, args []string) Option {
	return func(h *Handler) {
		h.programName = name
		h.arguments = args
	}
}

func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(h *Handler) {
		h.stdin = stdin
		h.stdout = stdout
		h.stderr = stderr
	}
}

// WithEnviron replaces os.LookupEnv for the environment_variable resource.
func WithEnviron(lookup resource.LookupEnvFunc) Option {
	return func(h *Handler) {
		h.lookupEnv = lookup
	}
}

func WithBrowser(open resource.OpenURLFunc) Option {
	return func(h *Handler) {
		h.openURL = open
	}
}

// WithConcurrency bounds the number of commands executing at once. Zero means unbounded.
func WithConcurrency(n int) Option {
	return func(h *Handler) {
		h.maxInFlight = int64(n)
	}
}

// New builds a handler for a connection to authority.
// The policy is resolved here and stays fixed for the life of the connection.
func New(conn Conn, authority string, opts ...Option) (*Handler, error) {
	h := &Handler{
		conn:        conn,
		authority:   authority,
		log:         zap.NewNop().Sugar(),
		programName: filepath.Base(os.Args[0]),
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		lookupEnv:   os.LookupEnv,
	}
	for _, o := range opts {
		o(h)
	}
	if h.root == "" {
		root, err := entitlement.DefaultRoot()
		if err != nil {
			return nil, fmt.Errorf("finding terminalwire home: %w", err)
		}
		h.root = root
	}

	policy, err := entitlement.Resolve(authority, h.root)
	if err != nil {
		return nil, fmt.Errorf("resolving entitlement for %s: %w", authority, err)
	}
	h.policy = policy

	w := &lockedWriter{h: h}
	h.resources, err = resource.NewDispatcher(
		resource.NewStdout(w, h.stdout, h.log),
		resource.NewStderr(w, h.stderr, h.log),
		resource.NewStdin(w, h.stdin, h.log),
		resource.NewFile(w, policy, h.log),
		resource.NewDirectory(w, policy, h.log),
		resource.NewEnvironmentVariable(w, policy, h.environ, h.log),
		resource.NewBrowser(w, policy, h.openURL, h.log),
	)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// environ exposes the handler's home directory as TERMINALWIRE_HOME without touching the process environment.
func (h *Handler) environ(name string) (string, bool) {
	if name == entitlement.HomeEnvironmentVariable {
		return h.policy.RootPath(), true
	}
	return h.lookupEnv(name)
}

func (h *Handler) Policy() *entitlement.Policy { return h.policy }

// Resources returns the dispatcher, so callers can register additional resources before Run.
func (h *Handler) Resources() *resource.Dispatcher { return h.resources }

// lockedWriter serializes response frames from concurrently running commands.
type lockedWriter struct {
	h *Handler
}

func (w *lockedWriter) Write(ctx context.Context, msg protocol.Message) error {
	w.h.writeMut.Lock()
	defer w.h.writeMut.Unlock()
	return w.h.conn.Write(ctx, msg)
}

// Run performs the handshake and handles server messages until the server sends exit.
// It returns the exit status the server requested.
func (h *Handler) Run(ctx context.Context) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	handshake := protocol.Initialization(h.policy.Serialize(), protocol.Program{
		Name:      h.programName,
		Arguments: h.arguments,
	})
	h.log.Debugw("sending initialization", "Authority", h.authority, "Program", h.programName)
	if err := (&lockedWriter{h: h}).Write(ctx, handshake); err != nil {
		return 1, fmt.Errorf("writing initialization: %w", err)
	}

	// Notifications have no id to reorder by, so they are applied one at a time in read order.
	// They run apart from the read loop so that slow commands never hold them up.
	notifications := make(chan func(), notificationBacklog)
	notificationsDone := make(chan struct{})
	go func() {
		defer close(notificationsDone)
		for notify := range notifications {
			notify()
		}
	}()
	var closeOnce sync.Once
	drainNotifications := func() {
		closeOnce.Do(func() { close(notifications) })
		<-notificationsDone
	}
	defer drainNotifications()

	var sem *semaphore.Weighted
	if h.maxInFlight > 0 {
		sem = semaphore.NewWeighted(h.maxInFlight)
	}

	for {
		msg, err := h.conn.Read(ctx)
		if errors.Is(err, io.EOF) {
			return 1, ErrConnectionClosed
		}
		if err != nil {
			return 1, fmt.Errorf("reading message: %w", err)
		}
		if err := msg.Validate(); err != nil {
			return 1, err
		}

		switch {
		case msg.Event == protocol.EventResource && msg.Action == protocol.ActionCommand:
			r, err := h.resources.Lookup(msg)
			if err != nil {
				return 1, err
			}
			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					return 1, err
				}
			}
			go func(msg protocol.Message) {
				if sem != nil {
					defer sem.Release(1)
				}
				cmdCtx := protocol.WithRequestID(ctx, msg.ID)
				if err := r.Command(cmdCtx, msg.Command, msg.Parameters); err != nil {
					h.log.Infow("command failed", "Resource", msg.Name, "Command", msg.Command, "ID", msg.ID, "Error", err)
				}
			}(msg)

		case msg.Event == protocol.EventResource && msg.Action == protocol.ActionNotify:
			r, err := h.resources.Lookup(msg)
			if err != nil {
				return 1, err
			}
			msg := msg
			select {
			case notifications <- func() { r.Notify(ctx, msg.Command, msg.Parameters) }:
			case <-ctx.Done():
				return 1, ctx.Err()
			}

		case msg.Event == protocol.EventExit:
			status, _ := msg.ExitStatus()
			drainNotifications()
			h.log.Debugw("server requested exit", "Status", status)
			return status, nil

		default:
			return 1, protocol.Violationf(msg, "unexpected %s message from server", msg.Event)
		}
	}
}
