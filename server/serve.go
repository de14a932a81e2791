package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/guseggert/terminalwire/protocol"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Program is the server-side application a client invokes. It runs once per connection.
type Program func(ctx context.Context, tc *Context) error

// Conn carries messages to and from one client, usually a *protocol.Adapter.
type Conn interface {
	Read(ctx context.Context) (protocol.Message, error)
	Write(ctx context.Context, msg protocol.Message) error
	Close() error
}

type options struct {
	log *zap.SugaredLogger
}

type Option func(*options)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *options) { o.log = l }
}

// Serve runs program for the client on conn and returns once the connection ends.
// The program starts when the client's initialization arrives. When it returns, the client is sent an exit status and conn is closed.
// If the client goes away first, the program's context is canceled and its pending requests fail.
func Serve(ctx context.Context, conn Conn, program Program, opts ...Option) error {
	o := options{log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.Named("server")

	ctx, cancel := context.WithCancel(ctx)
	session := NewSession(conn, log.Named("session"))

	var (
		group    errgroup.Group
		started  bool
		finished atomic.Bool
	)
	// the program may still be blocked on a request, so fail those before waiting for it
	defer func() {
		session.Close()
		cancel()
		_ = group.Wait()
	}()

	for {
		msg, err := conn.Read(ctx)
		if err != nil {
			if finished.Load() {
				return nil
			}
			if errors.Is(err, io.EOF) {
				log.Debug("client disconnected")
				return nil
			}
			return fmt.Errorf("reading message: %w", err)
		}

		if session.Ingest(msg) {
			continue
		}

		switch msg.Event {
		case protocol.EventInitialization:
			if started {
				log.Warnw("discarding repeated initialization")
				continue
			}
			if err := msg.Validate(); err != nil {
				log.Warnw("discarding invalid initialization", "Error", err)
				continue
			}
			started = true
			tc := newContext(session, msg)
			log.Debugw("starting program", "Authority", tc.Authority, "Program", tc.Program.Name, "Arguments", tc.Program.Arguments)
			group.Go(func() error {
				status := runProgram(ctx, program, tc, log)
				if err := tc.Exit(ctx, status); err != nil && !errors.Is(err, errAlreadyExited) {
					log.Debugw("sending exit", "Error", err)
				}
				finished.Store(true)
				return conn.Close()
			})
		case protocol.EventExit:
			log.Debug("client requested exit")
			return nil
		default:
			log.Debugw("discarding unexpected message", "Event", msg.Event, "Name", msg.Name, "ID", msg.ID)
		}
	}
}

func runProgram(ctx context.Context, program Program, tc *Context, log *zap.SugaredLogger) (status int) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("program panicked", "Panic", r)
			status = 1
		}
	}()
	if err := program(ctx, tc); err != nil {
		log.Debugw("program failed", "Error", err)
		return 1
	}
	return 0
}
