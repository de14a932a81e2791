// Package resource implements the capabilities a terminalwire client exposes to a server: terminal streams, files, directories, environment variables, and the browser.
// Every inbound command is checked against the client's entitlement policy before it runs.
package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/guseggert/terminalwire/protocol"
	"go.uber.org/zap"
)

// Responder writes response frames back to the server.
type Responder interface {
	Write(ctx context.Context, msg protocol.Message) error
}

// Handler performs one command. Its return value becomes the success response.
type Handler func(ctx context.Context, params protocol.Parameters) (any, error)

// PermitFunc decides whether a command may run. An error is reported to the server like a failed command.
type PermitFunc func(command string, params protocol.Parameters) (bool, error)

// PrepareFunc normalizes parameters once before both the permit check and the handler see them.
type PrepareFunc func(params protocol.Parameters) (protocol.Parameters, error)

type Resource interface {
	Name() string
	// Command runs a command and writes exactly one response frame.
	// Denials are reported to the server only; failures are also returned.
	Command(ctx context.Context, command string, params protocol.Parameters) error
	// Notify runs a command without ever writing a response. Errors are discarded.
	Notify(ctx context.Context, command string, params protocol.Parameters)
	Permit(command string, params protocol.Parameters) (bool, error)
}

// Base implements Resource around a table of command handlers.
type Base struct {
	name      string
	responder Responder
	handlers  map[string]Handler
	permit    PermitFunc
	prepare   PrepareFunc
	log       *zap.SugaredLogger
}

// NewBase panics on an invalid handler table; a resource without commands is a programming error.
func NewBase(name string, responder Responder, log *zap.SugaredLogger, permit PermitFunc, handlers map[string]Handler) *Base {
	if name == "" {
		panic("resource: empty resource name")
	}
	if len(handlers) == 0 {
		panic(fmt.Sprintf("resource %s: no command handlers", name))
	}
	for command, h := range handlers {
		if command == "" || h == nil {
			panic(fmt.Sprintf("resource %s: invalid handler for command %q", name, command))
		}
	}
	if permit == nil {
		panic(fmt.Sprintf("resource %s: nil permit func", name))
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Base{
		name:      name,
		responder: responder,
		handlers:  handlers,
		permit:    permit,
		log:       log.Named(name),
	}
}

// WithPrepare sets the parameter normalizer and returns b.
func (b *Base) WithPrepare(prepare PrepareFunc) *Base {
	b.prepare = prepare
	return b
}

func (b *Base) Name() string { return b.name }

func (b *Base) Commands() []string {
	commands := make([]string, 0, len(b.handlers))
	for c := range b.handlers {
		commands = append(commands, c)
	}
	return commands
}

func (b *Base) Permit(command string, params protocol.Parameters) (bool, error) {
	params, err := b.prepared(params)
	if err != nil {
		return false, err
	}
	return b.permit(command, params)
}

func (b *Base) prepared(params protocol.Parameters) (protocol.Parameters, error) {
	if b.prepare == nil {
		return params, nil
	}
	return b.prepare(params)
}

// run prepares, authorizes, and executes a command.
// denied is true when the policy refused the command; err is then nil.
func (b *Base) run(ctx context.Context, command string, params protocol.Parameters) (value any, denied bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s %s panicked: %v", b.name, command, r)
		}
	}()

	h, ok := b.handlers[command]
	if !ok {
		return nil, false, fmt.Errorf("unknown command %q for resource %s", command, b.name)
	}
	params, err = b.prepared(params)
	if err != nil {
		return nil, false, err
	}
	ok, err = b.permit(command, params)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, true, nil
	}
	value, err = h(ctx, params)
	return value, false, err
}

func (b *Base) Command(ctx context.Context, command string, params protocol.Parameters) error {
	value, denied, err := b.run(ctx, command, params)
	switch {
	case denied:
		b.log.Debugw("denied command", "Command", command, "Parameters", params)
		return b.respond(ctx, protocol.Failure(b.name, "Client denied "+command, command, params))
	case err != nil:
		if werr := b.respond(ctx, protocol.Failure(b.name, err.Error(), command, params)); werr != nil {
			return errors.Join(err, fmt.Errorf("writing failure response: %w", werr))
		}
		return err
	default:
		return b.respond(ctx, protocol.Success(b.name, value))
	}
}

func (b *Base) Notify(ctx context.Context, command string, params protocol.Parameters) {
	_, denied, err := b.run(ctx, command, params)
	if denied {
		b.log.Debugw("denied notification", "Command", command, "Parameters", params)
	}
	if err != nil {
		b.log.Debugw("notification failed", "Command", command, "Error", err)
	}
}

func (b *Base) respond(ctx context.Context, msg protocol.Message) error {
	msg.ID = protocol.RequestID(ctx)
	if err := b.responder.Write(ctx, msg); err != nil {
		return fmt.Errorf("writing %s response: %w", b.name, err)
	}
	return nil
}

func permitAll(string, protocol.Parameters) (bool, error) { return true, nil }
