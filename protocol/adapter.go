package protocol

import (
	"context"
	"fmt"

	"github.com/guseggert/terminalwire/transport"
	"go.uber.org/zap"
)

// Adapter reads and writes messages over a transport.
// It does not serialize writes; callers that write from several goroutines must do that themselves.
type Adapter struct {
	transport transport.Transport
	codec     Codec
	log       *zap.SugaredLogger
}

type AdapterOption func(a *Adapter)

func WithCodec(c Codec) AdapterOption {
	return func(a *Adapter) {
		if c != nil {
			a.codec = c
		}
	}
}

func WithLogger(l *zap.SugaredLogger) AdapterOption {
	return func(a *Adapter) {
		if l != nil {
			a.log = l.Named("adapter")
		}
	}
}

func NewAdapter(t transport.Transport, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		transport: t,
		codec:     CBOR,
		log:       zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Adapter) Codec() Codec { return a.codec }

// Read returns the next message. It returns io.EOF when the remote side closed the connection.
func (a *Adapter) Read(ctx context.Context) (Message, error) {
	b, err := a.transport.Read(ctx)
	if err != nil {
		return Message{}, err
	}
	var msg Message
	if err := a.codec.Unmarshal(b, &msg); err != nil {
		return Message{}, &ViolationError{Reason: fmt.Sprintf("decoding %s frame: %s", a.codec.Name(), err)}
	}
	a.log.Debugw("received", "Message", msg)
	return msg, nil
}

func (a *Adapter) Write(ctx context.Context, msg Message) error {
	a.log.Debugw("sending", "Message", msg)
	b, err := a.codec.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", a.codec.Name(), err)
	}
	return a.transport.Write(ctx, b)
}

func (a *Adapter) Close() error {
	return a.transport.Close()
}
