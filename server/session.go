// Package server runs the server side of a terminalwire connection: it multiplexes commands to the client's resources over one connection and hosts the program the user invoked.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/guseggert/terminalwire/protocol"
	"go.uber.org/zap"
)

// MessageWriter writes one message to the client, usually a *protocol.Adapter.
type MessageWriter interface {
	Write(ctx context.Context, msg protocol.Message) error
}

// Session multiplexes concurrent requests over one connection.
// It assigns each request an id, serializes writes, and routes responses fed to Ingest back to the waiting caller.
// Exactly one goroutine, the connection's read loop, should call Ingest.
type Session struct {
	w   MessageWriter
	log *zap.SugaredLogger

	// writeMut keeps frames from interleaving on the transport.
	writeMut sync.Mutex

	mut     sync.Mutex
	pending map[string]*Waiter
	closed  bool
}

func NewSession(w MessageWriter, log *zap.SugaredLogger) *Session {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Session{
		w:       w,
		log:     log,
		pending: map[string]*Waiter{},
	}
}

// Request sends msg and returns a waiter for its response.
// A random id is assigned when msg has none. If the write fails, nothing is left pending.
func (s *Session) Request(ctx context.Context, msg protocol.Message) (*Waiter, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	waiter := newWaiter()

	s.mut.Lock()
	if s.closed {
		s.mut.Unlock()
		return nil, ErrSessionClosed
	}
	if _, ok := s.pending[msg.ID]; ok {
		s.mut.Unlock()
		return nil, fmt.Errorf("request id %q is already pending", msg.ID)
	}
	s.pending[msg.ID] = waiter
	s.mut.Unlock()

	if err := s.Notify(ctx, msg); err != nil {
		s.forget(msg.ID, waiter)
		return nil, fmt.Errorf("writing request: %w", err)
	}
	return waiter, nil
}

// Call sends msg and waits for its response.
// If ctx ends first, the request is abandoned locally; the client may still perform it.
func (s *Session) Call(ctx context.Context, msg protocol.Message) (any, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	waiter, err := s.Request(ctx, msg)
	if err != nil {
		return nil, err
	}
	v, err := waiter.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		s.forget(msg.ID, waiter)
	}
	return v, err
}

// CallTimeout is Call with a deadline of d from now.
func (s *Session) CallTimeout(ctx context.Context, msg protocol.Message, d time.Duration) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return s.Call(ctx, msg)
}

// Notify writes msg without expecting a response.
func (s *Session) Notify(ctx context.Context, msg protocol.Message) error {
	s.writeMut.Lock()
	defer s.writeMut.Unlock()
	return s.w.Write(ctx, msg)
}

func (s *Session) forget(id string, waiter *Waiter) {
	s.mut.Lock()
	defer s.mut.Unlock()
	if s.pending[id] == waiter {
		delete(s.pending, id)
	}
}

// Ingest routes an inbound message and reports whether it was consumed.
// Responses to pending requests are consumed. An exit message rejects every pending request but is not consumed, so the caller can act on it too.
func (s *Session) Ingest(msg protocol.Message) bool {
	switch msg.Event {
	case protocol.EventResource:
		if msg.ID == "" || !msg.IsResponse() {
			return false
		}
		s.mut.Lock()
		waiter, ok := s.pending[msg.ID]
		if ok {
			delete(s.pending, msg.ID)
		}
		s.mut.Unlock()
		if !ok {
			return false
		}

		switch msg.ResponseStatus() {
		case protocol.StatusSuccess:
			waiter.Fulfill(msg.Response)
		case protocol.StatusFailure:
			waiter.Reject(responseError(msg))
		default:
			waiter.Reject(protocol.Violationf(msg, "unknown response status %v", msg.Status))
		}
		return true
	case protocol.EventExit:
		s.rejectAll(ErrRemoteExit)
		return false
	default:
		return false
	}
}

// Close rejects every pending request. Later requests fail with ErrSessionClosed.
func (s *Session) Close() {
	s.mut.Lock()
	s.closed = true
	s.mut.Unlock()
	s.rejectAll(ErrSessionClosed)
}

func (s *Session) rejectAll(err error) {
	s.mut.Lock()
	pending := s.pending
	s.pending = map[string]*Waiter{}
	s.mut.Unlock()

	if len(pending) > 0 {
		s.log.Debugw("rejecting pending requests", "Count", len(pending), "Error", err)
	}
	for _, w := range pending {
		w.Reject(err)
	}
}

// Pending returns the number of requests awaiting a response.
func (s *Session) Pending() int {
	s.mut.Lock()
	defer s.mut.Unlock()
	return len(s.pending)
}
