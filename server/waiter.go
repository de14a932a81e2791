package server

import (
	"context"
	"sync"
)

// Waiter is a single-assignment result of a request.
// The first Fulfill or Reject wins; later calls have no effect.
type Waiter struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

func newWaiter() *Waiter {
	return &Waiter{done: make(chan struct{})}
}

// Fulfill resolves the waiter with value and reports whether it was still pending.
func (w *Waiter) Fulfill(value any) bool {
	return w.complete(value, nil)
}

// Reject resolves the waiter with err and reports whether it was still pending.
func (w *Waiter) Reject(err error) bool {
	return w.complete(nil, err)
}

func (w *Waiter) complete(value any, err error) bool {
	completed := false
	w.once.Do(func() {
		w.value = value
		w.err = err
		completed = true
		close(w.done)
	})
	return completed
}

// Done is closed once the waiter is resolved.
func (w *Waiter) Done() <-chan struct{} { return w.done }

// Wait blocks until the waiter is resolved or ctx is done.
// When ctx ends first, ctx.Err() is returned and the waiter stays pending.
func (w *Waiter) Wait(ctx context.Context) (any, error) {
	select {
	case <-w.done:
		return w.value, w.err
	case <-ctx.Done():
		// a resolution that raced with ctx still wins
		select {
		case <-w.done:
			return w.value, w.err
		default:
		}
		return nil, ctx.Err()
	}
}
