// Package transport moves opaque frames between a terminalwire client and server.
// Each Write is delivered to the remote Read as exactly one frame, in order.
package transport

import "context"

type Transport interface {
	// Read blocks until the next frame arrives. It returns io.EOF once the remote side has closed the connection.
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, frame []byte) error
	Close() error
}
