package server

import (
	"errors"
	"fmt"

	"github.com/guseggert/terminalwire/protocol"
)

var (
	// ErrSessionClosed rejects requests that were pending when the session closed.
	ErrSessionClosed = errors.New("session closed")
	// ErrRemoteExit rejects requests that were pending when an exit message arrived.
	ErrRemoteExit = errors.New("remote requested exit")
)

// ResponseError is a failure response from the client: a denial or a failed operation.
type ResponseError struct {
	Name       string
	Command    string
	Parameters protocol.Parameters
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("%s failed: %s", e.Name, e.Message)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Name, e.Command, e.Message)
}

func responseError(msg protocol.Message) *ResponseError {
	text, ok := msg.Response.(string)
	if !ok {
		text = fmt.Sprint(msg.Response)
	}
	return &ResponseError{
		Name:       msg.Name,
		Command:    msg.Command,
		Parameters: msg.Parameters,
		Message:    text,
	}
}
