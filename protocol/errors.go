package protocol

import (
	"errors"
	"fmt"
)

// ErrProtocolViolation is wrapped by every error caused by a malformed or unexpected message.
// Protocol violations are fatal to the connection.
var ErrProtocolViolation = errors.New("protocol violation")

type ViolationError struct {
	Reason  string
	Message Message
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrProtocolViolation, e.Reason)
}

func (e *ViolationError) Unwrap() error { return ErrProtocolViolation }

func Violationf(m Message, format string, args ...any) error {
	return &ViolationError{Reason: fmt.Sprintf(format, args...), Message: m}
}
