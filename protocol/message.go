package protocol

import (
	"fmt"
	"math"

	"github.com/guseggert/terminalwire/entitlement"
)

// Version is the protocol version the client announces during the handshake.
const Version = "0.4.0"

const (
	EventInitialization = "initialization"
	EventResource       = "resource"
	EventExit           = "exit"

	ActionCommand = "command"
	ActionNotify  = "notify"

	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Message is a single protocol frame.
// Codecs read the json tags, so the CBOR and JSON encodings share field names.
type Message struct {
	Event string `json:"event"`

	Action     string     `json:"action,omitempty"`
	Name       string     `json:"name,omitempty"`
	Command    string     `json:"command,omitempty"`
	Parameters Parameters `json:"parameters,omitempty"`
	ID         string     `json:"id,omitempty"`

	// Status is a string ("success" or "failure") on resource responses and an integer on exit messages.
	// Status and Response are never omitted: an exit status of 0 or a false response must survive encoding.
	Status   any `json:"status"`
	Response any `json:"response"`

	Protocol    *ProtocolInfo           `json:"protocol,omitempty"`
	Entitlement *entitlement.Serialized `json:"entitlement,omitempty"`
	Program     *Program                `json:"program,omitempty"`
}

type ProtocolInfo struct {
	Version string `json:"version"`
}

// Program identifies the program the user invoked on the client.
type Program struct {
	Name      string   `json:"name"`
	Arguments []string `json:"arguments"`
}

func Initialization(ent entitlement.Serialized, program Program) Message {
	if program.Arguments == nil {
		program.Arguments = []string{}
	}
	return Message{
		Event:       EventInitialization,
		Protocol:    &ProtocolInfo{Version: Version},
		Entitlement: &ent,
		Program:     &program,
	}
}

func Command(name, command string, params Parameters) Message {
	return Message{Event: EventResource, Action: ActionCommand, Name: name, Command: command, Parameters: params}
}

func Notify(name, command string, params Parameters) Message {
	return Message{Event: EventResource, Action: ActionNotify, Name: name, Command: command, Parameters: params}
}

func Success(name string, response any) Message {
	return Message{Event: EventResource, Name: name, Status: StatusSuccess, Response: response}
}

// Failure builds a failure response. The command and parameters are echoed so the remote side can tell what failed.
func Failure(name, message, command string, params Parameters) Message {
	return Message{
		Event:      EventResource,
		Name:       name,
		Status:     StatusFailure,
		Response:   message,
		Command:    command,
		Parameters: params,
	}
}

func Exit(status int) Message {
	return Message{Event: EventExit, Status: status}
}

// IsResponse reports whether m is a response to a resource command.
func (m Message) IsResponse() bool {
	return m.Event == EventResource && m.Action == "" && m.Status != nil
}

// ResponseStatus returns the status of a resource response, or "" if the status is not a string.
func (m Message) ResponseStatus() string {
	s, _ := m.Status.(string)
	return s
}

// ExitStatus returns the status of an exit message.
func (m Message) ExitStatus() (int, error) {
	n, ok := toInt64(m.Status)
	if !ok || n < 0 || n > 255 {
		return 0, Violationf(m, "exit status %v is not an integer between 0 and 255", m.Status)
	}
	return int(n), nil
}

// Validate checks the shape of m. Any failure is a protocol violation.
func (m Message) Validate() error {
	switch m.Event {
	case EventInitialization:
		if m.Protocol == nil || m.Protocol.Version == "" {
			return Violationf(m, "initialization without a protocol version")
		}
		if m.Entitlement == nil {
			return Violationf(m, "initialization without an entitlement")
		}
		if m.Program == nil {
			return Violationf(m, "initialization without a program")
		}
	case EventResource:
		if m.Name == "" {
			return Violationf(m, "resource message without a name")
		}
		switch m.Action {
		case ActionCommand, ActionNotify:
			if m.Command == "" {
				return Violationf(m, "resource %s without a command", m.Action)
			}
		case "":
			status := m.ResponseStatus()
			if status != StatusSuccess && status != StatusFailure {
				return Violationf(m, "resource response with unknown status %v", m.Status)
			}
		default:
			return Violationf(m, "unknown resource action %q", m.Action)
		}
	case EventExit:
		if _, err := m.ExitStatus(); err != nil {
			return err
		}
	default:
		return Violationf(m, "unknown event %q", m.Event)
	}
	return nil
}

// Parameters are the named arguments of a resource command.
type Parameters map[string]any

// String returns a required string parameter.
func (p Parameters) String(key string) (string, error) {
	s, ok, err := p.OptionalString(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("missing parameter %q", key)
	}
	return s, nil
}

func (p Parameters) OptionalString(key string) (string, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("parameter %q must be a string, got %T", key, v)
	}
	return s, true, nil
}

// Integer returns an integer parameter and whether it was present.
// Codecs decode numbers into different Go types, so every integer type is accepted, as are integral floats.
func (p Parameters) Integer(key string) (int64, bool, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, false, fmt.Errorf("parameter %q must be an integer, got %v", key, v)
	}
	return n, true, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), n <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float32:
		return toInt64(float64(n))
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
