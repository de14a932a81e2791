package entitlement

import "fmt"

// Serialized is the wire form of a Policy, sent to the server in the initialization handshake.
type Serialized struct {
	Authority            string                          `json:"authority"`
	Schemes              []SerializedScheme              `json:"schemes"`
	Paths                []SerializedPath                `json:"paths"`
	EnvironmentVariables []SerializedEnvironmentVariable `json:"environment_variables"`
}

type SerializedScheme struct {
	Scheme string `json:"scheme"`
}

type SerializedPath struct {
	Location string `json:"location"`
	Mode     uint32 `json:"mode"`
}

type SerializedEnvironmentVariable struct {
	Name string `json:"name"`
}

func (p *Policy) Serialize() Serialized {
	return Serialized{
		Authority:            p.Authority,
		Schemes:              p.Schemes.serialize(),
		Paths:                p.Paths.serialize(),
		EnvironmentVariables: p.EnvironmentVariables.serialize(),
	}
}

// FromSerialized rebuilds a policy granting exactly what s describes.
// Servers use it to show what a client enforces; it carries no root path.
func FromSerialized(s Serialized) (*Policy, error) {
	p := newEmptyPolicy(s.Authority, "")
	for _, path := range s.Paths {
		mode, err := ParseMode(int64(path.Mode))
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", path.Location, err)
		}
		if err := p.Paths.PermitMode(path.Location, mode); err != nil {
			return nil, fmt.Errorf("path %q: %w", path.Location, err)
		}
	}
	for _, scheme := range s.Schemes {
		p.Schemes.Permit(scheme.Scheme)
	}
	for _, env := range s.EnvironmentVariables {
		p.EnvironmentVariables.Permit(env.Name)
	}
	return p, nil
}
