package entitlement

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// RootAuthority receives the extended root policy.
	RootAuthority = "terminalwire.com"

	// HomeEnvironmentVariable locates the client's terminalwire home directory.
	HomeEnvironmentVariable = "TERMINALWIRE_HOME"

	// BinaryPathFileMode lets the root authority install executable binary stubs.
	BinaryPathFileMode Mode = 0o755
)

// ShellInitializationFilePaths are checked and edited by the root authority to put binary stubs on the user's PATH.
var ShellInitializationFilePaths = []string{
	"~/.bash_profile",
	"~/.bashrc",
	"~/.zprofile",
	"~/.zshrc",
	"~/.profile",
	"~/.config/fish/config.fish",
	"~/.bash_login",
	"~/.cshrc",
	"~/.tcshrc",
}

// DefaultRoot returns $TERMINALWIRE_HOME, or ~/.terminalwire when it is unset.
func DefaultRoot() (string, error) {
	if root := os.Getenv(HomeEnvironmentVariable); root != "" {
		return ExpandPath(root)
	}
	return ExpandPath("~/.terminalwire")
}

// Policy is the set of capabilities the client grants one authority.
// It is built once per connection and not modified afterwards.
type Policy struct {
	Authority string

	Paths                *Paths
	Schemes              *Schemes
	EnvironmentVariables *EnvironmentVariables

	root string
}

func newEmptyPolicy(authority, root string) *Policy {
	return &Policy{
		Authority:            authority,
		Paths:                &Paths{},
		Schemes:              &Schemes{},
		EnvironmentVariables: &EnvironmentVariables{},
		root:                 root,
	}
}

// NewPolicy builds the standard policy for authority, with storage under root.
func NewPolicy(authority, root string) (*Policy, error) {
	if authority == "" || authority == "." || authority == ".." || strings.ContainsAny(authority, `/\`) {
		return nil, fmt.Errorf("invalid authority %q", authority)
	}
	root, err := ExpandPath(root)
	if err != nil {
		return nil, fmt.Errorf("expanding root path: %w", err)
	}
	p := newEmptyPolicy(authority, root)

	if err := p.Paths.Permit(p.StoragePath()); err != nil {
		return nil, err
	}
	if err := p.Paths.Permit(filepath.Join(p.StoragePath(), "**", "*")); err != nil {
		return nil, err
	}

	p.Schemes.Permit("http")
	p.Schemes.Permit("https")

	p.EnvironmentVariables.Permit(HomeEnvironmentVariable)
	return p, nil
}

// NewRootPolicy builds the policy for RootAuthority.
func NewRootPolicy(root string) (*Policy, error) {
	p, err := NewPolicy(RootAuthority, root)
	if err != nil {
		return nil, err
	}

	grants := []string{p.RootPath(), filepath.Join(p.RootPath(), "**", "*")}
	grants = append(grants, ShellInitializationFilePaths...)
	for _, g := range grants {
		if err := p.Paths.Permit(g); err != nil {
			return nil, err
		}
	}
	if err := p.Paths.PermitMode(filepath.Join(p.BinaryPath(), "*"), BinaryPathFileMode); err != nil {
		return nil, err
	}

	p.EnvironmentVariables.Permit("PATH")
	p.EnvironmentVariables.Permit("TERMINALWIRE_ROOT")
	p.EnvironmentVariables.Permit("SHELL")
	return p, nil
}

// Resolve returns the policy for authority.
func Resolve(authority, root string) (*Policy, error) {
	if authority == RootAuthority {
		return NewRootPolicy(root)
	}
	return NewPolicy(authority, root)
}

func (p *Policy) IsRoot() bool { return p.Authority == RootAuthority }

func (p *Policy) RootPath() string { return p.root }

func (p *Policy) AuthorityPath() string {
	return filepath.Join(p.root, "authorities", p.Authority)
}

func (p *Policy) StoragePath() string {
	return filepath.Join(p.AuthorityPath(), "storage")
}

func (p *Policy) BinaryPath() string {
	return filepath.Join(p.root, "bin")
}

func (p *Policy) IsPathPermitted(path string) bool {
	return p.Paths.Permitted(path)
}

func (p *Policy) IsPathModePermitted(path string, mode Mode) (bool, error) {
	return p.Paths.PermittedMode(path, mode)
}

func (p *Policy) IsSchemePermitted(rawURL string) bool {
	return p.Schemes.Permitted(rawURL)
}

func (p *Policy) IsEnvVarPermitted(name string) bool {
	return p.EnvironmentVariables.Permitted(name)
}
