package entitlement

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// PathPermit grants access to paths matching Location, with files created or changed there limited to Mode.
type PathPermit struct {
	Location string
	Mode     Mode
}

// MatchesPath reports whether the already expanded path matches the permit's pattern.
// "*" and "?" never match a path separator; a "**" path segment matches any number of directories.
func (p PathPermit) MatchesPath(expanded string) bool {
	// Match errors only on malformed patterns, which permit nothing.
	ok, err := doublestar.Match(filepath.ToSlash(p.Location), filepath.ToSlash(expanded))
	return err == nil && ok
}

func (p PathPermit) PermitsMode(requested Mode) bool {
	return p.Mode.Allows(requested)
}

// Paths is an ordered list of path permits.
type Paths struct {
	permits []PathPermit
}

// Permit grants pattern at DefaultMode.
func (p *Paths) Permit(pattern string) error {
	return p.PermitMode(pattern, DefaultMode)
}

func (p *Paths) PermitMode(pattern string, mode Mode) error {
	if _, err := ParseMode(int64(mode)); err != nil {
		return err
	}
	if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
		return fmt.Errorf("invalid path pattern %q", pattern)
	}
	location, err := ExpandPath(pattern)
	if err != nil {
		return err
	}
	p.permits = append(p.permits, PathPermit{Location: location, Mode: mode})
	return nil
}

// Permitted reports whether any permit matches path.
func (p *Paths) Permitted(path string) bool {
	expanded, err := ExpandPath(path)
	if err != nil {
		return false
	}
	for _, permit := range p.permits {
		if permit.MatchesPath(expanded) {
			return true
		}
	}
	return false
}

// PermittedMode reports whether a single permit matches both path and mode.
// A permit whose pattern matches but whose mode is too narrow does not stop the search.
func (p *Paths) PermittedMode(path string, mode Mode) (bool, error) {
	if _, err := ParseMode(int64(mode)); err != nil {
		return false, err
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return false, nil
	}
	for _, permit := range p.permits {
		if permit.MatchesPath(expanded) && permit.PermitsMode(mode) {
			return true, nil
		}
	}
	return false, nil
}

// All returns a copy of the permits in registration order.
func (p *Paths) All() []PathPermit {
	return append([]PathPermit(nil), p.permits...)
}

func (p *Paths) serialize() []SerializedPath {
	out := make([]SerializedPath, 0, len(p.permits))
	for _, permit := range p.permits {
		out = append(out, SerializedPath{Location: permit.Location, Mode: uint32(permit.Mode)})
	}
	return out
}
