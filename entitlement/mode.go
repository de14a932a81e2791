package entitlement

import "fmt"

// Mode is a Unix permission mode between 0o000 and 0o777.
type Mode uint32

const (
	// DefaultMode is read/write for the owner only, so files a server uploads never land executable.
	DefaultMode Mode = 0o600
	MaxMode     Mode = 0o777

	OwnerPermissions  Mode = 0o700
	GroupPermissions  Mode = 0o070
	OthersPermissions Mode = 0o007
)

var permissionClasses = [...]Mode{OwnerPermissions, GroupPermissions, OthersPermissions}

type ModeError struct {
	Value int64
}

func (e *ModeError) Error() string {
	return fmt.Sprintf("the mode %#o must be an octal value between %s and %s", e.Value, Mode(0), MaxMode)
}

// ParseMode validates v as a permission mode.
func ParseMode(v int64) (Mode, error) {
	if v < 0 || v > int64(MaxMode) {
		return 0, &ModeError{Value: v}
	}
	return Mode(v), nil
}

// Allows reports whether requested asks for a subset of m's bits in every permission class.
func (m Mode) Allows(requested Mode) bool {
	if m > MaxMode || requested > MaxMode {
		return false
	}
	for _, class := range permissionClasses {
		if requested&class&^(m&class) != 0 {
			return false
		}
	}
	return true
}

func (m Mode) String() string {
	return fmt.Sprintf("0o%03o", uint32(m))
}
