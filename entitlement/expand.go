package entitlement

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath returns the absolute, cleaned form of path, expanding a leading "~" to the user's home directory.
// Permission checks and file operations must both use the expanded form.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding %q: %w", path, err)
		}
		path = filepath.Join(home, path[1:])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("expanding %q: %w", path, err)
	}
	return abs, nil
}
