package entitlement

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPolicy(t *testing.T) {
	root := t.TempDir()
	p, err := NewPolicy("example.com", root)
	require.NoError(t, err)

	storage := filepath.Join(root, "authorities", "example.com", "storage")
	assert.Equal(t, storage, p.StoragePath())
	assert.False(t, p.IsRoot())

	assert.True(t, p.IsPathPermitted(storage))
	assert.True(t, p.IsPathPermitted(filepath.Join(storage, "notes.txt")))
	assert.True(t, p.IsPathPermitted(filepath.Join(storage, "a", "b.txt")))
	assert.False(t, p.IsPathPermitted(filepath.Join(root, "authorities", "other.com", "storage", "x")))
	assert.False(t, p.IsPathPermitted("/etc/passwd"))

	ok, err := p.IsPathModePermitted(filepath.Join(storage, "x"), DefaultMode)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.IsPathModePermitted(filepath.Join(storage, "x"), 0o755)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, p.IsSchemePermitted("https://example.com"))
	assert.True(t, p.IsSchemePermitted("http://example.com"))
	assert.False(t, p.IsSchemePermitted("file:///etc/passwd"))
	assert.False(t, p.IsSchemePermitted("javascript:alert(1)"))

	assert.True(t, p.IsEnvVarPermitted("TERMINALWIRE_HOME"))
	assert.False(t, p.IsEnvVarPermitted("PATH"))
	assert.False(t, p.IsEnvVarPermitted("terminalwire_home"))
}

func TestNewPolicyRejectsInvalidAuthority(t *testing.T) {
	for _, a := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := NewPolicy(a, t.TempDir())
		assert.Error(t, err, a)
	}
}

func TestRootPolicy(t *testing.T) {
	root := t.TempDir()
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	p, err := Resolve(RootAuthority, root)
	require.NoError(t, err)
	assert.True(t, p.IsRoot())

	assert.True(t, p.IsPathPermitted(root))
	assert.True(t, p.IsPathPermitted(filepath.Join(root, "authorities", "example.com", "storage", "junk.txt")))
	assert.True(t, p.IsPathPermitted(filepath.Join(home, ".zshrc")))
	assert.True(t, p.IsPathPermitted(filepath.Join(home, ".config", "fish", "config.fish")))
	assert.False(t, p.IsPathPermitted(filepath.Join(home, ".ssh", "id_rsa")))

	ok, err := p.IsPathModePermitted(filepath.Join(root, "bin", "example"), BinaryPathFileMode)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.IsPathModePermitted(filepath.Join(root, "bin", "example"), 0o777)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, name := range []string{"PATH", "SHELL", "TERMINALWIRE_ROOT", "TERMINALWIRE_HOME"} {
		assert.True(t, p.IsEnvVarPermitted(name), name)
	}
}

func TestOnlyRootMayInstallBinaries(t *testing.T) {
	root := t.TempDir()
	bin := filepath.Join(root, "bin", "example")

	other, err := Resolve("example.com", root)
	require.NoError(t, err)
	ok, err := other.IsPathModePermitted(bin, BinaryPathFileMode)
	require.NoError(t, err)
	assert.False(t, ok)

	rootPolicy, err := Resolve(RootAuthority, root)
	require.NoError(t, err)
	ok, err = rootPolicy.IsPathModePermitted(bin, BinaryPathFileMode)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSerializeRoundTrip(t *testing.T) {
	root := t.TempDir()
	p, err := NewRootPolicy(root)
	require.NoError(t, err)

	s := p.Serialize()
	assert.Equal(t, RootAuthority, s.Authority)
	assert.Equal(t, []SerializedScheme{{Scheme: "http"}, {Scheme: "https"}}, s.Schemes)
	assert.Contains(t, s.Paths, SerializedPath{Location: filepath.Join(root, "bin", "*"), Mode: 0o755})
	assert.Contains(t, s.EnvironmentVariables, SerializedEnvironmentVariable{Name: "PATH"})

	mirror, err := FromSerialized(s)
	require.NoError(t, err)
	assert.Equal(t, s, mirror.Serialize())
	assert.True(t, mirror.IsPathPermitted(filepath.Join(root, "authorities", "x", "y")))
}

func TestFromSerializedRejectsBadMode(t *testing.T) {
	_, err := FromSerialized(Serialized{
		Authority: "example.com",
		Paths:     []SerializedPath{{Location: "/tmp/x", Mode: 0o1000}},
	})
	assert.Error(t, err)
}
