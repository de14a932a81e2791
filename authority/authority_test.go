package authority

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name   string
		url    string
		domain string
		path   string
	}{
		{name: "https default port", url: "https://example.com", domain: "example.com", path: "/"},
		{name: "wss default port", url: "wss://example.com:443/terminal", domain: "example.com", path: "/terminal"},
		{name: "ws default port", url: "ws://example.com:80/a/b/", domain: "example.com", path: "/a/b"},
		{name: "custom port", url: "http://localhost:3000/terminal", domain: "localhost:3000", path: "/terminal"},
		{name: "https on port 80 keeps it", url: "https://example.com:80", domain: "example.com:80", path: "/"},
		{name: "host is lowercased", url: "wss://Example.COM/x", domain: "example.com", path: "/x"},
		{name: "terminalwire scheme", url: "terminalwire://terminalwire.com/shell", domain: "terminalwire.com", path: "/shell"},
		{name: "duplicate slashes", url: "https://example.com//a//b", domain: "example.com", path: "/a/b"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			a, err := Parse(c.url)
			require.NoError(t, err)
			assert.Equal(t, c.domain, a.Domain())
			assert.Equal(t, c.path, a.Path())
			assert.Equal(t, "terminalwire://"+c.domain+c.path, a.String())
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, url := range []string{
		"ftp://example.com",
		"example.com",
		"https://",
		"https:///path",
		"://bad",
	} {
		t.Run(url, func(t *testing.T) {
			_, err := Parse(url)
			assert.Error(t, err)
		})
	}
}

func TestKey(t *testing.T) {
	a, err := Parse("wss://example.com:8443/terminal")
	require.NoError(t, err)

	decoded, err := base64.URLEncoding.DecodeString(a.Key())
	require.NoError(t, err)
	assert.Equal(t, "terminalwire://example.com:8443/terminal", string(decoded))
	assert.NotContains(t, a.Key(), "/")
}
