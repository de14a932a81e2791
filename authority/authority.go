// Package authority derives the identity of a terminalwire server from the URL a client connects to.
package authority

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Scheme prefixes the canonical string form of an authority.
const Scheme = "terminalwire://"

var defaultPorts = map[string]string{
	"http":         "80",
	"ws":           "80",
	"https":        "443",
	"wss":          "443",
	"terminalwire": "443",
}

// Authority is the canonical identity of a remote server. It selects the entitlement policy the client enforces.
type Authority struct {
	host string
	port string
	path string
}

func Parse(rawURL string) (Authority, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Authority{}, fmt.Errorf("parsing URL %q: %w", rawURL, err)
	}
	defaultPort, ok := defaultPorts[strings.ToLower(u.Scheme)]
	if !ok {
		return Authority{}, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return Authority{}, errors.New("URL has no host")
	}
	if host == "." || host == ".." || strings.ContainsAny(host, `/\`) {
		return Authority{}, fmt.Errorf("invalid host %q", host)
	}
	port := u.Port()
	if port == defaultPort {
		port = ""
	}

	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	return Authority{
		host: host,
		port: port,
		path: "/" + strings.Join(segments, "/"),
	}, nil
}

// Domain is the host, with the port appended when it is not the scheme's default.
func (a Authority) Domain() string {
	if a.port == "" {
		return a.host
	}
	return net.JoinHostPort(a.host, a.port)
}

// Path always starts with "/" and never ends with one, except for the root path.
func (a Authority) Path() string { return a.path }

func (a Authority) String() string {
	return Scheme + a.Domain() + a.path
}

// Key is a filesystem-safe encoding of String.
func (a Authority) Key() string {
	return base64.URLEncoding.EncodeToString([]byte(a.String()))
}
