package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoServer echoes frames until the client closes, then says goodbye and closes.
func echoServer(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := AcceptWebSocket(w, r, nil)
		if err != nil {
			t.Errorf("accepting: %s", err)
			return
		}
		defer ws.Close()
		for {
			frame, err := ws.Read(r.Context())
			if err != nil {
				return
			}
			if string(frame) == "bye" {
				return
			}
			if err := ws.Write(r.Context(), frame); err != nil {
				return
			}
		}
	})
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func TestWebSocket(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := httptest.NewServer(echoServer(t))
	defer srv.Close()

	ws, err := DialWebSocket(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer ws.Close()

	for _, frame := range []string{"one", "two", string(make([]byte, 100000))} {
		require.NoError(t, ws.Write(ctx, []byte(frame)))
		got, err := ws.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, frame, string(got))
	}

	// the server closing normally reads as EOF
	require.NoError(t, ws.Write(ctx, []byte("bye")))
	_, err = ws.Read(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWebSocketTLS(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	certs, err := GenerateCerts("127.0.0.1", "localhost")
	require.NoError(t, err)
	serverTLS, err := ServerTLSConfig(certs.Server.CertPEMBytes, certs.Server.KeyPEMBytes)
	require.NoError(t, err)

	srv := httptest.NewUnstartedServer(echoServer(t))
	srv.TLS = serverTLS
	srv.StartTLS()
	defer srv.Close()

	clientTLS, err := ClientTLSConfig(certs.CA.CertPEMBytes)
	require.NoError(t, err)
	ws, err := DialWebSocket(ctx, wsURL(srv), &WebSocketConfig{HTTPClient: HTTPClient(clientTLS)})
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.Write(ctx, []byte("secure")))
	got, err := ws.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secure", string(got))

	// a client that does not trust the CA is refused
	otherCerts, err := GenerateCerts("127.0.0.1")
	require.NoError(t, err)
	untrusting, err := ClientTLSConfig(otherCerts.CA.CertPEMBytes)
	require.NoError(t, err)
	_, err = DialWebSocket(ctx, wsURL(srv), &WebSocketConfig{HTTPClient: HTTPClient(untrusting)})
	assert.Error(t, err)
}

func TestClientTLSConfigRejectsGarbage(t *testing.T) {
	_, err := ClientTLSConfig([]byte("not a cert"))
	assert.Error(t, err)
}
