package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/guseggert/terminalwire/authority"
	"github.com/guseggert/terminalwire/protocol"
	"github.com/guseggert/terminalwire/transport"
	"go.uber.org/zap"
)

type ConnectConfig struct {
	// HTTPClient is used for the WebSocket handshake, e.g. to trust a private CA.
	HTTPClient *http.Client
	Codec      protocol.Codec
	Log        *zap.SugaredLogger
}

// Connect dials a terminalwire server over WebSocket and runs a Handler until the server sends exit.
// The authority, and therefore the entitlement policy, is derived from url.
func Connect(ctx context.Context, url string, cfg ConnectConfig, opts ...Option) (int, error) {
	auth, err := authority.Parse(url)
	if err != nil {
		return 1, err
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	ws, err := transport.DialWebSocket(ctx, url, &transport.WebSocketConfig{
		HTTPClient: cfg.HTTPClient,
		Log:        log,
	})
	if err != nil {
		return 1, err
	}
	adapter := protocol.NewAdapter(ws, protocol.WithCodec(cfg.Codec), protocol.WithLogger(log))
	defer adapter.Close()

	h, err := New(adapter, auth.Domain(), append([]Option{WithLogger(log)}, opts...)...)
	if err != nil {
		return 1, fmt.Errorf("building client handler: %w", err)
	}
	return h.Run(ctx)
}
