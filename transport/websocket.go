package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// DefaultReadLimit bounds the size of a single WebSocket frame. File contents travel in one frame.
const DefaultReadLimit = 16 << 20

// Subprotocol is offered by clients and accepted by servers.
const Subprotocol = "ws"

type WebSocketConfig struct {
	HTTPClient *http.Client
	ReadLimit  int64
	Log        *zap.SugaredLogger
}

func (c *WebSocketConfig) orDefault() *WebSocketConfig {
	cfg := WebSocketConfig{}
	if c != nil {
		cfg = *c
	}
	if cfg.ReadLimit == 0 {
		cfg.ReadLimit = DefaultReadLimit
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop().Sugar()
	}
	return &cfg
}

// WebSocket sends each frame as one binary WebSocket message.
type WebSocket struct {
	conn *websocket.Conn
	log  *zap.SugaredLogger

	closeOnce sync.Once
	closeErr  error
}

func NewWebSocket(conn *websocket.Conn, cfg *WebSocketConfig) *WebSocket {
	cfg = cfg.orDefault()
	conn.SetReadLimit(cfg.ReadLimit)
	return &WebSocket{conn: conn, log: cfg.Log.Named("websocket")}
}

func DialWebSocket(ctx context.Context, url string, cfg *WebSocketConfig) (*WebSocket, error) {
	cfg = cfg.orDefault()
	cfg.Log.Debugw("dialing WebSocket", "URL", url)
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient:      cfg.HTTPClient,
		Subprotocols:    []string{Subprotocol},
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		return nil, fmt.Errorf("dialing WebSocket conn: %w", err)
	}
	return NewWebSocket(conn, cfg), nil
}

func AcceptWebSocket(w http.ResponseWriter, r *http.Request, cfg *WebSocketConfig) (*WebSocket, error) {
	cfg = cfg.orDefault()
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:    []string{Subprotocol},
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		return nil, fmt.Errorf("accepting WebSocket conn: %w", err)
	}
	return NewWebSocket(conn, cfg), nil
}

func (w *WebSocket) Read(ctx context.Context) ([]byte, error) {
	_, b, err := w.conn.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return nil, io.EOF
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	return b, nil
}

func (w *WebSocket) Write(ctx context.Context, frame []byte) error {
	return w.conn.Write(ctx, websocket.MessageBinary, frame)
}

func (w *WebSocket) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.conn.Close(websocket.StatusNormalClosure, "")
		if w.closeErr != nil {
			w.log.Debugf("error closing conn: %s", w.closeErr)
		}
	})
	return w.closeErr
}
