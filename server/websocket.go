package server

import (
	"net/http"
	"strings"

	"github.com/guseggert/terminalwire/protocol"
	"github.com/guseggert/terminalwire/transport"
	"go.uber.org/zap"
)

// WebSocketHandler serves Program to every client that connects over WebSocket.
type WebSocketHandler struct {
	Program Program
	Log     *zap.SugaredLogger
	// Codec defaults to CBOR.
	Codec protocol.Codec
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if !strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Connect via WebSockets"))
		return
	}

	ws, err := transport.AcceptWebSocket(w, r, &transport.WebSocketConfig{Log: log})
	if err != nil {
		log.Debugw("accepting WebSocket", "Error", err)
		return
	}
	adapter := protocol.NewAdapter(ws, protocol.WithCodec(h.Codec), protocol.WithLogger(log))
	defer adapter.Close()

	if err := Serve(r.Context(), adapter, h.Program, WithLogger(log)); err != nil {
		log.Debugw("serving client", "RemoteAddr", r.RemoteAddr, "Error", err)
	}
}
