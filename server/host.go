package server

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/guseggert/terminalwire/protocol"
	"github.com/guseggert/terminalwire/transport"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Host is an HTTP server that serves one Program to terminalwire clients.
// Clients connect to /terminal; /heartbeat reports liveness.
type Host struct {
	logger *zap.SugaredLogger

	program    Program
	listenAddr string
	codec      protocol.Codec
	certPEM    []byte
	keyPEM     []byte

	httpServer *http.Server
	listener   net.Listener
	ready      chan struct{}

	statsMut       sync.Mutex
	connections    int
	lastConnection time.Time
}

type HostOption func(h *Host)

func WithListenAddr(s string) HostOption {
	return func(h *Host) {
		h.listenAddr = s
	}
}

// WithTLS serves over TLS with the given certificate, so clients connect with wss.
func WithTLS(certPEM, keyPEM []byte) HostOption {
	return func(h *Host) {
		h.certPEM = certPEM
		h.keyPEM = keyPEM
	}
}

func WithCodec(c protocol.Codec) HostOption {
	return func(h *Host) {
		h.codec = c
	}
}

func WithHostLogger(l *zap.SugaredLogger) HostOption {
	return func(h *Host) {
		h.logger = l.Named("host")
	}
}

func WithLogLevel(l zapcore.Level) HostOption {
	return func(h *Host) {
		h.logger = h.logger.WithOptions(zap.IncreaseLevel(l))
	}
}

func NewHost(program Program, opts ...HostOption) *Host {
	h := &Host{
		logger:     zap.NewNop().Sugar(),
		program:    program,
		listenAddr: "127.0.0.1:3000",
		codec:      protocol.CBOR,
		ready:      make(chan struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Host) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/heartbeat", h.heartbeat)
	router.GET("/terminal", h.terminal)
	return router
}

// Run serves until Stop is called or ctx is done.
func (h *Host) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", h.listenAddr)
	if err != nil {
		return fmt.Errorf("listening TCP: %w", err)
	}
	if h.certPEM != nil {
		tlsConfig, err := transport.ServerTLSConfig(h.certPEM, h.keyPEM)
		if err != nil {
			listener.Close()
			return fmt.Errorf("building server TLS config: %w", err)
		}
		listener = tls.NewListener(listener, tlsConfig)
	}

	h.httpServer = &http.Server{
		Handler:     h.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	h.listener = listener
	close(h.ready)

	go func() {
		<-ctx.Done()
		h.httpServer.Close()
	}()

	h.logger.Infow("serving terminal", "Addr", listener.Addr().String())
	err = h.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr blocks until the host is listening and returns its address.
func (h *Host) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case <-h.ready:
		return h.listener.Addr(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Host) Stop() error {
	if h.httpServer == nil {
		return nil
	}
	return h.httpServer.Close()
}

func (h *Host) terminal(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.statsMut.Lock()
	h.connections++
	h.lastConnection = time.Now()
	h.statsMut.Unlock()
	defer func() {
		h.statsMut.Lock()
		h.connections--
		h.statsMut.Unlock()
	}()

	handler := &WebSocketHandler{Program: h.program, Log: h.logger, Codec: h.codec}
	handler.ServeHTTP(w, r)
}

type HeartbeatResponse struct {
	Connections    int
	LastConnection string `json:",omitempty"`
}

func (h *Host) heartbeat(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.statsMut.Lock()
	resp := HeartbeatResponse{Connections: h.connections}
	if !h.lastConnection.IsZero() {
		resp.LastConnection = h.lastConnection.UTC().Format(time.RFC3339)
	}
	h.statsMut.Unlock()

	b, err := json.Marshal(resp)
	if err != nil {
		h.logger.Debugf("error marshaling heartbeat response: %s", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	w.Write(b)
}
