package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cbodonnell/monuments/pkg/log"
	"github.com/gorilla/websocket"
)

const (
	// DefaultMaxMessageSize is the largest inbound frame accepted from a client
	DefaultMaxMessageSize = 64 * 1024
	// DefaultWriteWait is the time allowed to write a frame to a client
	DefaultWriteWait = 10 * time.Second
	// DefaultPongWait is the time allowed between frames or pongs from a client
	DefaultPongWait = 60 * time.Second
	// DefaultPingPeriod must be less than DefaultPongWait
	DefaultPingPeriod = 30 * time.Second
)

// WSServer represents a WebSocket server.
type WSServer struct {
	port          int
	tls           *TLSConfig
	clientManager *ClientManager
	handlers      Handlers
	transport     transportConfig
	upgrader      websocket.Upgrader

	server *http.Server
	// ctx is the parent of every session and is cancelled by Stop
	ctx      context.Context
	cancel   context.CancelFunc
	lock     sync.Mutex
	stopped  bool
	sessions sync.WaitGroup
}

type NewWSServerOptions struct {
	Port          int
	TLS           *TLSConfig
	ClientManager *ClientManager
	Handlers      Handlers

	// Zero values use the Default* constants.
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
}

type transportConfig struct {
	maxMessageSize int64
	writeWait      time.Duration
	pongWait       time.Duration
	pingPeriod     time.Duration
}

// NewWSServer creates a new WebSocket server.
func NewWSServer(opts NewWSServerOptions) *WSServer {
	transport := transportConfig{
		maxMessageSize: opts.MaxMessageSize,
		writeWait:      opts.WriteWait,
		pongWait:       opts.PongWait,
		pingPeriod:     opts.PingPeriod,
	}
	if transport.maxMessageSize <= 0 {
		transport.maxMessageSize = DefaultMaxMessageSize
	}
	if transport.writeWait <= 0 {
		transport.writeWait = DefaultWriteWait
	}
	if transport.pongWait <= 0 {
		transport.pongWait = DefaultPongWait
	}
	if transport.pingPeriod <= 0 || transport.pingPeriod >= transport.pongWait {
		transport.pingPeriod = transport.pongWait / 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &WSServer{
		port:          opts.Port,
		tls:           opts.TLS,
		clientManager: opts.ClientManager,
		handlers:      opts.Handlers,
		transport:     transport,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		ctx:    ctx,
		cancel: cancel,
	}

	mux := http.NewServeMux()
	mux.Handle("/", s)
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	return s
}

// Start starts the WebSocket server. It blocks until the server is stopped.
func (s *WSServer) Start() error {
	var listenAndServe func() error
	if s.tls != nil {
		log.Info("WebSocket server listening on %s with TLS", s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("WebSocket server listening on %s", s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("WebSocket server closed")
			return nil
		}
		return fmt.Errorf("websocket server error: %v", err)
	}
	return nil
}

// Stop closes the listener, ends every session and waits for their cleanup
// until ctx is done.
func (s *WSServer) Stop(ctx context.Context) error {
	err := s.server.Shutdown(ctx)

	s.lock.Lock()
	s.stopped = true
	s.lock.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("failed to close sessions: %v", ctx.Err())
	}

	if err != nil {
		return fmt.Errorf("failed to shutdown websocket server: %v", err)
	}
	return nil
}

// ServeHTTP upgrades the request and runs the session until it closes.
func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket: %v", err)
		return
	}
	log.Debug("New WebSocket connection from %s", conn.RemoteAddr().String())

	s.lock.Lock()
	if s.stopped {
		s.lock.Unlock()
		conn.Close()
		return
	}
	s.sessions.Add(1)
	s.lock.Unlock()
	defer s.sessions.Done()

	session := NewSession(conn, s.clientManager, s.handlers, s.transport)
	session.Run(s.ctx)
}
