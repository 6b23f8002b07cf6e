package network

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cbodonnell/monuments/pkg/log"
	"github.com/cbodonnell/monuments/pkg/messages"
	"github.com/cbodonnell/monuments/pkg/metrics"
	"github.com/cbodonnell/monuments/pkg/queue"
	"github.com/gorilla/websocket"
)

// SessionState is the lifecycle stage of a Session.
type SessionState int32

const (
	SessionStateConnecting SessionState = iota
	SessionStateActive
	SessionStateDisconnecting
	SessionStateClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionStateConnecting:
		return "connecting"
	case SessionStateActive:
		return "active"
	case SessionStateDisconnecting:
		return "disconnecting"
	case SessionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session drives one websocket connection: registration, an inbound pump
// that decodes and dispatches frames, an outbound pump that drains the
// client's queue, and cleanup once either pump stops.
type Session struct {
	conn          *websocket.Conn
	clientManager *ClientManager
	handlers      Handlers
	transport     transportConfig
	state         atomic.Int32
	closeOnce     sync.Once
}

func NewSession(conn *websocket.Conn, clientManager *ClientManager, handlers Handlers, transport transportConfig) *Session {
	return &Session{
		conn:          conn,
		clientManager: clientManager,
		handlers:      handlers,
		transport:     transport,
	}
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

func (s *Session) setState(state SessionState) {
	s.state.Store(int32(state))
}

// Run blocks until the session is closed.
func (s *Session) Run(ctx context.Context) {
	s.setState(SessionStateConnecting)
	// registered while Connecting so onboarding can send through the registry
	client, err := s.clientManager.ConnectClient()
	if err != nil {
		log.Error("Failed to connect client from %s: %v", s.conn.RemoteAddr().String(), err)
		s.close(websocket.CloseTryAgainLater)
		s.setState(SessionStateClosed)
		return
	}
	scope := NewScopedManager(client.ID, s.clientManager)
	metrics.SessionsOpened.Inc()
	log.Info("Client %d connected from %s", client.ID, s.conn.RemoteAddr().String())

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.handlers.Connect != nil {
		if err := s.handlers.Connect(sessionCtx, scope); err != nil {
			log.Error("Failed to handle connect for client %d: %v", client.ID, err)
			s.clientManager.Deregister(client.ID)
			s.close(websocket.CloseInternalServerErr)
			metrics.SessionsClosed.Inc()
			s.setState(SessionStateClosed)
			return
		}
	}
	s.setState(SessionStateActive)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		s.readPump(sessionCtx, scope)
	}()
	go func() {
		defer wg.Done()
		defer cancel()
		s.writePump(sessionCtx, client)
	}()
	wg.Wait()

	s.setState(SessionStateDisconnecting)
	s.clientManager.Deregister(client.ID)
	if s.handlers.Disconnect != nil {
		// the session context is already cancelled
		s.handlers.Disconnect(context.WithoutCancel(ctx), scope)
	}
	metrics.SessionsClosed.Inc()
	s.setState(SessionStateClosed)
	log.Info("Client %d disconnected", client.ID)
}

func (s *Session) readPump(ctx context.Context, scope *ScopedManager) {
	// unblocks ReadMessage when the outbound side stops first
	defer s.close(websocket.CloseNormalClosure)

	s.conn.SetReadLimit(s.transport.maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.transport.pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.transport.pongWait))
	})

	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) && ctx.Err() == nil {
				log.Debug("Error reading from client %d: %v", scope.ID, err)
			}
			log.Trace("Connection closed for client %d", scope.ID)
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(s.transport.pongWait))

		if messageType != websocket.BinaryMessage {
			log.Trace("Ignoring non-binary frame from client %d", scope.ID)
			continue
		}
		metrics.FramesIn.Inc()

		msg, err := messages.DeserializeMessage(data)
		if err != nil {
			metrics.DecodeErrors.Inc()
			log.Debug("Dropping frame from client %d: %v", scope.ID, err)
			continue
		}
		log.Trace("Received %s from client %d", msg.Type(), scope.ID)

		if s.handlers.Message != nil {
			s.handlers.Message(ctx, scope, msg)
		}
	}
}

func (s *Session) writePump(ctx context.Context, client *Client) {
	defer s.close(websocket.CloseNormalClosure)

	go s.pingLoop(ctx)

	for {
		frame, err := client.Next(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) {
				log.Trace("Outbound queue closed for client %d", client.ID)
			}
			return
		}

		s.conn.SetWriteDeadline(time.Now().Add(s.transport.writeWait))
		if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			log.Debug("Failed to write to client %d: %v", client.ID, err)
			return
		}
		metrics.FramesOut.Inc()
	}
}

// pingLoop keeps the read deadline of a healthy peer from expiring.
// WriteControl may be called concurrently with WriteMessage.
func (s *Session) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.transport.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.transport.writeWait)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Trace("Failed to ping: %v", err)
				return
			}
		}
	}
}

// close sends a close frame and closes the connection once.
func (s *Session) close(code int) {
	s.closeOnce.Do(func() {
		deadline := time.Now().Add(s.transport.writeWait)
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""), deadline)
		_ = s.conn.Close()
	})
}
