package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cbodonnell/monuments/pkg/log"
	"github.com/cbodonnell/monuments/pkg/messages"
	"github.com/cbodonnell/monuments/pkg/queue"
	"nhooyr.io/websocket"
)

const (
	// MaxRecentRTTs is the number of ping samples kept for RTT estimates
	MaxRecentRTTs = 10
	// InboundQueueSize bounds the number of unread messages held by a client
	InboundQueueSize = 4096
)

// WSClient represents a WebSocket client of the world server.
type WSClient struct {
	serverAddr string
	conn       *websocket.Conn
	inbound    *queue.InMemoryQueue[messages.Message]
	closed     atomic.Bool

	errLock sync.Mutex
	readErr error

	rttLock    sync.Mutex
	pingSentAt time.Time
	recentRTTs []int64
}

// NewWSClient creates a new WebSocket client for a ws:// or wss:// address.
func NewWSClient(serverAddr string) *WSClient {
	return &WSClient{
		serverAddr: serverAddr,
		inbound:    queue.NewInMemoryQueue[messages.Message](InboundQueueSize),
	}
}

// Connect establishes a connection to the WebSocket server and starts reading.
func (c *WSClient) Connect(ctx context.Context) error {
	log.Debug("Connecting to WebSocket server at %s", c.serverAddr)
	conn, _, err := websocket.Dial(ctx, c.serverAddr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %v", err)
	}
	c.conn = conn
	go c.readLoop(conn)
	return nil
}

func (c *WSClient) readLoop(conn *websocket.Conn) {
	defer c.inbound.Close()
	for {
		typ, b, err := conn.Read(context.Background())
		if err != nil {
			c.errLock.Lock()
			c.readErr = err
			c.errLock.Unlock()
			log.Trace("Connection to %s closed: %v", c.serverAddr, err)
			return
		}
		if typ != websocket.MessageBinary {
			continue
		}

		msg, err := messages.DeserializeMessage(b)
		if err != nil {
			log.Warn("Failed to deserialize message: %v", err)
			continue
		}
		log.Trace("Received message from WebSocket server of type %s", msg.Type())

		if _, ok := msg.(*messages.Pong); ok {
			c.recordPong()
		}
		if err := c.inbound.Enqueue(msg); err != nil {
			log.Warn("Dropping %s: %v", msg.Type(), err)
		}
	}
}

// Next blocks until a message arrives from the server.
func (c *WSClient) Next(ctx context.Context) (messages.Message, error) {
	msg, err := c.inbound.Dequeue(ctx)
	if err != nil {
		if errors.Is(err, queue.ErrQueueClosed) {
			if c.closed.Load() {
				return nil, &ErrConnectionClosedByClient{}
			}
			c.errLock.Lock()
			defer c.errLock.Unlock()
			return nil, &ErrConnectionClosedByServer{Err: c.readErr}
		}
		return nil, err
	}
	return msg, nil
}

// SendMessage sends a message to the WebSocket server.
// It is safe for concurrent use.
func (c *WSClient) SendMessage(ctx context.Context, msg messages.Message) error {
	if c.conn == nil || c.closed.Load() {
		return &ErrConnectionClosedByClient{}
	}

	b, err := messages.SerializeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to serialize message: %v", err)
	}

	if err := c.conn.Write(ctx, websocket.MessageBinary, b); err != nil {
		return fmt.Errorf("failed to write message to WebSocket connection: %v", err)
	}

	return nil
}

// Ping sends a protocol ping. The matching pong updates RTT.
func (c *WSClient) Ping(ctx context.Context) error {
	c.rttLock.Lock()
	c.pingSentAt = time.Now()
	c.rttLock.Unlock()
	return c.SendMessage(ctx, &messages.Ping{})
}

func (c *WSClient) recordPong() {
	c.rttLock.Lock()
	defer c.rttLock.Unlock()
	if c.pingSentAt.IsZero() {
		return
	}
	c.recentRTTs = append(c.recentRTTs, time.Since(c.pingSentAt).Milliseconds())
	if len(c.recentRTTs) > MaxRecentRTTs {
		c.recentRTTs = c.recentRTTs[1:]
	}
	c.pingSentAt = time.Time{}
}

// RTT returns the median round trip time in milliseconds of recent pings.
func (c *WSClient) RTT() int64 {
	c.rttLock.Lock()
	defer c.rttLock.Unlock()
	return medianRTT(removeOutlierRTTs(c.recentRTTs))
}

// Close closes the WebSocket connection.
func (c *WSClient) Close() error {
	if c.conn == nil || !c.closed.CompareAndSwap(false, true) {
		log.Warn("WebSocket connection is already closed")
		return nil
	}
	return c.conn.Close(websocket.StatusNormalClosure, "")
}
