package network

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/cbodonnell/monuments/pkg/game/types"
	"github.com/cbodonnell/monuments/pkg/log"
	"github.com/cbodonnell/monuments/pkg/messages"
	"github.com/cbodonnell/monuments/pkg/metrics"
	"github.com/cbodonnell/monuments/pkg/queue"
)

const (
	// ClientIDMaxRetries represents the maximum number of retries when generating a unique ID
	ClientIDMaxRetries = 1024
)

// ErrClientExists is returned when registering an id that is already in use
var ErrClientExists = errors.New("client already registered")

// Client is the outbound side of a connected player: a queue of encoded frames
// drained by exactly one session.
type Client struct {
	ID       types.PlayerID
	outbound *queue.InMemoryQueue[[]byte]
}

// NewClient creates a client whose queue holds at most queueSize frames.
func NewClient(id types.PlayerID, queueSize int) *Client {
	return &Client{
		ID:       id,
		outbound: queue.NewInMemoryQueue[[]byte](queueSize),
	}
}

// Enqueue adds an encoded frame without blocking. A client that falls
// too far behind is closed.
func (c *Client) Enqueue(frame []byte) error {
	err := c.outbound.Enqueue(frame)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, queue.ErrQueueFull):
		metrics.SlowConsumers.Inc()
		metrics.DroppedMessages.Inc()
		log.Warn("Client %d is not keeping up with its messages, closing", c.ID)
		c.Close()
	default:
		metrics.DroppedMessages.Inc()
	}
	return err
}

// Next blocks until a frame is available. It returns queue.ErrQueueClosed
// once the client is closed and drained.
func (c *Client) Next(ctx context.Context) ([]byte, error) {
	return c.outbound.Dequeue(ctx)
}

// Close stops the client from accepting frames. Safe to call more than once.
func (c *Client) Close() {
	c.outbound.Close()
}

// ClientManager manages connected clients
type ClientManager struct {
	clients     map[types.PlayerID]*Client
	clientsLock sync.RWMutex
	queueSize   int
}

type NewClientManagerOptions struct {
	// QueueSize bounds each client's outbound queue. Zero means queue.DefaultMaxSize.
	QueueSize int
}

// NewClientManager creates a new ClientManager
func NewClientManager(opts NewClientManagerOptions) *ClientManager {
	return &ClientManager{
		clients:   make(map[types.PlayerID]*Client),
		queueSize: opts.QueueSize,
	}
}

// ConnectClient mints a new unique id and registers a client for it.
func (cm *ClientManager) ConnectClient() (*Client, error) {
	cm.clientsLock.Lock()
	defer cm.clientsLock.Unlock()

	clientID, err := cm.generateUniqueID(ClientIDMaxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to generate a unique ID: %v", err)
	}
	client := NewClient(clientID, cm.queueSize)
	cm.clients[clientID] = client

	return client, nil
}

// Register adds a client under id.
func (cm *ClientManager) Register(id types.PlayerID, client *Client) error {
	cm.clientsLock.Lock()
	defer cm.clientsLock.Unlock()

	if _, ok := cm.clients[id]; ok {
		return fmt.Errorf("%w: %d", ErrClientExists, id)
	}
	cm.clients[id] = client
	return nil
}

// Deregister removes a client from the manager and closes its queue
func (cm *ClientManager) Deregister(id types.PlayerID) {
	cm.clientsLock.Lock()
	client, ok := cm.clients[id]
	delete(cm.clients, id)
	cm.clientsLock.Unlock()

	if ok {
		client.Close()
	}
}

// GetClient returns the client registered under id
func (cm *ClientManager) GetClient(id types.PlayerID) (*Client, bool) {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	client, ok := cm.clients[id]
	return client, ok
}

// SendTo queues a message for a single client. Unknown ids are ignored.
func (cm *ClientManager) SendTo(id types.PlayerID, msg messages.Message) {
	client, ok := cm.GetClient(id)
	if !ok {
		log.Trace("Dropping %s for unknown client %d", msg.Type(), id)
		return
	}

	frame, err := messages.SerializeMessage(msg)
	if err != nil {
		log.Error("Failed to serialize %s: %v", msg.Type(), err)
		return
	}
	_ = client.Enqueue(frame)
}

// BroadcastAll queues a message for every connected client.
func (cm *ClientManager) BroadcastAll(msg messages.Message) {
	cm.broadcast(msg, func(types.PlayerID) bool { return true })
}

// BroadcastExcept queues a message for every connected client other than id.
func (cm *ClientManager) BroadcastExcept(id types.PlayerID, msg messages.Message) {
	cm.broadcast(msg, func(clientID types.PlayerID) bool { return clientID != id })
}

func (cm *ClientManager) broadcast(msg messages.Message, include func(types.PlayerID) bool) {
	frame, err := messages.SerializeMessage(msg)
	if err != nil {
		log.Error("Failed to serialize %s: %v", msg.Type(), err)
		return
	}

	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	for id, client := range cm.clients {
		if !include(id) {
			continue
		}
		_ = client.Enqueue(frame)
	}
}

// Count returns the number of registered clients, including sessions
// still running their connect handler
func (cm *ClientManager) Count() int {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	return len(cm.clients)
}

func (cm *ClientManager) Exists(id types.PlayerID) bool {
	cm.clientsLock.RLock()
	defer cm.clientsLock.RUnlock()
	_, ok := cm.clients[id]
	return ok
}

// generateUniqueID generates a unique client ID with a maximum number of retries
// it reads from the clients, so it needs to be locked before calling
func (cm *ClientManager) generateUniqueID(maxRetries int) (types.PlayerID, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		id := types.PlayerID(rand.Uint32())
		if id == 0 {
			continue
		}
		if _, ok := cm.clients[id]; !ok {
			return id, nil
		}
	}

	return 0, fmt.Errorf("failed to generate a unique ID after %d attempts", maxRetries)
}

// ScopedManager is a ClientManager bound to one client, for handlers that
// only ever address themselves or everyone else.
type ScopedManager struct {
	ID      types.PlayerID
	manager *ClientManager
}

func NewScopedManager(id types.PlayerID, manager *ClientManager) *ScopedManager {
	return &ScopedManager{
		ID:      id,
		manager: manager,
	}
}

func (s *ScopedManager) SendToSelf(msg messages.Message) {
	s.manager.SendTo(s.ID, msg)
}

func (s *ScopedManager) BroadcastExceptSelf(msg messages.Message) {
	s.manager.BroadcastExcept(s.ID, msg)
}

func (s *ScopedManager) BroadcastAll(msg messages.Message) {
	s.manager.BroadcastAll(msg)
}

// Manager returns the underlying ClientManager.
func (s *ScopedManager) Manager() *ClientManager {
	return s.manager
}
