package network

import (
	"context"

	"github.com/cbodonnell/monuments/pkg/messages"
)

// ConnectHandler runs once a session is registered, before any inbound
// message is read. Returning an error ends the session.
type ConnectHandler func(ctx context.Context, scope *ScopedManager) error

// MessageHandler runs for every decoded inbound message, in arrival order.
type MessageHandler func(ctx context.Context, scope *ScopedManager, msg messages.Message)

// DisconnectHandler runs once after both pumps of a session have stopped
// and the client has been deregistered.
type DisconnectHandler func(ctx context.Context, scope *ScopedManager)

// Handlers is the set of callbacks a WSServer drives for every session.
type Handlers struct {
	Connect    ConnectHandler
	Message    MessageHandler
	Disconnect DisconnectHandler
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}
