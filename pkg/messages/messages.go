package messages

import (
	"fmt"

	"github.com/cbodonnell/monuments/pkg/game/types"
)

// MessageType is the wire discriminant of a message.
// Values are part of the protocol and must never be reused.
type MessageType byte

const (
	MessageTypePing                     MessageType = 1
	MessageTypePong                     MessageType = 2
	MessageTypeConnected                MessageType = 3
	MessageTypeWelcome                  MessageType = 4
	MessageTypePlayerPosition           MessageType = 5
	MessageTypeEnemyPosition            MessageType = 6
	MessageTypeEnemyDisconnected        MessageType = 7
	MessageTypeMainPlayerSpawn          MessageType = 8
	MessageTypeEnemyPlayerSpawn         MessageType = 9
	MessageTypeBuildMonumentRequest     MessageType = 10
	MessageTypeBuildMonument            MessageType = 11
	MessageTypeMonumentCompleted        MessageType = 12
	MessageTypeTokenPickup              MessageType = 13
	MessageTypeMainPlayerCurrentBalance MessageType = 14
	MessageTypeBuildMonumentFailed      MessageType = 15
)

func (t MessageType) String() string {
	switch t {
	case MessageTypePing:
		return "Ping"
	case MessageTypePong:
		return "Pong"
	case MessageTypeConnected:
		return "Connected"
	case MessageTypeWelcome:
		return "Welcome"
	case MessageTypePlayerPosition:
		return "PlayerPosition"
	case MessageTypeEnemyPosition:
		return "EnemyPosition"
	case MessageTypeEnemyDisconnected:
		return "EnemyDisconnected"
	case MessageTypeMainPlayerSpawn:
		return "MainPlayerSpawn"
	case MessageTypeEnemyPlayerSpawn:
		return "EnemyPlayerSpawn"
	case MessageTypeBuildMonumentRequest:
		return "BuildMonumentRequest"
	case MessageTypeBuildMonument:
		return "BuildMonument"
	case MessageTypeMonumentCompleted:
		return "MonumentCompleted"
	case MessageTypeTokenPickup:
		return "TokenPickup"
	case MessageTypeMainPlayerCurrentBalance:
		return "MainPlayerCurrentBalance"
	case MessageTypeBuildMonumentFailed:
		return "BuildMonumentFailed"
	default:
		return fmt.Sprintf("MessageType(%d)", byte(t))
	}
}

// Message is one frame of the protocol. The set of implementations is closed.
type Message interface {
	Type() MessageType
}

// Ping is a client heartbeat.
type Ping struct{}

// Pong answers a Ping.
type Pong struct{}

// Connected is announced by a client after the socket opens.
type Connected struct {
	ID types.PlayerID
}

// Welcome carries the initial snapshot of the receiving player.
type Welcome struct {
	Data types.PlayerData
}

// PlayerPosition is a client reporting its own position.
type PlayerPosition struct {
	Coordinate types.Coordinate
}

// EnemyPosition is the position of another player.
type EnemyPosition struct {
	ID         types.PlayerID
	Coordinate types.Coordinate
}

// EnemyDisconnected announces that another player left.
type EnemyDisconnected struct {
	ID types.PlayerID
}

// MainPlayerSpawn is the spawn snapshot of the receiving player.
type MainPlayerSpawn struct {
	Data types.PlayerData
}

// EnemyPlayerSpawn is the spawn snapshot of another player.
type EnemyPlayerSpawn struct {
	Data types.PlayerData
}

// BuildMonumentRequest asks the server to generate a monument from a prompt.
type BuildMonumentRequest struct {
	Prompt string
}

// BuildMonument announces a monument, pending or complete.
type BuildMonument struct {
	Monument types.Monument
}

// MonumentCompleted announces that a monument's asset is available.
type MonumentCompleted struct {
	ID    types.MonumentID
	Asset string
}

// TokenPickup is a client reporting that it collected a token.
type TokenPickup struct{}

// MainPlayerCurrentBalance is the token balance of the receiving player.
type MainPlayerCurrentBalance struct {
	Balance uint32
}

// BuildMonumentFailed tells the requester that a build request was not carried out.
type BuildMonumentFailed struct {
	Prompt string
	Reason string
}

func (*Ping) Type() MessageType                     { return MessageTypePing }
func (*Pong) Type() MessageType                     { return MessageTypePong }
func (*Connected) Type() MessageType                { return MessageTypeConnected }
func (*Welcome) Type() MessageType                  { return MessageTypeWelcome }
func (*PlayerPosition) Type() MessageType           { return MessageTypePlayerPosition }
func (*EnemyPosition) Type() MessageType            { return MessageTypeEnemyPosition }
func (*EnemyDisconnected) Type() MessageType        { return MessageTypeEnemyDisconnected }
func (*MainPlayerSpawn) Type() MessageType          { return MessageTypeMainPlayerSpawn }
func (*EnemyPlayerSpawn) Type() MessageType         { return MessageTypeEnemyPlayerSpawn }
func (*BuildMonumentRequest) Type() MessageType     { return MessageTypeBuildMonumentRequest }
func (*BuildMonument) Type() MessageType            { return MessageTypeBuildMonument }
func (*MonumentCompleted) Type() MessageType        { return MessageTypeMonumentCompleted }
func (*TokenPickup) Type() MessageType              { return MessageTypeTokenPickup }
func (*MainPlayerCurrentBalance) Type() MessageType { return MessageTypeMainPlayerCurrentBalance }
func (*BuildMonumentFailed) Type() MessageType      { return MessageTypeBuildMonumentFailed }
