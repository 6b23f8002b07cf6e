package messages

import (
	"errors"
	"fmt"

	messagefb "github.com/cbodonnell/monuments/flatbuffers/message"
	"github.com/cbodonnell/monuments/pkg/game/types"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
)

const (
	// MaxDecodedSize bounds the decompressed size of a single frame
	MaxDecodedSize = 1 << 20
)

var (
	// ErrUnknownMessageType is returned for a frame or value whose type is not part of the protocol
	ErrUnknownMessageType = errors.New("unknown message type")
	// ErrMalformedMessage is returned for a frame that cannot be decoded
	ErrMalformedMessage = errors.New("malformed message")
)

// EncodeAll and DecodeAll are safe for concurrent use.
var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
	}
	decoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxDecodedSize))
	if err != nil {
		panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
	}
}

// SerializeMessage encodes a message into a compressed binary frame.
// Equal messages always produce identical frames.
func SerializeMessage(m Message) ([]byte, error) {
	b, err := SerializeMessageFlatbuffer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize message: %w", err)
	}

	return encoder.EncodeAll(b, make([]byte, 0, len(b))), nil
}

// DeserializeMessage decodes a frame produced by SerializeMessage.
func DeserializeMessage(data []byte) (Message, error) {
	b, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decompress message: %v", ErrMalformedMessage, err)
	}

	message, err := DeserializeMessageFlatbuffer(b)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize message: %w", err)
	}

	return message, nil
}

func SerializeMessageFlatbuffer(m Message) ([]byte, error) {
	builder := flatbuffers.NewBuilder(0)

	// strings and nested tables must be built before the message table is started
	var (
		playerID, balance, monumentID uint32
		player, monument              flatbuffers.UOffsetT
		prompt, asset, reason         flatbuffers.UOffsetT
		coordinate                    *types.Coordinate
	)

	switch msg := m.(type) {
	case *Ping, *Pong, *TokenPickup:
	case *Connected:
		playerID = uint32(msg.ID)
	case *Welcome:
		player = serializePlayerDataFlatbuffer(builder, msg.Data)
	case *PlayerPosition:
		coordinate = &msg.Coordinate
	case *EnemyPosition:
		playerID = uint32(msg.ID)
		coordinate = &msg.Coordinate
	case *EnemyDisconnected:
		playerID = uint32(msg.ID)
	case *MainPlayerSpawn:
		player = serializePlayerDataFlatbuffer(builder, msg.Data)
	case *EnemyPlayerSpawn:
		player = serializePlayerDataFlatbuffer(builder, msg.Data)
	case *BuildMonumentRequest:
		prompt = builder.CreateString(msg.Prompt)
	case *BuildMonument:
		monument = serializeMonumentFlatbuffer(builder, msg.Monument)
	case *MonumentCompleted:
		monumentID = uint32(msg.ID)
		asset = builder.CreateString(msg.Asset)
	case *MainPlayerCurrentBalance:
		balance = msg.Balance
	case *BuildMonumentFailed:
		prompt = builder.CreateString(msg.Prompt)
		reason = builder.CreateString(msg.Reason)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessageType, m)
	}

	messagefb.MessageStart(builder)
	messagefb.MessageAddType(builder, byte(m.Type()))
	messagefb.MessageAddPlayerId(builder, playerID)
	messagefb.MessageAddBalance(builder, balance)
	messagefb.MessageAddMonumentId(builder, monumentID)
	if player != 0 {
		messagefb.MessageAddPlayer(builder, player)
	}
	if monument != 0 {
		messagefb.MessageAddMonument(builder, monument)
	}
	if prompt != 0 {
		messagefb.MessageAddPrompt(builder, prompt)
	}
	if asset != 0 {
		messagefb.MessageAddAsset(builder, asset)
	}
	if reason != 0 {
		messagefb.MessageAddReason(builder, reason)
	}
	if coordinate != nil {
		messagefb.MessageAddCoordinate(builder, messagefb.CreateCoordinate(builder, coordinate.X, coordinate.Y))
	}
	messageOffset := messagefb.MessageEnd(builder)
	builder.Finish(messageOffset)

	return builder.FinishedBytes(), nil
}

// DeserializeMessageFlatbuffer decodes an uncompressed message buffer.
// Out-of-bounds offsets in a corrupt buffer surface as ErrMalformedMessage.
func DeserializeMessageFlatbuffer(b []byte) (m Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = fmt.Errorf("%w: %v", ErrMalformedMessage, r)
		}
	}()

	if len(b) < flatbuffers.SizeUOffsetT {
		return nil, fmt.Errorf("%w: buffer too short", ErrMalformedMessage)
	}

	fb := messagefb.GetRootAsMessage(b, 0)
	t := MessageType(fb.Type())
	switch t {
	case MessageTypePing:
		return &Ping{}, nil
	case MessageTypePong:
		return &Pong{}, nil
	case MessageTypeTokenPickup:
		return &TokenPickup{}, nil
	case MessageTypeConnected:
		return &Connected{ID: types.PlayerID(fb.PlayerId())}, nil
	case MessageTypeWelcome:
		data, err := deserializePlayerDataFlatbuffer(fb.Player(nil))
		if err != nil {
			return nil, err
		}
		return &Welcome{Data: data}, nil
	case MessageTypePlayerPosition:
		coordinate, err := deserializeCoordinateFlatbuffer(fb.Coordinate(nil))
		if err != nil {
			return nil, err
		}
		return &PlayerPosition{Coordinate: coordinate}, nil
	case MessageTypeEnemyPosition:
		coordinate, err := deserializeCoordinateFlatbuffer(fb.Coordinate(nil))
		if err != nil {
			return nil, err
		}
		return &EnemyPosition{ID: types.PlayerID(fb.PlayerId()), Coordinate: coordinate}, nil
	case MessageTypeEnemyDisconnected:
		return &EnemyDisconnected{ID: types.PlayerID(fb.PlayerId())}, nil
	case MessageTypeMainPlayerSpawn:
		data, err := deserializePlayerDataFlatbuffer(fb.Player(nil))
		if err != nil {
			return nil, err
		}
		return &MainPlayerSpawn{Data: data}, nil
	case MessageTypeEnemyPlayerSpawn:
		data, err := deserializePlayerDataFlatbuffer(fb.Player(nil))
		if err != nil {
			return nil, err
		}
		return &EnemyPlayerSpawn{Data: data}, nil
	case MessageTypeBuildMonumentRequest:
		return &BuildMonumentRequest{Prompt: string(fb.Prompt())}, nil
	case MessageTypeBuildMonument:
		monument, err := deserializeMonumentFlatbuffer(fb.Monument(nil))
		if err != nil {
			return nil, err
		}
		return &BuildMonument{Monument: monument}, nil
	case MessageTypeMonumentCompleted:
		return &MonumentCompleted{ID: types.MonumentID(fb.MonumentId()), Asset: string(fb.Asset())}, nil
	case MessageTypeMainPlayerCurrentBalance:
		return &MainPlayerCurrentBalance{Balance: fb.Balance()}, nil
	case MessageTypeBuildMonumentFailed:
		return &BuildMonumentFailed{Prompt: string(fb.Prompt()), Reason: string(fb.Reason())}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, byte(t))
	}
}

func serializePlayerDataFlatbuffer(builder *flatbuffers.Builder, data types.PlayerData) flatbuffers.UOffsetT {
	messagefb.PlayerDataStart(builder)
	messagefb.PlayerDataAddId(builder, uint32(data.ID))
	messagefb.PlayerDataAddBalance(builder, data.Balance)
	messagefb.PlayerDataAddPosition(builder, messagefb.CreateCoordinate(builder, data.Position.X, data.Position.Y))
	return messagefb.PlayerDataEnd(builder)
}

func deserializePlayerDataFlatbuffer(fb *messagefb.PlayerData) (types.PlayerData, error) {
	if fb == nil {
		return types.PlayerData{}, fmt.Errorf("%w: missing player data", ErrMalformedMessage)
	}
	position, err := deserializeCoordinateFlatbuffer(fb.Position(nil))
	if err != nil {
		return types.PlayerData{}, err
	}
	return types.PlayerData{
		ID:       types.PlayerID(fb.Id()),
		Balance:  fb.Balance(),
		Position: position,
	}, nil
}

func serializeMonumentFlatbuffer(builder *flatbuffers.Builder, monument types.Monument) flatbuffers.UOffsetT {
	description := builder.CreateString(monument.Description)
	asset := builder.CreateString(monument.Asset)

	messagefb.MonumentStart(builder)
	messagefb.MonumentAddId(builder, uint32(monument.ID))
	messagefb.MonumentAddDescription(builder, description)
	messagefb.MonumentAddAsset(builder, asset)
	messagefb.MonumentAddUnderConstruction(builder, monument.UnderConstruction)
	messagefb.MonumentAddPosition(builder, messagefb.CreateCoordinate(builder, monument.Position.X, monument.Position.Y))
	return messagefb.MonumentEnd(builder)
}

func deserializeMonumentFlatbuffer(fb *messagefb.Monument) (types.Monument, error) {
	if fb == nil {
		return types.Monument{}, fmt.Errorf("%w: missing monument", ErrMalformedMessage)
	}
	position, err := deserializeCoordinateFlatbuffer(fb.Position(nil))
	if err != nil {
		return types.Monument{}, err
	}
	return types.Monument{
		ID:                types.MonumentID(fb.Id()),
		Description:       string(fb.Description()),
		Asset:             string(fb.Asset()),
		Position:          position,
		UnderConstruction: fb.UnderConstruction(),
	}, nil
}

func deserializeCoordinateFlatbuffer(fb *messagefb.Coordinate) (types.Coordinate, error) {
	if fb == nil {
		return types.Coordinate{}, fmt.Errorf("%w: missing coordinate", ErrMalformedMessage)
	}
	return types.Coordinate{X: fb.X(), Y: fb.Y()}, nil
}
