package messages

import (
	"errors"
	"testing"

	messagefb "github.com/cbodonnell/monuments/flatbuffers/message"
	"github.com/cbodonnell/monuments/pkg/game/types"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeMessage(t *testing.T) {
	tests := []struct {
		name    string
		message Message
	}{
		{name: "Ping", message: &Ping{}},
		{name: "Pong", message: &Pong{}},
		{name: "Connected", message: &Connected{ID: 42}},
		{
			name: "Welcome",
			message: &Welcome{Data: types.PlayerData{
				ID:       7,
				Balance:  3,
				Position: types.Coordinate{X: -10, Y: 20},
			}},
		},
		{name: "PlayerPosition", message: &PlayerPosition{Coordinate: types.Coordinate{X: 1, Y: -1}}},
		{name: "PlayerPosition at origin", message: &PlayerPosition{Coordinate: types.Coordinate{}}},
		{name: "EnemyPosition", message: &EnemyPosition{ID: 9, Coordinate: types.Coordinate{X: 100, Y: 200}}},
		{name: "EnemyDisconnected", message: &EnemyDisconnected{ID: 4294967295}},
		{
			name:    "MainPlayerSpawn",
			message: &MainPlayerSpawn{Data: types.PlayerData{ID: 1, Position: types.Coordinate{X: 5, Y: 5}}},
		},
		{
			name:    "EnemyPlayerSpawn",
			message: &EnemyPlayerSpawn{Data: types.PlayerData{ID: 2, Balance: 12}},
		},
		{name: "BuildMonumentRequest", message: &BuildMonumentRequest{Prompt: "a tall lighthouse"}},
		{name: "BuildMonumentRequest with empty prompt", message: &BuildMonumentRequest{}},
		{
			name: "BuildMonument pending",
			message: &BuildMonument{Monument: types.Monument{
				ID:                3,
				Description:       "a stone arch",
				Position:          types.Coordinate{X: 12, Y: 22},
				UnderConstruction: true,
			}},
		},
		{
			name: "BuildMonument complete",
			message: &BuildMonument{Monument: types.Monument{
				ID:          4,
				Description: "a windmill",
				Asset:       "http://127.0.0.1:3000/assets/4.png",
				Position:    types.Coordinate{X: -3, Y: 0},
			}},
		},
		{name: "MonumentCompleted", message: &MonumentCompleted{ID: 3, Asset: "http://127.0.0.1:3000/assets/3.png"}},
		{name: "TokenPickup", message: &TokenPickup{}},
		{name: "MainPlayerCurrentBalance", message: &MainPlayerCurrentBalance{Balance: 5}},
		{name: "BuildMonumentFailed", message: &BuildMonumentFailed{Prompt: "a castle", Reason: "insufficient balance"}},
		{name: "Unicode prompt", message: &BuildMonumentRequest{Prompt: "城 with a moat 🏰"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := SerializeMessage(tt.message)
			require.NoError(t, err)
			require.NotEmpty(t, b)

			got, err := DeserializeMessage(b)
			require.NoError(t, err)
			assert.Equal(t, tt.message, got)
			assert.Equal(t, tt.message.Type(), got.Type())
		})
	}
}

func TestSerializeMessageDeterministic(t *testing.T) {
	m := &BuildMonument{Monument: types.Monument{
		ID:                11,
		Description:       "a clock tower",
		Position:          types.Coordinate{X: 2, Y: 2},
		UnderConstruction: true,
	}}

	first, err := SerializeMessage(m)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		next, err := SerializeMessage(m)
		require.NoError(t, err)
		assert.Equal(t, first, next)
	}
}

type unsupportedMessage struct{}

func (*unsupportedMessage) Type() MessageType { return MessageType(200) }

func TestSerializeMessageUnknownType(t *testing.T) {
	_, err := SerializeMessage(&unsupportedMessage{})
	assert.True(t, errors.Is(err, ErrUnknownMessageType))
}

func TestDeserializeMessageErrors(t *testing.T) {
	unknown, err := SerializeMessage(&Ping{})
	require.NoError(t, err)
	raw, err := decoder.DecodeAll(unknown, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty frame", data: []byte{}, wantErr: ErrMalformedMessage},
		{name: "not compressed", data: raw, wantErr: ErrMalformedMessage},
		{name: "garbage", data: []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01}, wantErr: ErrMalformedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeserializeMessage(tt.data)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, tt.wantErr), "got error %v", err)
		})
	}
}

func TestDeserializeMessageFlatbufferErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "too short", data: []byte{0x01}, wantErr: ErrMalformedMessage},
		{name: "root offset out of range", data: []byte{0xff, 0xff, 0x00, 0x00}, wantErr: ErrMalformedMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeserializeMessageFlatbuffer(tt.data)
			assert.Nil(t, got)
			assert.True(t, errors.Is(err, tt.wantErr), "got error %v", err)
		})
	}
}

func TestDeserializeMessageUnknownTag(t *testing.T) {
	builder := flatbuffers.NewBuilder(0)
	messagefb.MessageStart(builder)
	messagefb.MessageAddType(builder, 99)
	messagefb.MessageAddBalance(builder, 77)
	builder.Finish(messagefb.MessageEnd(builder))

	_, err := DeserializeMessage(encoder.EncodeAll(builder.FinishedBytes(), nil))
	assert.True(t, errors.Is(err, ErrUnknownMessageType), "got error %v", err)
}

func TestMessageTypeString(t *testing.T) {
	assert.Equal(t, "BuildMonumentRequest", MessageTypeBuildMonumentRequest.String())
	assert.Equal(t, "MessageType(99)", MessageType(99).String())
}
