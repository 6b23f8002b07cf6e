package game

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	mocks "github.com/cbodonnell/monuments/mocks/github.com/cbodonnell/monuments/pkg/generation"
	"github.com/cbodonnell/monuments/pkg/game/constants"
	"github.com/cbodonnell/monuments/pkg/game/types"
	"github.com/cbodonnell/monuments/pkg/messages"
	"github.com/cbodonnell/monuments/pkg/network"
	"github.com/cbodonnell/monuments/pkg/state"
	"github.com/cbodonnell/monuments/pkg/workers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testPlayer struct {
	scope  *network.ScopedManager
	client *network.Client
}

type testGame struct {
	world  *state.World
	cm     *network.ClientManager
	gm     *GameManager
	builds chan workers.BuildMonumentRequest
}

func newTestGame(t *testing.T, opts NewGameManagerOptions) *testGame {
	t.Helper()
	g := &testGame{
		world:  state.NewWorld(nil),
		cm:     network.NewClientManager(network.NewClientManagerOptions{}),
		builds: make(chan workers.BuildMonumentRequest, 8),
	}
	opts.World = g.world
	opts.ClientManager = g.cm
	if opts.BuildMonumentChan == nil {
		opts.BuildMonumentChan = g.builds
	}
	g.gm = NewGameManager(opts)
	return g
}

func (g *testGame) connect(t *testing.T) testPlayer {
	t.Helper()
	client, err := g.cm.ConnectClient()
	require.NoError(t, err)
	scope := network.NewScopedManager(client.ID, g.cm)
	require.NoError(t, g.gm.HandleConnect(context.Background(), scope))
	return testPlayer{scope: scope, client: client}
}

func (g *testGame) disconnect(p testPlayer) {
	g.cm.Deregister(p.scope.ID)
	g.gm.HandleDisconnect(context.Background(), p.scope)
}

func (g *testGame) send(p testPlayer, msg messages.Message) {
	g.gm.HandleMessage(context.Background(), p.scope, msg)
}

func (g *testGame) worker(gateway *mocks.Gateway) *workers.BuildMonumentWorker {
	return workers.NewBuildMonumentWorker(workers.NewBuildMonumentWorkerOptions{
		World:         g.world,
		ClientManager: g.cm,
		Gateway:       gateway,
		Timeout:       time.Second,
	})
}

func (g *testGame) nextBuild(t *testing.T) workers.BuildMonumentRequest {
	t.Helper()
	select {
	case req := <-g.builds:
		return req
	case <-time.After(time.Second):
		t.Fatal("no build request queued")
		return workers.BuildMonumentRequest{}
	}
}

func next(t *testing.T, p testPlayer) messages.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	frame, err := p.client.Next(ctx)
	require.NoError(t, err)
	msg, err := messages.DeserializeMessage(frame)
	require.NoError(t, err)
	return msg
}

func assertNoMessage(t *testing.T, p testPlayer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	frame, err := p.client.Next(ctx)
	if err == nil {
		msg, _ := messages.DeserializeMessage(frame)
		t.Fatalf("unexpected message %#v", msg)
	}
}

// drain discards everything queued for p.
func drain(p testPlayer) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, err := p.client.Next(ctx)
		cancel()
		if err != nil {
			return
		}
	}
}

func (g *testGame) fund(t *testing.T, p testPlayer, tokens int) {
	t.Helper()
	for i := 0; i < tokens; i++ {
		g.send(p, &messages.TokenPickup{})
	}
	drain(p)
}

func TestGameManager_HandleConnect(t *testing.T) {
	g := newTestGame(t, NewGameManagerOptions{})
	monument := types.Monument{ID: 9, Description: "a statue", Asset: "statue.png", Position: types.Coordinate{X: 3, Y: 3}}
	g.world.AddMonument(monument)

	a := g.connect(t)
	drain(a)
	g.send(a, &messages.PlayerPosition{Coordinate: types.Coordinate{X: 7, Y: 1}})

	b := g.connect(t)
	want := types.PlayerData{ID: b.scope.ID, Balance: 0, Position: types.Coordinate{}}
	assert.Equal(t, &messages.Welcome{Data: want}, next(t, b))
	assert.Equal(t, &messages.MainPlayerSpawn{Data: want}, next(t, b))
	assert.Equal(t, &messages.EnemyPlayerSpawn{Data: types.PlayerData{ID: a.scope.ID, Position: types.Coordinate{X: 7, Y: 1}}}, next(t, b))
	assert.Equal(t, &messages.BuildMonument{Monument: monument}, next(t, b))
	assertNoMessage(t, b)

	assert.Equal(t, &messages.EnemyPlayerSpawn{Data: want}, next(t, a))
	assertNoMessage(t, a)
}

func TestGameManager_HandleMessage(t *testing.T) {
	tests := []struct {
		name      string
		msg       messages.Message
		wantSelf  []messages.Message
		wantOther []messages.Message
	}{
		{
			name:     "ping",
			msg:      &messages.Ping{},
			wantSelf: []messages.Message{&messages.Pong{}},
		},
		{
			name:     "token pickup",
			msg:      &messages.TokenPickup{},
			wantSelf: []messages.Message{&messages.MainPlayerCurrentBalance{Balance: 1}},
		},
		{
			name:      "position",
			msg:       &messages.PlayerPosition{Coordinate: types.Coordinate{X: 10, Y: -5}},
			wantOther: []messages.Message{&messages.EnemyPosition{Coordinate: types.Coordinate{X: 10, Y: -5}}},
		},
		{
			name: "connected",
			msg:  &messages.Connected{ID: 12345},
		},
		{
			name: "server-only message",
			msg:  &messages.EnemyDisconnected{ID: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGame(t, NewGameManagerOptions{})
			self := g.connect(t)
			other := g.connect(t)
			drain(self)
			drain(other)

			g.send(self, tt.msg)

			for _, want := range tt.wantSelf {
				assert.Equal(t, want, next(t, self))
			}
			assertNoMessage(t, self)
			for _, want := range tt.wantOther {
				if pos, ok := want.(*messages.EnemyPosition); ok {
					pos.ID = self.scope.ID
				}
				assert.Equal(t, want, next(t, other))
			}
			assertNoMessage(t, other)
		})
	}
}

func TestGameManager_PositionUpdatesWorld(t *testing.T) {
	g := newTestGame(t, NewGameManagerOptions{})
	p := g.connect(t)

	g.send(p, &messages.PlayerPosition{Coordinate: types.Coordinate{X: 4, Y: 8}})

	data, ok := g.world.GetPlayer(p.scope.ID)
	require.True(t, ok)
	assert.Equal(t, types.Coordinate{X: 4, Y: 8}, data.Position)
}

func TestGameManager_TokenPickupIncrements(t *testing.T) {
	g := newTestGame(t, NewGameManagerOptions{})
	p := g.connect(t)
	drain(p)

	for i := uint32(1); i <= 3; i++ {
		g.send(p, &messages.TokenPickup{})
		assert.Equal(t, &messages.MainPlayerCurrentBalance{Balance: i}, next(t, p))
	}
}

func TestGameManager_HandleDisconnect(t *testing.T) {
	g := newTestGame(t, NewGameManagerOptions{})
	a := g.connect(t)
	b := g.connect(t)
	drain(a)
	drain(b)

	g.disconnect(a)

	assert.Equal(t, &messages.EnemyDisconnected{ID: a.scope.ID}, next(t, b))
	_, ok := g.world.GetPlayer(a.scope.ID)
	assert.False(t, ok)
	assert.False(t, g.cm.Exists(a.scope.ID))

	// sends to a departed player are no-ops
	g.cm.SendTo(a.scope.ID, &messages.Pong{})
	assertNoMessage(t, b)
}

func TestGameManager_BuildAndCompleteMonument(t *testing.T) {
	ctx := context.Background()
	g := newTestGame(t, NewGameManagerOptions{})
	gateway := mocks.NewGateway(t)
	gateway.On("Generate", mock.Anything, "lighthouse").Return(types.MonumentID(42), nil).Once()
	worker := g.worker(gateway)

	p := g.connect(t)
	q := g.connect(t)
	g.fund(t, p, 5)
	drain(q)

	g.send(p, &messages.BuildMonumentRequest{Prompt: "lighthouse"})
	req := g.nextBuild(t)
	assert.Equal(t, workers.BuildMonumentRequest{PlayerID: p.scope.ID, Prompt: "lighthouse", Cost: constants.MonumentBuildCost}, req)

	// the cost is reserved before the gateway is called
	data, _ := g.world.GetPlayer(p.scope.ID)
	assert.Equal(t, uint32(0), data.Balance)

	worker.Build(ctx, req)

	want := types.Monument{
		ID:                42,
		Description:       "lighthouse",
		Position:          types.Coordinate{X: 2, Y: 2},
		UnderConstruction: true,
	}
	assert.Equal(t, &messages.MainPlayerCurrentBalance{Balance: 0}, next(t, p))
	assert.Equal(t, &messages.BuildMonument{Monument: want}, next(t, p))
	assert.Equal(t, &messages.BuildMonument{Monument: want}, next(t, q))
	assert.Equal(t, []types.Monument{want}, g.world.ListMonuments())

	require.True(t, g.gm.CompleteMonument(ctx, 42, "lighthouse.png"))
	completed := &messages.MonumentCompleted{ID: 42, Asset: "lighthouse.png"}
	assert.Equal(t, completed, next(t, p))
	assert.Equal(t, completed, next(t, q))

	stored := g.world.ListMonuments()
	require.Len(t, stored, 1)
	assert.False(t, stored[0].UnderConstruction)
	assert.Equal(t, "lighthouse.png", stored[0].Asset)
}

func TestGameManager_BuildMonumentRejected(t *testing.T) {
	tests := []struct {
		name        string
		opts        NewGameManagerOptions
		tokens      int
		prompts     []string
		wantReason  string
		wantBalance uint32
		wantQueued  int
	}{
		{
			name:        "insufficient balance",
			tokens:      4,
			prompts:     []string{"lighthouse"},
			wantReason:  BuildFailedInsufficientBalance,
			wantBalance: 4,
		},
		{
			name:        "empty prompt",
			tokens:      5,
			prompts:     []string{"   "},
			wantReason:  BuildFailedEmptyPrompt,
			wantBalance: 5,
		},
		{
			name:        "rate limited",
			opts:        NewGameManagerOptions{BuildRequestsPerSecond: 0.001, BuildRequestBurst: 2},
			tokens:      15,
			prompts:     []string{"one", "two", "three"},
			wantReason:  BuildFailedRateLimited,
			wantBalance: 5,
			wantQueued:  2,
		},
		{
			name:        "busy",
			opts:        NewGameManagerOptions{BuildMonumentChan: make(chan workers.BuildMonumentRequest)},
			tokens:      5,
			prompts:     []string{"lighthouse"},
			wantReason:  BuildFailedBusy,
			wantBalance: 5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGame(t, tt.opts)
			p := g.connect(t)
			g.fund(t, p, tt.tokens)

			for _, prompt := range tt.prompts {
				g.send(p, &messages.BuildMonumentRequest{Prompt: prompt})
			}

			failed, ok := next(t, p).(*messages.BuildMonumentFailed)
			require.True(t, ok)
			assert.Equal(t, tt.wantReason, failed.Reason)
			assertNoMessage(t, p)

			data, _ := g.world.GetPlayer(p.scope.ID)
			assert.Equal(t, tt.wantBalance, data.Balance)
			assert.Len(t, g.builds, tt.wantQueued)
		})
	}
}

func TestGameManager_BuildMonumentGatewayFailure(t *testing.T) {
	g := newTestGame(t, NewGameManagerOptions{})
	gateway := mocks.NewGateway(t)
	gateway.On("Generate", mock.Anything, "lighthouse").Return(types.MonumentID(0), errors.New("comfyui unavailable")).Once()

	p := g.connect(t)
	q := g.connect(t)
	g.fund(t, p, 5)
	drain(q)

	g.send(p, &messages.BuildMonumentRequest{Prompt: "lighthouse"})
	g.worker(gateway).Build(context.Background(), g.nextBuild(t))

	assert.Equal(t, &messages.MainPlayerCurrentBalance{Balance: 5}, next(t, p))
	assert.Equal(t, &messages.BuildMonumentFailed{Prompt: "lighthouse", Reason: workers.BuildFailedGeneration}, next(t, p))
	assertNoMessage(t, q)
	assert.Empty(t, g.world.ListMonuments())
}

func TestGameManager_BuildMonumentRequesterLeft(t *testing.T) {
	g := newTestGame(t, NewGameManagerOptions{})
	gateway := mocks.NewGateway(t)
	gateway.On("Generate", mock.Anything, "arch").Return(types.MonumentID(7), nil).Once()

	p := g.connect(t)
	q := g.connect(t)
	g.fund(t, p, 5)
	g.send(p, &messages.PlayerPosition{Coordinate: types.Coordinate{X: 10, Y: 10}})
	g.send(p, &messages.BuildMonumentRequest{Prompt: "arch"})
	req := g.nextBuild(t)

	g.disconnect(p)
	drain(q)

	g.worker(gateway).Build(context.Background(), req)

	want := types.Monument{ID: 7, Description: "arch", Position: types.Coordinate{X: 12, Y: 12}, UnderConstruction: true}
	assert.Equal(t, &messages.BuildMonument{Monument: want}, next(t, q))
	assert.Equal(t, []types.Monument{want}, g.world.ListMonuments())
}

func TestGameManager_CompleteUnknownMonument(t *testing.T) {
	g := newTestGame(t, NewGameManagerOptions{})
	p := g.connect(t)
	drain(p)

	assert.False(t, g.gm.CompleteMonument(context.Background(), 404, "ghost.png"))
	assertNoMessage(t, p)
	assert.Empty(t, g.world.ListMonuments())
}

func TestGameManager_LongPromptTruncated(t *testing.T) {
	g := newTestGame(t, NewGameManagerOptions{})
	p := g.connect(t)
	g.fund(t, p, 5)

	g.send(p, &messages.BuildMonumentRequest{Prompt: strings.Repeat("é", MaxPromptLength)})
	req := g.nextBuild(t)
	assert.LessOrEqual(t, len(req.Prompt), MaxPromptLength)
	assert.Equal(t, strings.Repeat("é", MaxPromptLength/2), req.Prompt)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		s    string
		n    int
		want string
	}{
		{name: "short", s: "abc", n: 5, want: "abc"},
		{name: "exact", s: "abc", n: 3, want: "abc"},
		{name: "empty", s: "", n: 3, want: ""},
		{name: "ascii", s: "abcdef", n: 3, want: "abc"},
		{name: "multibyte boundary", s: "aé", n: 2, want: "a"},
		{name: "multibyte whole", s: "éé", n: 4, want: "éé"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.s, tt.n))
		})
	}
}
