package game

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/cbodonnell/monuments/pkg/game/constants"
	"github.com/cbodonnell/monuments/pkg/game/types"
	"github.com/cbodonnell/monuments/pkg/log"
	"github.com/cbodonnell/monuments/pkg/messages"
	"github.com/cbodonnell/monuments/pkg/metrics"
	"github.com/cbodonnell/monuments/pkg/network"
	"github.com/cbodonnell/monuments/pkg/state"
	"github.com/cbodonnell/monuments/pkg/workers"
	"golang.org/x/time/rate"
)

const (
	BuildFailedRateLimited         = "rate limited"
	BuildFailedInsufficientBalance = "insufficient balance"
	BuildFailedBusy                = "busy"
	BuildFailedEmptyPrompt         = "empty prompt"

	// MaxPromptLength is the longest prompt accepted, in bytes
	MaxPromptLength = 512
)

// GameManager applies player messages to the world and publishes the results.
type GameManager struct {
	world             state.WorldStore
	clientManager     *network.ClientManager
	buildMonumentChan chan<- workers.BuildMonumentRequest

	buildLimit    rate.Limit
	buildBurst    int
	limitersLock  sync.Mutex
	buildLimiters map[types.PlayerID]*rate.Limiter
}

// NewGameManagerOptions contains options for creating a new GameManager.
type NewGameManagerOptions struct {
	World             state.WorldStore
	ClientManager     *network.ClientManager
	BuildMonumentChan chan<- workers.BuildMonumentRequest
	// BuildRequestsPerSecond and BuildRequestBurst default to the values in constants.
	BuildRequestsPerSecond float64
	BuildRequestBurst      int
}

func NewGameManager(opts NewGameManagerOptions) *GameManager {
	perSecond := opts.BuildRequestsPerSecond
	if perSecond <= 0 {
		perSecond = constants.BuildRequestsPerSecond
	}
	burst := opts.BuildRequestBurst
	if burst <= 0 {
		burst = constants.BuildRequestBurst
	}
	return &GameManager{
		world:             opts.World,
		clientManager:     opts.ClientManager,
		buildMonumentChan: opts.BuildMonumentChan,
		buildLimit:        rate.Limit(perSecond),
		buildBurst:        burst,
		buildLimiters:     make(map[types.PlayerID]*rate.Limiter),
	}
}

// Handlers returns the session callbacks for a network.WSServer.
func (gm *GameManager) Handlers() network.Handlers {
	return network.Handlers{
		Connect:    gm.HandleConnect,
		Message:    gm.HandleMessage,
		Disconnect: gm.HandleDisconnect,
	}
}

// HandleConnect creates the player and sends it everything needed to
// reconstruct the world.
func (gm *GameManager) HandleConnect(ctx context.Context, scope *network.ScopedManager) error {
	data := types.NewPlayerData(scope.ID)
	gm.world.AddPlayer(data)

	scope.SendToSelf(&messages.Welcome{Data: data})
	scope.SendToSelf(&messages.MainPlayerSpawn{Data: data})
	scope.BroadcastExceptSelf(&messages.EnemyPlayerSpawn{Data: data})

	for _, player := range gm.world.ListPlayers() {
		if player.ID == scope.ID {
			continue
		}
		scope.SendToSelf(&messages.EnemyPlayerSpawn{Data: player})
	}

	for _, monument := range gm.world.ListMonuments() {
		scope.SendToSelf(&messages.BuildMonument{Monument: monument})
	}

	return nil
}

func (gm *GameManager) HandleMessage(ctx context.Context, scope *network.ScopedManager, msg messages.Message) {
	switch m := msg.(type) {
	case *messages.Ping:
		scope.SendToSelf(&messages.Pong{})
	case *messages.Connected:
		if m.ID != scope.ID {
			log.Warn("Client %d announced itself as %d", scope.ID, m.ID)
			return
		}
		log.Debug("Client %d announced itself", scope.ID)
	case *messages.PlayerPosition:
		gm.world.UpdatePosition(scope.ID, m.Coordinate)
		scope.BroadcastExceptSelf(&messages.EnemyPosition{ID: scope.ID, Coordinate: m.Coordinate})
	case *messages.TokenPickup:
		balance := gm.world.IncrementBalance(scope.ID)
		metrics.TokensCollected.Inc()
		scope.SendToSelf(&messages.MainPlayerCurrentBalance{Balance: balance})
	case *messages.BuildMonumentRequest:
		gm.requestMonument(scope, m.Prompt)
	default:
		log.Debug("Ignoring %s from client %d", msg.Type(), scope.ID)
	}
}

// HandleDisconnect removes the player and tells everyone else it left.
func (gm *GameManager) HandleDisconnect(ctx context.Context, scope *network.ScopedManager) {
	gm.world.RemovePlayer(scope.ID)

	gm.limitersLock.Lock()
	delete(gm.buildLimiters, scope.ID)
	gm.limitersLock.Unlock()

	scope.BroadcastExceptSelf(&messages.EnemyDisconnected{ID: scope.ID})
}

// requestMonument reserves the build cost and hands the request to the build
// workers without waiting for the gateway.
func (gm *GameManager) requestMonument(scope *network.ScopedManager, prompt string) {
	metrics.MonumentsRequested.Inc()

	player, ok := gm.world.GetPlayer(scope.ID)
	if !ok {
		return
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		gm.rejectMonument(scope, prompt, BuildFailedEmptyPrompt)
		return
	}
	if len(prompt) > MaxPromptLength {
		prompt = truncate(prompt, MaxPromptLength)
	}

	if !gm.buildLimiter(scope.ID).Allow() {
		gm.rejectMonument(scope, prompt, BuildFailedRateLimited)
		return
	}

	if _, err := gm.world.ReserveBalance(scope.ID, constants.MonumentBuildCost); err != nil {
		if errors.Is(err, state.ErrInsufficientBalance) {
			gm.rejectMonument(scope, prompt, BuildFailedInsufficientBalance)
		}
		return
	}

	req := workers.BuildMonumentRequest{
		PlayerID: scope.ID,
		Prompt:   prompt,
		Position: player.Position,
		Cost:     constants.MonumentBuildCost,
	}
	select {
	case gm.buildMonumentChan <- req:
		log.Debug("Queued monument %q for client %d", prompt, scope.ID)
	default:
		gm.world.RefundBalance(scope.ID, constants.MonumentBuildCost)
		gm.rejectMonument(scope, prompt, BuildFailedBusy)
	}
}

func (gm *GameManager) rejectMonument(scope *network.ScopedManager, prompt string, reason string) {
	metrics.MonumentsFailed.Inc()
	log.Debug("Rejected monument %q for client %d: %s", prompt, scope.ID, reason)
	scope.SendToSelf(&messages.BuildMonumentFailed{Prompt: prompt, Reason: reason})
}

func (gm *GameManager) buildLimiter(id types.PlayerID) *rate.Limiter {
	gm.limitersLock.Lock()
	defer gm.limitersLock.Unlock()

	limiter, ok := gm.buildLimiters[id]
	if !ok {
		limiter = rate.NewLimiter(gm.buildLimit, gm.buildBurst)
		gm.buildLimiters[id] = limiter
	}
	return limiter
}

// CompleteMonument records the generated asset of a monument and announces it.
// It reports false when the monument is unknown.
func (gm *GameManager) CompleteMonument(ctx context.Context, id types.MonumentID, asset string) bool {
	monument, ok := gm.world.CompleteMonument(ctx, id, asset)
	if !ok {
		return false
	}
	metrics.MonumentsCompleted.Inc()
	log.Info("Monument %d completed", id)
	gm.clientManager.BroadcastAll(&messages.MonumentCompleted{ID: monument.ID, Asset: monument.Asset})
	return true
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if n >= len(s) {
		return s
	}
	for n > 0 && n < len(s) && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
