package workers

import (
	"context"
	"time"

	"github.com/cbodonnell/monuments/pkg/game/types"
	"github.com/cbodonnell/monuments/pkg/generation"
	"github.com/cbodonnell/monuments/pkg/log"
	"github.com/cbodonnell/monuments/pkg/messages"
	"github.com/cbodonnell/monuments/pkg/metrics"
	"github.com/cbodonnell/monuments/pkg/network"
	"github.com/cbodonnell/monuments/pkg/state"
)

const (
	// DefaultGenerationTimeout bounds a single call to the generation gateway
	DefaultGenerationTimeout = 30 * time.Second
	// BuildFailedGeneration is the reason sent when the gateway rejects a build
	BuildFailedGeneration = "generation failed"
)

// BuildMonumentRequest is an accepted build whose cost has already been
// reserved from the requester's balance.
type BuildMonumentRequest struct {
	PlayerID types.PlayerID
	Prompt   string
	// Position of the requester when the request was accepted
	Position types.Coordinate
	Cost     uint32
}

type BuildMonumentWorker struct {
	world             state.WorldStore
	clientManager     *network.ClientManager
	gateway           generation.Gateway
	buildMonumentChan <-chan BuildMonumentRequest
	timeout           time.Duration
}

type NewBuildMonumentWorkerOptions struct {
	World             state.WorldStore
	ClientManager     *network.ClientManager
	Gateway           generation.Gateway
	BuildMonumentChan <-chan BuildMonumentRequest
	Timeout           time.Duration
}

// NewBuildMonumentWorker creates a new BuildMonumentWorker.
// Several workers may share one channel.
func NewBuildMonumentWorker(opts NewBuildMonumentWorkerOptions) *BuildMonumentWorker {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &BuildMonumentWorker{
		world:             opts.World,
		clientManager:     opts.ClientManager,
		gateway:           opts.Gateway,
		buildMonumentChan: opts.BuildMonumentChan,
		timeout:           timeout,
	}
}

func (w *BuildMonumentWorker) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-w.buildMonumentChan:
			if !ok {
				return
			}
			w.Build(ctx, req)
		}
	}
}

// Build submits the prompt to the gateway and publishes the pending monument.
// A failed submission refunds the reserved cost to the requester.
func (w *BuildMonumentWorker) Build(ctx context.Context, req BuildMonumentRequest) {
	generateCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	id, err := w.gateway.Generate(generateCtx, req.Prompt)
	if err != nil {
		log.Error("Failed to generate monument for player %d: %v", req.PlayerID, err)
		metrics.MonumentsFailed.Inc()
		balance := w.world.RefundBalance(req.PlayerID, req.Cost)
		w.clientManager.SendTo(req.PlayerID, &messages.MainPlayerCurrentBalance{Balance: balance})
		w.clientManager.SendTo(req.PlayerID, &messages.BuildMonumentFailed{
			Prompt: req.Prompt,
			Reason: BuildFailedGeneration,
		})
		return
	}

	monument := types.Monument{
		ID:                id,
		Description:       req.Prompt,
		Position:          req.Position.Drift(),
		UnderConstruction: true,
	}
	w.world.AddMonument(monument)
	metrics.MonumentsAccepted.Inc()
	log.Info("Player %d started monument %d: %q", req.PlayerID, id, req.Prompt)

	// the requester may have left, the monument is still published
	if player, ok := w.world.GetPlayer(req.PlayerID); ok {
		w.clientManager.SendTo(req.PlayerID, &messages.MainPlayerCurrentBalance{Balance: player.Balance})
	}
	w.clientManager.BroadcastAll(&messages.BuildMonument{Monument: monument})
}
