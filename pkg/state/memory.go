package state

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/cbodonnell/monuments/pkg/game/types"
	"github.com/cbodonnell/monuments/pkg/log"
	"github.com/cbodonnell/monuments/pkg/repositories"
)

// World is an in-memory WorldStore whose completed monuments are backed by a
// MonumentRepository.
type World struct {
	playersLock sync.RWMutex
	players     map[types.PlayerID]*types.PlayerData

	monumentsLock sync.RWMutex
	monuments     map[types.MonumentID]types.Monument

	// persistLock orders completions so the log matches the map
	persistLock sync.Mutex
	repository  repositories.MonumentRepository
}

// NewWorld creates an empty world. A nil repository disables persistence.
func NewWorld(repository repositories.MonumentRepository) *World {
	return &World{
		players:    make(map[types.PlayerID]*types.PlayerData),
		monuments:  make(map[types.MonumentID]types.Monument),
		repository: repository,
	}
}

func (w *World) GetPlayer(id types.PlayerID) (types.PlayerData, bool) {
	w.playersLock.RLock()
	defer w.playersLock.RUnlock()

	p, ok := w.players[id]
	if !ok {
		return types.PlayerData{}, false
	}
	return *p, true
}

// ListPlayers returns a snapshot of all players ordered by id.
func (w *World) ListPlayers() []types.PlayerData {
	w.playersLock.RLock()
	players := make([]types.PlayerData, 0, len(w.players))
	for _, p := range w.players {
		players = append(players, *p)
	}
	w.playersLock.RUnlock()

	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}

func (w *World) AddPlayer(data types.PlayerData) {
	w.playersLock.Lock()
	defer w.playersLock.Unlock()

	p := data
	w.players[data.ID] = &p
}

func (w *World) RemovePlayer(id types.PlayerID) {
	w.playersLock.Lock()
	defer w.playersLock.Unlock()

	delete(w.players, id)
}

func (w *World) UpdatePosition(id types.PlayerID, coordinate types.Coordinate) {
	w.playersLock.Lock()
	defer w.playersLock.Unlock()

	if p, ok := w.players[id]; ok {
		p.Position = coordinate
	}
}

// ListMonuments returns a snapshot of all monuments ordered by id.
func (w *World) ListMonuments() []types.Monument {
	w.monumentsLock.RLock()
	monuments := make([]types.Monument, 0, len(w.monuments))
	for _, m := range w.monuments {
		monuments = append(monuments, m)
	}
	w.monumentsLock.RUnlock()

	sort.Slice(monuments, func(i, j int) bool { return monuments[i].ID < monuments[j].ID })
	return monuments
}

func (w *World) AddMonument(monument types.Monument) {
	w.monumentsLock.Lock()
	defer w.monumentsLock.Unlock()

	w.monuments[monument.ID] = monument
}

func (w *World) CompleteMonument(ctx context.Context, id types.MonumentID, asset string) (types.Monument, bool) {
	w.persistLock.Lock()
	defer w.persistLock.Unlock()

	w.monumentsLock.Lock()
	m, ok := w.monuments[id]
	if !ok {
		w.monumentsLock.Unlock()
		log.Warn("Ignoring completion of unknown monument %d", id)
		return types.Monument{}, false
	}
	m.Asset = asset
	m.UnderConstruction = false
	w.monuments[id] = m
	w.monumentsLock.Unlock()

	if w.repository != nil {
		if err := w.repository.Append(ctx, m); err != nil {
			log.Error("Failed to persist monument %d: %v", id, err)
		}
	}

	return m, true
}

func (w *World) IncrementBalance(id types.PlayerID) uint32 {
	w.playersLock.Lock()
	defer w.playersLock.Unlock()

	p, ok := w.players[id]
	if !ok {
		return 0
	}
	if p.Balance < math.MaxUint32 {
		p.Balance++
	}
	return p.Balance
}

func (w *World) DecrementBalanceBy(id types.PlayerID, amount uint32) uint32 {
	w.playersLock.Lock()
	defer w.playersLock.Unlock()

	p, ok := w.players[id]
	if !ok {
		return 0
	}
	if amount > p.Balance {
		log.Warn("Clamping balance of player %d: debit %d exceeds balance %d", id, amount, p.Balance)
		p.Balance = 0
		return 0
	}
	p.Balance -= amount
	return p.Balance
}

func (w *World) ReserveBalance(id types.PlayerID, amount uint32) (uint32, error) {
	w.playersLock.Lock()
	defer w.playersLock.Unlock()

	p, ok := w.players[id]
	if !ok {
		return 0, ErrPlayerNotFound
	}
	if p.Balance < amount {
		return p.Balance, ErrInsufficientBalance
	}
	p.Balance -= amount
	return p.Balance, nil
}

func (w *World) RefundBalance(id types.PlayerID, amount uint32) uint32 {
	w.playersLock.Lock()
	defer w.playersLock.Unlock()

	p, ok := w.players[id]
	if !ok {
		return 0
	}
	if uint64(p.Balance)+uint64(amount) > math.MaxUint32 {
		p.Balance = math.MaxUint32
	} else {
		p.Balance += amount
	}
	return p.Balance
}

// RestoreFromLog loads every logged record into the monument map. Later
// records for the same id replace earlier ones so replaying is idempotent.
func (w *World) RestoreFromLog(ctx context.Context) error {
	if w.repository == nil {
		return nil
	}

	monuments, err := w.repository.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load monument log: %v", err)
	}

	w.monumentsLock.Lock()
	defer w.monumentsLock.Unlock()
	for _, m := range monuments {
		w.monuments[m.ID] = m
	}
	log.Info("Restored %d monument records (%d monuments)", len(monuments), len(w.monuments))

	return nil
}
