package state

import (
	"context"
	"errors"

	"github.com/cbodonnell/monuments/pkg/game/types"
)

var (
	// ErrPlayerNotFound is returned when an operation targets an unknown player
	ErrPlayerNotFound = errors.New("player not found")
	// ErrInsufficientBalance is returned when a player cannot afford a debit
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// WorldStore provides shared access to the authoritative players and monuments.
// Implementations must be thread-safe and return copies, never internal references.
type WorldStore interface {
	GetPlayer(id types.PlayerID) (types.PlayerData, bool)
	ListPlayers() []types.PlayerData
	AddPlayer(data types.PlayerData)
	RemovePlayer(id types.PlayerID)
	// UpdatePosition is a no-op for unknown players.
	UpdatePosition(id types.PlayerID, coordinate types.Coordinate)

	ListMonuments() []types.Monument
	// AddMonument inserts a monument keyed by its id, overwriting any existing entry.
	AddMonument(monument types.Monument)
	// CompleteMonument sets the asset of a known monument, clears its construction
	// flag and durably records it. It reports false for unknown ids.
	CompleteMonument(ctx context.Context, id types.MonumentID, asset string) (types.Monument, bool)

	// IncrementBalance adds one token and returns the new balance, or 0 for unknown players.
	IncrementBalance(id types.PlayerID) uint32
	// DecrementBalanceBy debits amount, clamping at zero, and returns the new balance.
	DecrementBalanceBy(id types.PlayerID, amount uint32) uint32
	// ReserveBalance debits amount only if the balance covers it.
	ReserveBalance(id types.PlayerID, amount uint32) (uint32, error)
	// RefundBalance credits amount back and returns the new balance.
	RefundBalance(id types.PlayerID, amount uint32) uint32

	// RestoreFromLog replays the durable monument log into memory.
	RestoreFromLog(ctx context.Context) error
}
