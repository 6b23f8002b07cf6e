package types

import "github.com/cbodonnell/monuments/pkg/game/constants"

// PlayerID identifies a connected player for the lifetime of its connection.
// Zero is never assigned.
type PlayerID uint32

// MonumentID identifies a monument. It is minted by the generation gateway.
type MonumentID uint32

// Coordinate is a position on the world grid.
type Coordinate struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// Drift returns the coordinate offset by the fixed monument placement delta.
func (c Coordinate) Drift() Coordinate {
	return Coordinate{
		X: c.X + constants.MonumentDriftX,
		Y: c.Y + constants.MonumentDriftY,
	}
}
