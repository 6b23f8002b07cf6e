package types

// PlayerData is the server-side record of a connected player.
type PlayerData struct {
	ID       PlayerID   `json:"id"`
	Balance  uint32     `json:"balance"`
	Position Coordinate `json:"position"`
}

// NewPlayerData returns the record of a freshly connected player.
func NewPlayerData(id PlayerID) PlayerData {
	return PlayerData{
		ID:      id,
		Balance: 0,
		Position: Coordinate{
			X: 0,
			Y: 0,
		},
	}
}
