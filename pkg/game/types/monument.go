package types

// Monument is a persistent, player-requested world decoration.
// UnderConstruction is true from the build request until the generated asset arrives.
type Monument struct {
	ID                MonumentID `json:"id"`
	Description       string     `json:"description"`
	Asset             string     `json:"asset"`
	Position          Coordinate `json:"position"`
	UnderConstruction bool       `json:"under_construction"`
}
