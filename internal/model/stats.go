package model

// PlayerStats is the player-visible scoreboard. It is created once at
// session start and mutated only by the game orchestrator; it is never
// persisted across sessions.
type PlayerStats struct {
	PnL    float64 `json:"pnl"`
	BTC    float64 `json:"btc"` // cosmetic, never mutated after init
	Streak int     `json:"streak"`
	Gemin  int     `json:"gemin"`
}

// NewPlayerStats returns the fixed session-start scoreboard.
func NewPlayerStats() PlayerStats {
	return PlayerStats{
		PnL:    0,
		BTC:    0.1,
		Streak: 0,
		Gemin:  10,
	}
}
