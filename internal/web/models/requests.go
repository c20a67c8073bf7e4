package models

// CreateRoundRequest registers a draft round for a season.
type CreateRoundRequest struct {
	SeasonID        int64  `json:"season_id"`
	RoundNumber     int    `json:"round_number"`
	RoundType       string `json:"round_type"`
	Position        string `json:"position"`
	Currency        string `json:"currency"`
	DurationSeconds int    `json:"duration_seconds"`
}

// PlaceBidRequest is a sealed bid on a player within an active round.
type PlaceBidRequest struct {
	PlayerID int64 `json:"player_id"`
	Amount   int64 `json:"amount"`
}

// TiebreakerBidRequest escalates the caller's bid inside a tiebreaker.
type TiebreakerBidRequest struct {
	Amount int64 `json:"amount"`
}

// CreateTeamRequest registers a team with its API token.
type CreateTeamRequest struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	APIToken string `json:"api_token"`
}

// CreatePlayerRequest registers an auctionable player.
type CreatePlayerRequest struct {
	SeasonID int64  `json:"season_id"`
	Name     string `json:"name"`
	Position string `json:"position"`
}

// CreateLedgerRequest opens a team's season ledger with starting budgets.
type CreateLedgerRequest struct {
	TeamID           int64  `json:"team_id"`
	SeasonID         int64  `json:"season_id"`
	FootballBudget   int64  `json:"football_budget"`
	RealPlayerBudget int64  `json:"real_player_budget"`
	CurrencySystem   string `json:"currency_system"`
}
