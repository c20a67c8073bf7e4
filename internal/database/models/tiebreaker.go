package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TiebreakerStatus string

const (
	TiebreakerStatusActive    TiebreakerStatus = "active"
	TiebreakerStatusResolved  TiebreakerStatus = "resolved"
	TiebreakerStatusExcluded  TiebreakerStatus = "excluded"
	TiebreakerStatusCancelled TiebreakerStatus = "cancelled"
)

// Terminal reports whether the status can never change again.
func (s TiebreakerStatus) Terminal() bool {
	return s == TiebreakerStatusResolved || s == TiebreakerStatusExcluded || s == TiebreakerStatusCancelled
}

// Tiebreaker is a sub-auction resolving an amount-tie among a round's top
// bids for one player. Exactly one exists per (round_id, player_id).
// CurrentHighestBid is monotonically non-decreasing; every raise is applied
// through a conditional UPDATE guarded by the previous value.
type Tiebreaker struct {
	bun.BaseModel `bun:"table:tiebreakers,alias:tb"`

	ID                   int64            `bun:"id,pk,autoincrement" json:"id"`
	RoundID              int64            `bun:"round_id,notnull,unique:uq_tiebreaker_round_player" json:"round_id"`
	SeasonID             int64            `bun:"season_id,notnull" json:"season_id"`
	PlayerID             int64            `bun:"player_id,notnull,unique:uq_tiebreaker_round_player" json:"player_id"`
	PlayerName           string           `bun:"player_name,notnull" json:"player_name"`
	Position             string           `bun:"position,notnull" json:"position"`
	Currency             CurrencyType     `bun:"currency_type,notnull,default:'football'" json:"currency_type"`
	OriginalAmount       int64            `bun:"original_amount,notnull" json:"original_amount"`
	Status               TiebreakerStatus `bun:"status,notnull" json:"status"`
	CurrentHighestBid    int64            `bun:"current_highest_bid,notnull" json:"current_highest_bid"`
	CurrentHighestTeamID int64            `bun:"current_highest_team_id" json:"current_highest_team_id"`
	TeamsRemaining       int              `bun:"teams_remaining,notnull" json:"teams_remaining"`
	StartTime            time.Time        `bun:"start_time,notnull" json:"start_time"`
	LastActivityTime     time.Time        `bun:"last_activity_time,notnull" json:"last_activity_time"`
	MaxEndTime           time.Time        `bun:"max_end_time,notnull" json:"max_end_time"`
	ResolvedAt           time.Time        `bun:"resolved_at,nullzero" json:"resolved_at,omitempty"`

	WinnerTeamID  int64 `bun:"winner_team_id" json:"winner_team_id,omitempty"`
	WinningAmount int64 `bun:"winning_amount" json:"winning_amount,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Teams []*TeamTiebreaker `bun:"rel:has-many,join:id=tiebreaker_id" json:"teams,omitempty"`
}

// Expired reports whether the bidding window has passed its hard deadline.
func (t *Tiebreaker) Expired(now time.Time) bool {
	return now.After(t.MaxEndTime)
}

type TeamTiebreakerStatus string

const (
	TeamTiebreakerStatusActive    TeamTiebreakerStatus = "active"
	TeamTiebreakerStatusWithdrawn TeamTiebreakerStatus = "withdrawn"
)

// TeamTiebreaker is one team's membership in a tiebreaker. Created at spawn
// for every tied team, mutated only by that team's own submit/withdraw,
// never deleted.
type TeamTiebreaker struct {
	bun.BaseModel `bun:"table:team_tiebreakers,alias:ttb"`

	ID            int64                `bun:"id,pk,autoincrement" json:"id"`
	TiebreakerID  int64                `bun:"tiebreaker_id,notnull,unique:uq_team_tiebreaker" json:"tiebreaker_id"`
	TeamID        int64                `bun:"team_id,notnull,unique:uq_team_tiebreaker" json:"team_id"`
	TeamName      string               `bun:"team_name,notnull" json:"team_name"`
	OriginalBidID int64                `bun:"original_bid_id,notnull" json:"original_bid_id"`
	NewBidAmount  int64                `bun:"new_bid_amount" json:"new_bid_amount"`
	Status        TeamTiebreakerStatus `bun:"status,notnull" json:"status"`
	Submitted     bool                 `bun:"submitted,notnull" json:"submitted"`
	SubmittedAt   time.Time            `bun:"submitted_at,nullzero" json:"submitted_at,omitempty"`
	WithdrawnAt   time.Time            `bun:"withdrawn_at,nullzero" json:"withdrawn_at,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
