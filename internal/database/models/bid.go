package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BidStatus string

const (
	BidStatusPending   BidStatus = "pending"
	BidStatusWon       BidStatus = "won"
	BidStatusLost      BidStatus = "lost"
	BidStatusCancelled BidStatus = "cancelled"
)

// Bid is a team's single offer on one player within a round. A team holds at
// most one non-cancelled bid per player per round; status transitions are
// one-way (pending -> won/lost/cancelled).
type Bid struct {
	bun.BaseModel `bun:"table:bids,alias:b"`

	ID       int64     `bun:"id,pk,autoincrement" json:"id"`
	TeamID   int64     `bun:"team_id,notnull" json:"team_id"`
	RoundID  int64     `bun:"round_id,notnull" json:"round_id"`
	PlayerID int64     `bun:"player_id,notnull" json:"player_id"`
	Amount   int64     `bun:"amount,notnull" json:"amount"`
	Status   BidStatus `bun:"status,notnull" json:"status"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}
