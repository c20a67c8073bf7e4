package models

import (
	"time"

	"github.com/uptrace/bun"
)

type RoundStatus string

const (
	RoundStatusDraft             RoundStatus = "draft"
	RoundStatusActive            RoundStatus = "active"
	RoundStatusTiebreakerPending RoundStatus = "tiebreaker_pending"
	RoundStatusCompleted         RoundStatus = "completed"
)

type RoundType string

const (
	RoundTypeNormal RoundType = "normal"
	RoundTypeBulk   RoundType = "bulk"
)

// Round is one timed bidding window for a batch of players within a season.
// Status only ever moves forward: draft -> active -> tiebreaker_pending -> completed,
// with tiebreaker_pending skipped when the closing round produced no ties.
type Round struct {
	bun.BaseModel `bun:"table:rounds,alias:r"`

	ID              int64        `bun:"id,pk,autoincrement" json:"id"`
	SeasonID        int64        `bun:"season_id,notnull" json:"season_id"`
	RoundNumber     int          `bun:"round_number,notnull" json:"round_number"`
	RoundType       RoundType    `bun:"round_type,notnull" json:"round_type"`
	Position        string       `bun:"position,notnull" json:"position"`
	Currency        CurrencyType `bun:"currency_type,notnull,default:'football'" json:"currency_type"`
	Status          RoundStatus  `bun:"status,notnull" json:"status"`
	DurationSeconds int          `bun:"duration_seconds,notnull" json:"duration_seconds"`
	StartTime       time.Time    `bun:"start_time,nullzero" json:"start_time"`
	EndTime         time.Time    `bun:"end_time,nullzero" json:"end_time"`
	// ClosedAt is set once the closing sweep over the round's bids has run to
	// completion. The round cannot complete while it is unset.
	ClosedAt time.Time `bun:"closed_at,nullzero" json:"closed_at,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// Ended reports whether the round's bidding window has passed.
func (r *Round) Ended(now time.Time) bool {
	return !r.EndTime.IsZero() && now.After(r.EndTime)
}
