package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TransactionType string

const (
	TransactionTypeAuctionWin TransactionType = "auction_win"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeSalary     TransactionType = "salary"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

type CurrencyType string

const (
	CurrencyFootball   CurrencyType = "football"
	CurrencyRealPlayer CurrencyType = "real_player"
)

// Transaction is the append-only audit record of every monetary movement.
// It doubles as the settlement saga intent: created as pending before the
// ledger document is touched and marked completed after, so a reconciler can
// replay the gap. A refund is a new negated record, never a mutation.
type Transaction struct {
	bun.BaseModel `bun:"table:transactions,alias:tx"`

	ID            int64             `bun:"id,pk,autoincrement" json:"id"`
	TransactionID string            `bun:"transaction_id,notnull,unique" json:"transaction_id"`
	TeamID        int64             `bun:"team_id,notnull" json:"team_id"`
	SeasonID      int64             `bun:"season_id,notnull" json:"season_id"`
	Amount        int64             `bun:"amount,notnull" json:"amount"`
	CurrencyType  CurrencyType      `bun:"currency_type,notnull" json:"currency_type"`
	Type          TransactionType   `bun:"transaction_type,notnull" json:"transaction_type"`
	Status        TransactionStatus `bun:"status,notnull" json:"status"`
	PlayerID      int64             `bun:"player_id" json:"player_id,omitempty"`
	Position      string            `bun:"position" json:"position,omitempty"`
	RoundID       int64             `bun:"round_id" json:"round_id,omitempty"`
	TiebreakerID  int64             `bun:"tiebreaker_id" json:"tiebreaker_id,omitempty"`

	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	CompletedAt time.Time `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
}
