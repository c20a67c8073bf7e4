// Package ledger is the document-store adapter for the per-team, per-season
// budget/spend/roster record. The document is the only truly contended
// resource in the system, so every mutation is expressed as an additive $inc
// guarded by the settlement transaction id; replaying a settlement is a
// structural no-op.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "team_season_ledgers"

var (
	ErrNotFound           = errors.New("team season ledger not found")
	ErrInsufficientBudget = errors.New("insufficient budget")
)

type CurrencySystem string

const (
	CurrencySingle CurrencySystem = "single"
	CurrencyDual   CurrencySystem = "dual"
)

// Ledger is the authoritative budget/spend/roster-composition record.
type Ledger struct {
	TeamID           int64          `bson:"team_id"`
	SeasonID         int64          `bson:"season_id"`
	FootballBudget   int64          `bson:"football_budget"`
	FootballSpent    int64          `bson:"football_spent"`
	RealPlayerBudget int64          `bson:"real_player_budget"`
	RealPlayerSpent  int64          `bson:"real_player_spent"`
	PositionCounts   map[string]int `bson:"position_counts"`
	CurrencySystem   CurrencySystem `bson:"currency_system"`
	AppliedTxns      []string       `bson:"applied_txns"`
	UpdatedAt        time.Time      `bson:"updated_at"`
}

// Budget returns the remaining budget for the given currency.
func (l *Ledger) Budget(currency string) int64 {
	if currency == "real_player" {
		return l.RealPlayerBudget
	}
	return l.FootballBudget
}

// Delta is one settlement's financial effect: budget down, spent up, and the
// position count up by one, all applied together.
type Delta struct {
	TeamID        int64
	SeasonID      int64
	TransactionID string
	Currency      string // "football" or "real_player"
	Amount        int64
	Position      string
}

type ApplyResult int

const (
	ApplyApplied ApplyResult = iota
	ApplyAlreadyApplied
)

type Store interface {
	Get(ctx context.Context, teamID, seasonID int64) (*Ledger, error)
	Create(ctx context.Context, l *Ledger) error
	// ApplySettlement applies the delta as one conditional update. It fails
	// with ErrNotFound when the document is missing and
	// ErrInsufficientBudget when the budget guard rejects the deduction;
	// a replay of an already-applied transaction id returns
	// ApplyAlreadyApplied with no mutation.
	ApplySettlement(ctx context.Context, d Delta) (ApplyResult, error)
	// Revert undoes a previously applied delta (refunds). Guarded by the
	// transaction id having been applied, so it too is replay-safe.
	Revert(ctx context.Context, d Delta) (ApplyResult, error)
	Close(ctx context.Context) error
}

type store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewStore(ctx context.Context, uri, dbName string) (Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("document store unreachable: %w", err)
	}

	return &store{
		client: client,
		coll:   client.Database(dbName).Collection(collectionName),
	}, nil
}

func (s *store) Get(ctx context.Context, teamID, seasonID int64) (*Ledger, error) {
	var l Ledger
	err := s.coll.FindOne(ctx, bson.M{
		"team_id":   teamID,
		"season_id": seasonID,
	}).Decode(&l)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return &l, nil
}

func (s *store) Create(ctx context.Context, l *Ledger) error {
	if l.PositionCounts == nil {
		l.PositionCounts = map[string]int{}
	}
	l.UpdatedAt = time.Now()

	_, err := s.coll.InsertOne(ctx, l)
	if err != nil {
		return fmt.Errorf("failed to create ledger: %w", err)
	}
	return nil
}

func (s *store) ApplySettlement(ctx context.Context, d Delta) (ApplyResult, error) {
	budgetField, spentField := currencyFields(d.Currency)

	filter := bson.M{
		"team_id":      d.TeamID,
		"season_id":    d.SeasonID,
		"applied_txns": bson.M{"$ne": d.TransactionID},
		budgetField:    bson.M{"$gte": d.Amount},
	}
	update := bson.M{
		"$inc": bson.M{
			budgetField: -d.Amount,
			spentField:  d.Amount,
			fmt.Sprintf("position_counts.%s", d.Position): 1,
		},
		"$push": bson.M{"applied_txns": d.TransactionID},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	result, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to apply settlement: %w", err)
	}
	if result.MatchedCount == 1 {
		return ApplyApplied, nil
	}

	// The guard rejected; read the document to tell why.
	l, err := s.Get(ctx, d.TeamID, d.SeasonID)
	if err != nil {
		return 0, err
	}
	for _, txn := range l.AppliedTxns {
		if txn == d.TransactionID {
			return ApplyAlreadyApplied, nil
		}
	}
	return 0, fmt.Errorf("%w: need %d, have %d", ErrInsufficientBudget, d.Amount, l.Budget(d.Currency))
}

func (s *store) Revert(ctx context.Context, d Delta) (ApplyResult, error) {
	budgetField, spentField := currencyFields(d.Currency)

	filter := bson.M{
		"team_id":      d.TeamID,
		"season_id":    d.SeasonID,
		"applied_txns": d.TransactionID,
	}
	update := bson.M{
		"$inc": bson.M{
			budgetField: d.Amount,
			spentField:  -d.Amount,
			fmt.Sprintf("position_counts.%s", d.Position): -1,
		},
		"$pull": bson.M{"applied_txns": d.TransactionID},
		"$set":  bson.M{"updated_at": time.Now()},
	}

	result, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to revert settlement: %w", err)
	}
	if result.MatchedCount == 0 {
		return ApplyAlreadyApplied, nil
	}
	return ApplyApplied, nil
}

func (s *store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func currencyFields(currency string) (budget, spent string) {
	if currency == "real_player" {
		return "real_player_budget", "real_player_spent"
	}
	return "football_budget", "football_spent"
}
