package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/Shamsear/ssleague-sub021/internal/database/repositories"
	"github.com/Shamsear/ssleague-sub021/internal/ledger"
	"github.com/Shamsear/ssleague-sub021/internal/notify"
)

// SettlementRequest describes one won player to apply to a team's ledger.
type SettlementRequest struct {
	TeamID       int64
	SeasonID     int64
	PlayerID     int64
	Position     string
	Amount       int64
	Currency     models.CurrencyType
	RoundID      int64
	TiebreakerID int64 // zero for outright (non-tied) round wins
}

// Settler applies a known winner's financial and roster effects. Settlement
// is a saga: the transaction record is written as a pending intent first,
// then the ledger document is mutated through a tx-id-guarded conditional
// update, then the intent is marked completed. Any step is safe to replay.
type Settler struct {
	txns     repositories.TransactionRepository
	ledgers  ledger.Store
	notifier notify.Notifier
}

func NewSettler(txns repositories.TransactionRepository, ledgers ledger.Store, notifier notify.Notifier) *Settler {
	return &Settler{
		txns:     txns,
		ledgers:  ledgers,
		notifier: notifier,
	}
}

// Settle settles one win. Idempotent: re-running an already-completed
// settlement returns the existing record without touching the ledger.
func (s *Settler) Settle(ctx context.Context, req SettlementRequest) (*models.Transaction, error) {
	txn, err := s.loadOrCreateIntent(ctx, req)
	if err != nil {
		return nil, err
	}
	if txn.Status == models.TransactionStatusCompleted {
		slog.Debug("Settlement already completed, skipping",
			slog.String("transaction_id", txn.TransactionID))
		return txn, nil
	}

	result, err := s.ledgers.ApplySettlement(ctx, ledger.Delta{
		TeamID:        req.TeamID,
		SeasonID:      req.SeasonID,
		TransactionID: txn.TransactionID,
		Currency:      string(req.Currency),
		Amount:        req.Amount,
		Position:      req.Position,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			s.failIntent(ctx, txn.TransactionID)
			return nil, &LedgerNotFoundError{TeamID: req.TeamID, SeasonID: req.SeasonID}
		}
		if errors.Is(err, ledger.ErrInsufficientBudget) {
			s.failIntent(ctx, txn.TransactionID)
			return nil, &InsufficientBudgetError{TeamID: req.TeamID, Required: req.Amount}
		}
		// Transient store failure; the intent stays pending and the
		// reconciler replays it.
		return nil, fmt.Errorf("failed to apply ledger delta for %s: %w", txn.TransactionID, err)
	}

	if result == ledger.ApplyAlreadyApplied {
		slog.Info("Ledger delta already applied, completing intent only",
			slog.String("transaction_id", txn.TransactionID))
	}

	now := time.Now()
	if err := s.txns.MarkCompleted(ctx, txn.TransactionID, now); err != nil {
		return nil, &PartialWriteError{TransactionID: txn.TransactionID, Err: err}
	}
	txn.Status = models.TransactionStatusCompleted
	txn.CompletedAt = now

	s.notifier.SettlementApplied(txn)

	slog.Info("Settlement applied",
		slog.String("transaction_id", txn.TransactionID),
		slog.Int64("team_id", req.TeamID),
		slog.Int64("player_id", req.PlayerID),
		slog.Int64("amount", req.Amount))

	return txn, nil
}

// Replay re-drives an existing pending intent through the ledger and log
// steps. Used by the reconciler; shares all guards with Settle.
func (s *Settler) Replay(ctx context.Context, txn *models.Transaction) error {
	_, err := s.Settle(ctx, SettlementRequest{
		TeamID:       txn.TeamID,
		SeasonID:     txn.SeasonID,
		PlayerID:     txn.PlayerID,
		Position:     txn.Position,
		Amount:       txn.Amount,
		Currency:     txn.CurrencyType,
		RoundID:      txn.RoundID,
		TiebreakerID: txn.TiebreakerID,
	})
	return err
}

func (s *Settler) loadOrCreateIntent(ctx context.Context, req SettlementRequest) (*models.Transaction, error) {
	existing, err := s.txns.GetByReference(ctx, req.RoundID, req.TiebreakerID, req.PlayerID)
	if err == nil {
		return existing, nil
	}
	if !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up settlement intent: %w", err)
	}

	txn := &models.Transaction{
		TransactionID: uuid.NewString(),
		TeamID:        req.TeamID,
		SeasonID:      req.SeasonID,
		Amount:        req.Amount,
		CurrencyType:  req.Currency,
		Type:          models.TransactionTypeAuctionWin,
		PlayerID:      req.PlayerID,
		Position:      req.Position,
		RoundID:       req.RoundID,
		TiebreakerID:  req.TiebreakerID,
	}
	if err := s.txns.CreatePending(ctx, txn); err != nil {
		if repositories.IsConflict(err) {
			// A concurrent settlement of the same win created the intent
			// first; adopt it so only one delta ever lands.
			return s.txns.GetByReference(ctx, req.RoundID, req.TiebreakerID, req.PlayerID)
		}
		return nil, fmt.Errorf("failed to write settlement intent: %w", err)
	}
	return txn, nil
}

func (s *Settler) failIntent(ctx context.Context, transactionID string) {
	if err := s.txns.MarkFailed(ctx, transactionID); err != nil {
		slog.Error("Failed to mark settlement intent failed",
			slog.String("transaction_id", transactionID),
			slog.Any("error", err))
	}
}
