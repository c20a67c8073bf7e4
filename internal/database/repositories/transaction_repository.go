package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/uptrace/bun"
)

type TransactionRepository interface {
	DB() *bun.DB
	// CreatePending writes the settlement intent before any ledger mutation.
	CreatePending(ctx context.Context, txn *models.Transaction) error
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error)
	// GetByReference finds the settlement record for a tiebreaker or, when
	// tiebreakerID is zero, an outright round win for the player.
	GetByReference(ctx context.Context, roundID, tiebreakerID, playerID int64) (*models.Transaction, error)
	MarkCompleted(ctx context.Context, transactionID string, at time.Time) error
	// MarkFailed records a fatal, non-replayable settlement outcome so the
	// reconciler stops picking the intent up.
	MarkFailed(ctx context.Context, transactionID string) error
	ListStalePending(ctx context.Context, olderThan time.Time) ([]*models.Transaction, error)
	ListBySeason(ctx context.Context, seasonID int64) ([]*models.Transaction, error)
}

type transactionRepository struct {
	*BaseRepository
	db *bun.DB
}

func NewTransactionRepository(db *bun.DB) TransactionRepository {
	return &transactionRepository{
		BaseRepository: NewBaseRepository(db),
		db:             db,
	}
}

func (r *transactionRepository) DB() *bun.DB {
	return r.db
}

func (r *transactionRepository) CreatePending(ctx context.Context, txn *models.Transaction) error {
	txn.Status = models.TransactionStatusPending
	txn.CreatedAt = time.Now()

	_, err := r.db.NewInsert().Model(txn).Exec(ctx)
	if err != nil {
		// The reference unique index rejects a second win intent for the same
		// round/tiebreaker/player; the caller re-reads the existing intent.
		if strings.Contains(err.Error(), "uq_transactions_reference") {
			return &ConflictError{Entity: "transaction", Field: "player_id", Value: txn.PlayerID}
		}
		return r.HandleError("create_pending", "transaction", err)
	}
	return nil
}

func (r *transactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	txn := new(models.Transaction)
	err := r.db.NewSelect().
		Model(txn).
		Where("transaction_id = ?", transactionID).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleErrorWithID("get", "transaction", transactionID, err)
	}
	return txn, nil
}

func (r *transactionRepository) GetByReference(ctx context.Context, roundID, tiebreakerID, playerID int64) (*models.Transaction, error) {
	txn := new(models.Transaction)
	q := r.db.NewSelect().
		Model(txn).
		Where("round_id = ? AND player_id = ?", roundID, playerID).
		Where("transaction_type = ?", models.TransactionTypeAuctionWin)
	if tiebreakerID != 0 {
		q = q.Where("tiebreaker_id = ?", tiebreakerID)
	}

	err := q.Limit(1).Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("get_by_reference", "transaction", playerID, err)
	}
	return txn, nil
}

func (r *transactionRepository) MarkCompleted(ctx context.Context, transactionID string, at time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*models.Transaction)(nil)).
		Set("status = ?", models.TransactionStatusCompleted).
		Set("completed_at = ?", at).
		Where("transaction_id = ? AND status = ?", transactionID, models.TransactionStatusPending).
		Exec(ctx)

	if err != nil {
		return r.HandleErrorWithID("mark_completed", "transaction", transactionID, err)
	}

	// Zero rows means a replay already completed it; that is fine.
	if _, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	return nil
}

func (r *transactionRepository) MarkFailed(ctx context.Context, transactionID string) error {
	_, err := r.db.NewUpdate().
		Model((*models.Transaction)(nil)).
		Set("status = ?", models.TransactionStatusFailed).
		Where("transaction_id = ? AND status = ?", transactionID, models.TransactionStatusPending).
		Exec(ctx)
	return r.HandleErrorWithID("mark_failed", "transaction", transactionID, err)
}

func (r *transactionRepository) ListStalePending(ctx context.Context, olderThan time.Time) ([]*models.Transaction, error) {
	var txns []*models.Transaction
	err := r.db.NewSelect().
		Model(&txns).
		Where("status = ? AND created_at < ?", models.TransactionStatusPending, olderThan).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("list_stale_pending", "transaction", err)
	}
	return txns, nil
}

func (r *transactionRepository) ListBySeason(ctx context.Context, seasonID int64) ([]*models.Transaction, error) {
	var txns []*models.Transaction
	err := r.db.NewSelect().
		Model(&txns).
		Where("season_id = ?", seasonID).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("list_by_season", "transaction", err)
	}
	return txns, nil
}
