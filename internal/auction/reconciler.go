package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/Shamsear/ssleague-sub021/internal/database/repositories"
	"github.com/Shamsear/ssleague-sub021/internal/ledger"
)

const reconcileConcurrency = 4

// Reconciler sweeps settlement intents that were created but never marked
// completed, which happens when the process dies between the ledger write
// and the completion mark, or when the ledger write itself failed
// transiently. Replaying through the Settler is safe: the ledger update is
// guarded by the transaction id, so an intent whose delta already landed
// just gets its completion mark.
type Reconciler struct {
	txns        repositories.TransactionRepository
	tiebreakers repositories.TiebreakerRepository
	ledgers     ledger.Store
	settler     *Settler
	after       time.Duration
	nowFn       func() time.Time
}

func NewReconciler(
	txns repositories.TransactionRepository,
	tiebreakers repositories.TiebreakerRepository,
	ledgers ledger.Store,
	settler *Settler,
	after time.Duration,
) *Reconciler {
	return &Reconciler{
		txns:        txns,
		tiebreakers: tiebreakers,
		ledgers:     ledgers,
		settler:     settler,
		after:       after,
		nowFn:       time.Now,
	}
}

// Run performs one sweep and returns the number of intents replayed.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	cutoff := r.nowFn().Add(-r.after)
	stale, err := r.txns.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale pending transactions: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	slog.Info("Reconciling stale settlement intents", slog.Int("count", len(stale)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for _, txn := range stale {
		txn := txn
		g.Go(func() error {
			return r.replayOne(gctx, txn)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(stale), nil
}

// RunLoop sweeps on an interval until the context is cancelled.
func (r *Reconciler) RunLoop(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Run(ctx); err != nil {
				slog.Error("Reconciler sweep failed", slog.Any("error", err))
			}
		}
	}
}

func (r *Reconciler) replayOne(ctx context.Context, txn *models.Transaction) error {
	// An intent referencing a tiebreaker is only valid while that
	// tiebreaker still names the same winner. A mismatch means the intent
	// is an orphan from an interrupted resolution and must not touch the
	// ledger.
	if txn.TiebreakerID != 0 {
		tb, err := r.tiebreakers.GetByID(ctx, txn.TiebreakerID)
		if err != nil {
			if repositories.IsNotFound(err) {
				return r.abandon(ctx, txn, "tiebreaker no longer exists")
			}
			return fmt.Errorf("failed to load tiebreaker %d: %w", txn.TiebreakerID, err)
		}
		if tb.Status != models.TiebreakerStatusResolved || tb.WinnerTeamID != txn.TeamID {
			return r.abandon(ctx, txn, "tiebreaker outcome no longer matches intent")
		}
	}

	if err := r.settler.Replay(ctx, txn); err != nil {
		// Fatal outcomes already moved the intent to failed inside the
		// settler; anything else stays pending for the next sweep.
		if IsLedgerNotFound(err) || IsInsufficientBudget(err) {
			slog.Warn("Settlement intent failed permanently during reconcile",
				slog.String("transaction_id", txn.TransactionID),
				slog.Any("error", err))
			return nil
		}
		slog.Error("Settlement intent replay failed, will retry",
			slog.String("transaction_id", txn.TransactionID),
			slog.Any("error", err))
		return nil
	}

	slog.Info("Settlement intent reconciled",
		slog.String("transaction_id", txn.TransactionID),
		slog.Int64("team_id", txn.TeamID))
	return nil
}

func (r *Reconciler) abandon(ctx context.Context, txn *models.Transaction, reason string) error {
	slog.Warn("Abandoning orphaned settlement intent",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("reason", reason))

	// The crash may have landed the delta before the intent was orphaned; the
	// revert is keyed on the transaction id so it is a no-op otherwise.
	result, err := r.ledgers.Revert(ctx, deltaFromTransaction(txn))
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("failed to revert orphaned delta %s: %w", txn.TransactionID, err)
	}
	if result == ledger.ApplyApplied {
		slog.Info("Reverted orphaned ledger delta",
			slog.String("transaction_id", txn.TransactionID),
			slog.Int64("team_id", txn.TeamID),
			slog.Int64("amount", txn.Amount))
	}

	if err := r.txns.MarkFailed(ctx, txn.TransactionID); err != nil {
		return fmt.Errorf("failed to mark transaction failed: %w", err)
	}
	return nil
}

// ReconcileTiebreaker re-drives the settlement of one resolved tiebreaker and
// returns the settlement record. A missing intent is rebuilt from the stored
// outcome, so even a crash before the intent write is recoverable.
func (r *Reconciler) ReconcileTiebreaker(ctx context.Context, tiebreakerID int64) (*models.Transaction, error) {
	tb, err := r.tiebreakers.GetByID(ctx, tiebreakerID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &NotFoundError{Entity: "tiebreaker", ID: tiebreakerID}
		}
		return nil, fmt.Errorf("failed to load tiebreaker %d: %w", tiebreakerID, err)
	}
	if tb.Status != models.TiebreakerStatusResolved {
		return nil, &InvalidStateError{
			Entity: "tiebreaker", ID: tb.ID, Status: string(tb.Status),
			Reason: "only resolved tiebreakers have a settlement to reconcile",
		}
	}

	txn, err := r.txns.GetByReference(ctx, tb.RoundID, tb.ID, tb.PlayerID)
	if err != nil && !repositories.IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up settlement for tiebreaker %d: %w", tb.ID, err)
	}
	if err == nil && txn.TeamID != tb.WinnerTeamID {
		return nil, &InvalidStateError{
			Entity: "transaction", ID: txn.ID, Status: string(txn.Status),
			Reason: "settlement names a different team than the tiebreaker winner",
		}
	}

	settled, err := r.settler.Settle(ctx, SettlementRequest{
		TeamID:       tb.WinnerTeamID,
		SeasonID:     tb.SeasonID,
		PlayerID:     tb.PlayerID,
		Position:     tb.Position,
		Amount:       tb.WinningAmount,
		Currency:     tb.Currency,
		RoundID:      tb.RoundID,
		TiebreakerID: tb.ID,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Tiebreaker settlement reconciled",
		slog.Int64("tiebreaker_id", tb.ID),
		slog.String("transaction_id", settled.TransactionID))
	return settled, nil
}

func deltaFromTransaction(txn *models.Transaction) ledger.Delta {
	return ledger.Delta{
		TeamID:        txn.TeamID,
		SeasonID:      txn.SeasonID,
		TransactionID: txn.TransactionID,
		Currency:      string(txn.CurrencyType),
		Amount:        txn.Amount,
		Position:      txn.Position,
	}
}
