package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/uptrace/bun"
)

type RoundRepository interface {
	DB() *bun.DB
	Create(ctx context.Context, round *models.Round) error
	GetByID(ctx context.Context, id int64) (*models.Round, error)
	GetActiveBySeason(ctx context.Context, seasonID int64) (*models.Round, error)
	// Start flips draft -> active with the window stamped, guarded by the
	// current status. Returns false when the round was not in draft.
	Start(ctx context.Context, id int64, start, end time.Time) (bool, error)
	// BeginClosing flips active -> tiebreaker_pending only when the round is
	// still active and its window has passed. The single winner of this
	// conditional update owns the closure side effects.
	BeginClosing(ctx context.Context, id int64, now time.Time) (bool, error)
	// Complete flips tiebreaker_pending -> completed.
	Complete(ctx context.Context, id int64) (bool, error)
	// MarkClosed records that the closing sweep over the round's bids ran to
	// completion. Callers re-run the sweep until this sticks; the sweep is
	// idempotent so re-runs after a transient failure are safe.
	MarkClosed(ctx context.Context, id int64, now time.Time) (bool, error)
	// CompleteIfNoOpenTiebreakers completes the round iff the closing sweep
	// finished and none of its tiebreakers are still active, as a single
	// conditional statement.
	CompleteIfNoOpenTiebreakers(ctx context.Context, id int64) (bool, error)
}

type roundRepository struct {
	*BaseRepository
	db *bun.DB
}

func NewRoundRepository(db *bun.DB) RoundRepository {
	return &roundRepository{
		BaseRepository: NewBaseRepository(db),
		db:             db,
	}
}

func (r *roundRepository) DB() *bun.DB {
	return r.db
}

func (r *roundRepository) Create(ctx context.Context, round *models.Round) error {
	round.Status = models.RoundStatusDraft
	round.CreatedAt = time.Now()
	round.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().Model(round).Exec(ctx)
	return r.HandleError("create", "round", err)
}

func (r *roundRepository) GetByID(ctx context.Context, id int64) (*models.Round, error) {
	round := new(models.Round)
	err := r.db.NewSelect().
		Model(round).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleErrorWithID("get", "round", id, err)
	}
	return round, nil
}

func (r *roundRepository) GetActiveBySeason(ctx context.Context, seasonID int64) (*models.Round, error) {
	round := new(models.Round)
	err := r.db.NewSelect().
		Model(round).
		Where("season_id = ? AND status = ?", seasonID, models.RoundStatusActive).
		Limit(1).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("get_active", "round", err)
	}
	return round, nil
}

func (r *roundRepository) Start(ctx context.Context, id int64, start, end time.Time) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*models.Round)(nil)).
		Set("status = ?", models.RoundStatusActive).
		Set("start_time = ?", start).
		Set("end_time = ?", end).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND status = ?", id, models.RoundStatusDraft).
		Exec(ctx)

	if err != nil {
		return false, r.HandleErrorWithID("start", "round", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *roundRepository) BeginClosing(ctx context.Context, id int64, now time.Time) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*models.Round)(nil)).
		Set("status = ?", models.RoundStatusTiebreakerPending).
		Set("updated_at = ?", now).
		Where("id = ? AND status = ? AND end_time <= ?", id, models.RoundStatusActive, now).
		Exec(ctx)

	if err != nil {
		return false, r.HandleErrorWithID("begin_closing", "round", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *roundRepository) Complete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*models.Round)(nil)).
		Set("status = ?", models.RoundStatusCompleted).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND status = ?", id, models.RoundStatusTiebreakerPending).
		Exec(ctx)

	if err != nil {
		return false, r.HandleErrorWithID("complete", "round", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *roundRepository) MarkClosed(ctx context.Context, id int64, now time.Time) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*models.Round)(nil)).
		Set("closed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ? AND closed_at IS NULL", id).
		Exec(ctx)

	if err != nil {
		return false, r.HandleErrorWithID("mark_closed", "round", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *roundRepository) CompleteIfNoOpenTiebreakers(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*models.Round)(nil)).
		Set("status = ?", models.RoundStatusCompleted).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND status = ? AND closed_at IS NOT NULL", id, models.RoundStatusTiebreakerPending).
		Where("NOT EXISTS (SELECT 1 FROM tiebreakers WHERE round_id = ? AND status = ?)",
			id, models.TiebreakerStatusActive).
		Exec(ctx)

	if err != nil {
		return false, r.HandleErrorWithID("complete_if_no_open_tiebreakers", "round", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}
