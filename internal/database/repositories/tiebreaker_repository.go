package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/uptrace/bun"
)

type TiebreakerRepository interface {
	DB() *bun.DB
	// CreateWithMembers inserts the tiebreaker and its membership rows in one
	// transaction so a crash cannot leave a tiebreaker without participants.
	CreateWithMembers(ctx context.Context, tb *models.Tiebreaker, members []*models.TeamTiebreaker) error
	GetByID(ctx context.Context, id int64) (*models.Tiebreaker, error)
	ListByRound(ctx context.Context, roundID int64) ([]*models.Tiebreaker, error)
	ListActiveByTeam(ctx context.Context, teamID int64) ([]*models.Tiebreaker, error)
	ListExpired(ctx context.Context, now time.Time) ([]*models.Tiebreaker, error)
	GetMember(ctx context.Context, tiebreakerID, teamID int64) (*models.TeamTiebreaker, error)
	// SubmitBid applies a raise as a single conditional update: it succeeds
	// only while the tiebreaker is active, inside the window, and the amount
	// is strictly above the stored highest bid. Two concurrent raises to the
	// same ceiling cannot both win; the loser sees applied == false.
	SubmitBid(ctx context.Context, tiebreakerID, teamID, amount int64, now time.Time) (applied bool, err error)
	// Withdraw marks the membership withdrawn, decrements teams_remaining and
	// clears the stored leader when the withdrawing team holds it, returning
	// the count after the decrement. The highest bid stays as the standing
	// ceiling so later raises must still exceed it.
	Withdraw(ctx context.Context, tiebreakerID, teamID int64, now time.Time) (remaining int, applied bool, err error)
	// MarkResolved and MarkExcluded are the terminal transitions; the
	// status = 'active' guard makes whichever caller wins the race the single
	// executor of the downstream settlement.
	MarkResolved(ctx context.Context, id, winnerTeamID, amount int64, now time.Time) (bool, error)
	MarkExcluded(ctx context.Context, id int64, now time.Time) (bool, error)
}

type tiebreakerRepository struct {
	*BaseRepository
	db *bun.DB
}

func NewTiebreakerRepository(db *bun.DB) TiebreakerRepository {
	return &tiebreakerRepository{
		BaseRepository: NewBaseRepository(db),
		db:             db,
	}
}

func (r *tiebreakerRepository) DB() *bun.DB {
	return r.db
}

func (r *tiebreakerRepository) CreateWithMembers(ctx context.Context, tb *models.Tiebreaker, members []*models.TeamTiebreaker) error {
	return r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		tb.CreatedAt = time.Now()
		tb.UpdatedAt = time.Now()

		if _, err := tx.NewInsert().Model(tb).Exec(ctx); err != nil {
			// The round/player unique index rejects a duplicate spawn from a
			// re-driven closing sweep.
			if strings.Contains(err.Error(), "uq_tiebreakers_round_player") {
				return &ConflictError{Entity: "tiebreaker", Field: "player_id", Value: tb.PlayerID}
			}
			return fmt.Errorf("failed to create tiebreaker: %w", err)
		}

		for _, member := range members {
			member.TiebreakerID = tb.ID
			member.CreatedAt = time.Now()
		}
		if _, err := tx.NewInsert().Model(&members).Exec(ctx); err != nil {
			return fmt.Errorf("failed to create tiebreaker members: %w", err)
		}
		return nil
	})
}

func (r *tiebreakerRepository) GetByID(ctx context.Context, id int64) (*models.Tiebreaker, error) {
	tb := new(models.Tiebreaker)
	err := r.db.NewSelect().
		Model(tb).
		Relation("Teams").
		Where("tb.id = ?", id).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleErrorWithID("get", "tiebreaker", id, err)
	}
	return tb, nil
}

func (r *tiebreakerRepository) ListByRound(ctx context.Context, roundID int64) ([]*models.Tiebreaker, error) {
	var tbs []*models.Tiebreaker
	err := r.db.NewSelect().
		Model(&tbs).
		Relation("Teams").
		Where("tb.round_id = ?", roundID).
		Order("tb.id ASC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("list_by_round", "tiebreaker", err)
	}
	return tbs, nil
}

func (r *tiebreakerRepository) ListActiveByTeam(ctx context.Context, teamID int64) ([]*models.Tiebreaker, error) {
	var tbs []*models.Tiebreaker
	err := r.db.NewSelect().
		Model(&tbs).
		Join("JOIN team_tiebreakers AS ttb ON ttb.tiebreaker_id = tb.id").
		Where("ttb.team_id = ? AND ttb.status = ?", teamID, models.TeamTiebreakerStatusActive).
		Where("tb.status = ?", models.TiebreakerStatusActive).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("list_active_by_team", "tiebreaker", err)
	}
	return tbs, nil
}

func (r *tiebreakerRepository) ListExpired(ctx context.Context, now time.Time) ([]*models.Tiebreaker, error) {
	var tbs []*models.Tiebreaker
	err := r.db.NewSelect().
		Model(&tbs).
		Where("status = ? AND max_end_time <= ?", models.TiebreakerStatusActive, now).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("list_expired", "tiebreaker", err)
	}
	return tbs, nil
}

func (r *tiebreakerRepository) GetMember(ctx context.Context, tiebreakerID, teamID int64) (*models.TeamTiebreaker, error) {
	member := new(models.TeamTiebreaker)
	err := r.db.NewSelect().
		Model(member).
		Where("tiebreaker_id = ? AND team_id = ?", tiebreakerID, teamID).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleErrorWithID("get_member", "team_tiebreaker", teamID, err)
	}
	return member, nil
}

func (r *tiebreakerRepository) SubmitBid(ctx context.Context, tiebreakerID, teamID, amount int64, now time.Time) (bool, error) {
	var applied bool

	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewUpdate().
			Model((*models.Tiebreaker)(nil)).
			Set("current_highest_bid = ?", amount).
			Set("current_highest_team_id = ?", teamID).
			Set("last_activity_time = ?", now).
			Set("updated_at = ?", now).
			Where("id = ? AND status = ?", tiebreakerID, models.TiebreakerStatusActive).
			Where("current_highest_bid < ?", amount).
			Where("max_end_time > ?", now).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update tiebreaker bid: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			// Lost the race, window closed, or tiebreaker already terminal.
			// The caller re-reads to classify.
			return nil
		}

		if _, err := tx.NewUpdate().
			Model((*models.TeamTiebreaker)(nil)).
			Set("new_bid_amount = ?", amount).
			Set("submitted = TRUE").
			Set("submitted_at = ?", now).
			Where("tiebreaker_id = ? AND team_id = ? AND status = ?",
				tiebreakerID, teamID, models.TeamTiebreakerStatusActive).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to update membership bid: %w", err)
		}

		applied = true
		return nil
	})

	return applied, err
}

func (r *tiebreakerRepository) Withdraw(ctx context.Context, tiebreakerID, teamID int64, now time.Time) (int, bool, error) {
	var remaining int
	var applied bool

	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		result, err := tx.NewUpdate().
			Model((*models.TeamTiebreaker)(nil)).
			Set("status = ?", models.TeamTiebreakerStatusWithdrawn).
			Set("withdrawn_at = ?", now).
			Where("tiebreaker_id = ? AND team_id = ? AND status = ?",
				tiebreakerID, teamID, models.TeamTiebreakerStatusActive).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to withdraw membership: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return nil
		}

		if _, err := tx.NewUpdate().
			Model((*models.Tiebreaker)(nil)).
			Set("teams_remaining = teams_remaining - 1").
			Set("last_activity_time = ?", now).
			Set("updated_at = ?", now).
			Where("id = ? AND status = ?", tiebreakerID, models.TiebreakerStatusActive).
			Returning("teams_remaining").
			Exec(ctx, &remaining); err != nil {
			return fmt.Errorf("failed to decrement teams remaining: %w", err)
		}

		// A withdrawn team must not remain the stored leader, or an expiry
		// would resolve in its favor.
		if _, err := tx.NewUpdate().
			Model((*models.Tiebreaker)(nil)).
			Set("current_highest_team_id = 0").
			Where("id = ? AND current_highest_team_id = ?", tiebreakerID, teamID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear withdrawn leader: %w", err)
		}

		applied = true
		return nil
	})

	return remaining, applied, err
}

func (r *tiebreakerRepository) MarkResolved(ctx context.Context, id, winnerTeamID, amount int64, now time.Time) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*models.Tiebreaker)(nil)).
		Set("status = ?", models.TiebreakerStatusResolved).
		Set("winner_team_id = ?", winnerTeamID).
		Set("winning_amount = ?", amount).
		Set("resolved_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ? AND status = ?", id, models.TiebreakerStatusActive).
		Exec(ctx)

	if err != nil {
		return false, r.HandleErrorWithID("mark_resolved", "tiebreaker", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *tiebreakerRepository) MarkExcluded(ctx context.Context, id int64, now time.Time) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*models.Tiebreaker)(nil)).
		Set("status = ?", models.TiebreakerStatusExcluded).
		Set("resolved_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ? AND status = ?", id, models.TiebreakerStatusActive).
		Exec(ctx)

	if err != nil {
		return false, r.HandleErrorWithID("mark_excluded", "tiebreaker", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}
