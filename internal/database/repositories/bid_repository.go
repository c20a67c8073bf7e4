package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/uptrace/bun"
)

type BidRepository interface {
	DB() *bun.DB
	Create(ctx context.Context, bid *models.Bid) error
	GetByID(ctx context.Context, id int64) (*models.Bid, error)
	GetByRound(ctx context.Context, roundID int64) ([]*models.Bid, error)
	// Cancel marks a pending bid cancelled, guarded so it can only happen
	// while the bid is still pending.
	Cancel(ctx context.Context, id, teamID int64) (bool, error)
	MarkWon(ctx context.Context, id int64) error
	MarkLost(ctx context.Context, ids []int64) error
}

type bidRepository struct {
	*BaseRepository
	db *bun.DB
}

func NewBidRepository(db *bun.DB) BidRepository {
	return &bidRepository{
		BaseRepository: NewBaseRepository(db),
		db:             db,
	}
}

func (r *bidRepository) DB() *bun.DB {
	return r.db
}

func (r *bidRepository) Create(ctx context.Context, bid *models.Bid) error {
	bid.Status = models.BidStatusPending
	bid.CreatedAt = time.Now()
	bid.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().Model(bid).Exec(ctx)
	if err != nil {
		// The partial unique index rejects a second live bid on the same
		// player; report it as a conflict rather than a raw pg error.
		if strings.Contains(err.Error(), "uq_bids_team_player_round") {
			return &ConflictError{Entity: "bid", Field: "player_id", Value: bid.PlayerID}
		}
		return r.HandleError("create", "bid", err)
	}
	return nil
}

func (r *bidRepository) GetByID(ctx context.Context, id int64) (*models.Bid, error) {
	bid := new(models.Bid)
	err := r.db.NewSelect().
		Model(bid).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleErrorWithID("get", "bid", id, err)
	}
	return bid, nil
}

func (r *bidRepository) GetByRound(ctx context.Context, roundID int64) ([]*models.Bid, error) {
	var bids []*models.Bid
	err := r.db.NewSelect().
		Model(&bids).
		Where("round_id = ? AND status <> ?", roundID, models.BidStatusCancelled).
		Order("player_id ASC", "amount DESC").
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("get_by_round", "bid", err)
	}
	return bids, nil
}

func (r *bidRepository) Cancel(ctx context.Context, id, teamID int64) (bool, error) {
	result, err := r.db.NewUpdate().
		Model((*models.Bid)(nil)).
		Set("status = ?", models.BidStatusCancelled).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND team_id = ? AND status = ?", id, teamID, models.BidStatusPending).
		Exec(ctx)

	if err != nil {
		return false, r.HandleErrorWithID("cancel", "bid", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows == 1, nil
}

func (r *bidRepository) MarkWon(ctx context.Context, id int64) error {
	_, err := r.db.NewUpdate().
		Model((*models.Bid)(nil)).
		Set("status = ?", models.BidStatusWon).
		Set("updated_at = ?", time.Now()).
		Where("id = ? AND status = ?", id, models.BidStatusPending).
		Exec(ctx)
	return r.HandleErrorWithID("mark_won", "bid", id, err)
}

func (r *bidRepository) MarkLost(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.db.NewUpdate().
		Model((*models.Bid)(nil)).
		Set("status = ?", models.BidStatusLost).
		Set("updated_at = ?", time.Now()).
		Where("id IN (?) AND status = ?", bun.In(ids), models.BidStatusPending).
		Exec(ctx)
	return r.HandleError("mark_lost", "bid", err)
}
