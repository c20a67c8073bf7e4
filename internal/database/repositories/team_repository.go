package repositories

import (
	"context"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/uptrace/bun"
)

type TeamRepository interface {
	DB() *bun.DB
	Create(ctx context.Context, team *models.Team) error
	GetByID(ctx context.Context, id int64) (*models.Team, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Team, error)
	GetByAPIToken(ctx context.Context, token string) (*models.Team, error)
}

type teamRepository struct {
	*BaseRepository
	db *bun.DB
}

func NewTeamRepository(db *bun.DB) TeamRepository {
	return &teamRepository{
		BaseRepository: NewBaseRepository(db),
		db:             db,
	}
}

func (r *teamRepository) DB() *bun.DB {
	return r.db
}

func (r *teamRepository) Create(ctx context.Context, team *models.Team) error {
	_, err := r.db.NewInsert().Model(team).Exec(ctx)
	return r.HandleError("create", "team", err)
}

func (r *teamRepository) GetByID(ctx context.Context, id int64) (*models.Team, error) {
	team := new(models.Team)
	err := r.db.NewSelect().
		Model(team).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleErrorWithID("get", "team", id, err)
	}
	return team, nil
}

func (r *teamRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Team, error) {
	var teams []*models.Team
	err := r.db.NewSelect().
		Model(&teams).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("get_by_ids", "team", err)
	}

	result := make(map[int64]*models.Team, len(teams))
	for _, t := range teams {
		result[t.ID] = t
	}
	return result, nil
}

func (r *teamRepository) GetByAPIToken(ctx context.Context, token string) (*models.Team, error) {
	team := new(models.Team)
	err := r.db.NewSelect().
		Model(team).
		Where("api_token = ?", token).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleError("get_by_token", "team", err)
	}
	return team, nil
}
