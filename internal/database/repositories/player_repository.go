package repositories

import (
	"context"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	lru "github.com/hashicorp/golang-lru"
	"github.com/uptrace/bun"
)

const playerCacheSize = 10000

type PlayerRepository interface {
	DB() *bun.DB
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id int64) (*models.Player, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Player, error)
}

// playerRepository caches player rows in an LRU; player metadata is
// immutable for the life of a season, so cache entries never go stale.
type playerRepository struct {
	*BaseRepository
	db    *bun.DB
	cache *lru.Cache
}

func NewPlayerRepository(db *bun.DB) PlayerRepository {
	cache, _ := lru.New(playerCacheSize)
	return &playerRepository{
		BaseRepository: NewBaseRepository(db),
		db:             db,
		cache:          cache,
	}
}

func (r *playerRepository) DB() *bun.DB {
	return r.db
}

func (r *playerRepository) Create(ctx context.Context, player *models.Player) error {
	_, err := r.db.NewInsert().Model(player).Exec(ctx)
	return r.HandleError("create", "player", err)
}

func (r *playerRepository) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	if cached, ok := r.cache.Get(id); ok {
		return cached.(*models.Player), nil
	}

	player := new(models.Player)
	err := r.db.NewSelect().
		Model(player).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		return nil, r.HandleErrorWithID("get", "player", id, err)
	}

	r.cache.Add(id, player)
	return player, nil
}

func (r *playerRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*models.Player, error) {
	result := make(map[int64]*models.Player, len(ids))
	var missing []int64

	for _, id := range ids {
		if cached, ok := r.cache.Get(id); ok {
			result[id] = cached.(*models.Player)
		} else {
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		var players []*models.Player
		err := r.db.NewSelect().
			Model(&players).
			Where("id IN (?)", bun.In(missing)).
			Scan(ctx)
		if err != nil {
			return nil, r.HandleError("get_by_ids", "player", err)
		}

		for _, p := range players {
			r.cache.Add(p.ID, p)
			result[p.ID] = p
		}
	}

	return result, nil
}
