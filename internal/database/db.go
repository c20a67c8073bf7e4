package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"time"

	"log/slog"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/Shamsear/ssleague-sub021/internal/logger"
	"github.com/uptrace/bun"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	defaultConnTimeout   = 5 * time.Second
	defaultMaxRetries    = 3
	defaultRetryInterval = time.Second
)

type DBConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
	MaxLifetime  int    `toml:"max_lifetime"`
}

type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func New(ctx context.Context, cfg DBConfig) (*DB, error) {
	// Preflight dial with retries so a booting database doesn't surface as a
	// cryptic pool error.
	var conn net.Conn
	var err error

	tryDial := func() (net.Conn, error) {
		addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
		if c, e := net.DialTimeout("tcp4", addr, defaultConnTimeout); e == nil {
			return c, nil
		}
		return net.DialTimeout("tcp6", addr, defaultConnTimeout)
	}

	for i := 0; i < defaultMaxRetries; i++ {
		conn, err = tryDial()
		if err == nil {
			break
		}
		time.Sleep(defaultRetryInterval)
	}
	if err != nil {
		return nil, fmt.Errorf("database server unreachable after %d attempts: %w", defaultMaxRetries, err)
	}
	defer conn.Close()

	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	if cfg.PoolSize > 0 {
		poolConfig.MaxConns = int32(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = time.Duration(cfg.MaxLifetime) * time.Second
	}

	return createDB(ctx, poolConfig)
}

func buildConnString(cfg DBConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?connect_timeout=5",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
	)
}

func createDB(ctx context.Context, poolConfig *pgxpool.Config) (*DB, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	bunDB := newBunDB(pool)
	return &DB{pool: pool, bunDB: bunDB}, nil
}

func newBunDB(pool *pgxpool.Pool) *bun.DB {
	sslMode := os.Getenv("PG_SSLMODE")
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pool.Config().ConnConfig.User,
		pool.Config().ConnConfig.Password,
		pool.Config().ConnConfig.Host,
		pool.Config().ConnConfig.Port,
		pool.Config().ConnConfig.Database,
		sslMode,
	)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (db *DB) GetPool() *pgxpool.Pool {
	return db.pool
}

func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) Close() {
	if db.bunDB != nil {
		db.bunDB.Close()
	}
	if db.pool != nil {
		db.pool.Close()
	}
}

// InitializeSchema creates the auction tables and the indexes the engine's
// conditional updates rely on. Safe to call on every boot.
func (db *DB) InitializeSchema(ctx context.Context) error {
	tables := []interface{}{
		(*models.Team)(nil),
		(*models.Player)(nil),
		(*models.Round)(nil),
		(*models.Bid)(nil),
		(*models.Tiebreaker)(nil),
		(*models.TeamTiebreaker)(nil),
		(*models.Transaction)(nil),
	}

	for _, model := range tables {
		if _, err := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}

	indexes := []struct {
		model   interface{}
		name    string
		columns []string
		unique  bool
	}{
		{(*models.Bid)(nil), "idx_bids_round_player", []string{"round_id", "player_id"}, false},
		{(*models.Bid)(nil), "idx_bids_team", []string{"team_id"}, false},
		{(*models.Tiebreaker)(nil), "idx_tiebreakers_round", []string{"round_id"}, false},
		{(*models.Tiebreaker)(nil), "idx_tiebreakers_status", []string{"status"}, false},
		{(*models.TeamTiebreaker)(nil), "idx_team_tiebreakers_team", []string{"team_id"}, false},
		{(*models.Transaction)(nil), "idx_transactions_season", []string{"season_id"}, false},
		{(*models.Transaction)(nil), "idx_transactions_status", []string{"status"}, false},
	}

	for _, idx := range indexes {
		q := db.bunDB.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			IfNotExists()
		for _, col := range idx.columns {
			q = q.Column(col)
		}
		if idx.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	// One non-cancelled bid per team/player/round; enforced here rather than
	// in application code so concurrent inserts cannot slip past the check.
	if _, err := db.ExecWithLog(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS uq_bids_team_player_round
		ON bids (team_id, player_id, round_id)
		WHERE status <> 'cancelled'
	`); err != nil {
		return fmt.Errorf("failed to create partial bid index: %w", err)
	}

	// One tiebreaker per player per round, so a re-driven closing sweep that
	// races another caller inserts at most once.
	if _, err := db.ExecWithLog(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS uq_tiebreakers_round_player
		ON tiebreakers (round_id, player_id)
	`); err != nil {
		return fmt.Errorf("failed to create tiebreaker uniqueness index: %w", err)
	}

	// One win intent per settlement reference; the loser of a concurrent
	// CreatePending re-reads the winner's intent instead of double-charging.
	if _, err := db.ExecWithLog(ctx, `
		CREATE UNIQUE INDEX IF NOT EXISTS uq_transactions_reference
		ON transactions (round_id, player_id, COALESCE(tiebreaker_id, 0))
		WHERE transaction_type = 'auction_win'
	`); err != nil {
		return fmt.Errorf("failed to create transaction reference index: %w", err)
	}

	slog.Info("Database schema initialized",
		slog.String("type", "db"),
		slog.Int("tables", len(tables)))
	return nil
}

func (db *DB) ExecWithLog(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	start := time.Now()
	result, err := db.pool.Exec(ctx, sql, args...)
	logger.LogQuery(sql, time.Since(start), err)
	return result, err
}
