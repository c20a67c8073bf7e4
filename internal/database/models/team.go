package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TeamRole string

const (
	RoleTeam           TeamRole = "team"
	RoleAdmin          TeamRole = "admin"
	RoleCommitteeAdmin TeamRole = "committee_admin"
)

// Team is a registered auction participant. APIToken authenticates its
// requests; Role gates the admin surface.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID       int64    `bun:"id,pk,autoincrement" json:"id"`
	SeasonID int64    `bun:"season_id,notnull" json:"season_id"`
	Name     string   `bun:"name,notnull" json:"name"`
	Role     TeamRole `bun:"role,notnull,default:'team'" json:"role"`
	APIToken string   `bun:"api_token,notnull,unique" json:"-"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Player is an auctionable real player. Rows are immutable within a season,
// which is what makes them safe to cache.
type Player struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID       int64  `bun:"id,pk,autoincrement" json:"id"`
	SeasonID int64  `bun:"season_id,notnull" json:"season_id"`
	Name     string `bun:"name,notnull" json:"name"`
	Position string `bun:"position,notnull" json:"position"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
