package middleware

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/Shamsear/ssleague-sub021/internal/database/repositories"
	"github.com/Shamsear/ssleague-sub021/internal/web/utils"
)

const teamLocalKey = "team"

// AuthRequired resolves the bearer token to a team and stores it in the
// request context.
func AuthRequired(teams repositories.TeamRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return utils.SendUnauthorized(c, "missing bearer token")
		}

		team, err := teams.GetByAPIToken(c.Context(), token)
		if err != nil {
			if repositories.IsNotFound(err) {
				return utils.SendUnauthorized(c, "invalid token")
			}
			slog.Error("Token lookup failed", slog.Any("error", err))
			return utils.SendInternalServerError(c, "authentication unavailable")
		}

		c.Locals(teamLocalKey, team)
		return c.Next()
	}
}

// AdminRequired gates the admin surface: either the caller's team carries an
// admin role, or the request presents the static admin token.
func AdminRequired(adminToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if adminToken != "" {
			provided := c.Get("X-Admin-Token")
			if provided != "" && subtle.ConstantTimeCompare([]byte(provided), []byte(adminToken)) == 1 {
				return c.Next()
			}
		}

		team, ok := TeamFromContext(c)
		if !ok {
			return utils.SendForbidden(c, "admin access required")
		}
		if team.Role != models.RoleAdmin && team.Role != models.RoleCommitteeAdmin {
			slog.Warn("Admin access denied",
				slog.Int64("team_id", team.ID),
				slog.String("role", string(team.Role)))
			return utils.SendForbidden(c, "admin access required")
		}
		return c.Next()
	}
}

// TeamFromContext returns the authenticated team stored by AuthRequired.
func TeamFromContext(c *fiber.Ctx) (*models.Team, bool) {
	team, ok := c.Locals(teamLocalKey).(*models.Team)
	return team, ok
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
