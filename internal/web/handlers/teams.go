package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/Shamsear/ssleague-sub021/internal/ledger"
	"github.com/Shamsear/ssleague-sub021/internal/web/middleware"
	webmodels "github.com/Shamsear/ssleague-sub021/internal/web/models"
	"github.com/Shamsear/ssleague-sub021/internal/web/utils"
)

// TeamsCreate registers a team.
func TeamsCreate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.CreateTeamRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "invalid request body", nil)
		}
		if req.Name == "" || req.APIToken == "" {
			return utils.SendBadRequest(c, "name and api_token are required", nil)
		}

		team := &models.Team{
			Name:     req.Name,
			Role:     models.TeamRole(req.Role),
			APIToken: req.APIToken,
		}
		if team.Role == "" {
			team.Role = models.RoleTeam
		}
		if err := webApp.Teams.Create(c.Context(), team); err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendCreated(c, team, "team created")
	}
}

// PlayersCreate registers an auctionable player.
func PlayersCreate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.CreatePlayerRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "invalid request body", nil)
		}
		if req.SeasonID <= 0 || req.Name == "" || req.Position == "" {
			return utils.SendBadRequest(c, "season_id, name and position are required", nil)
		}

		player := &models.Player{
			SeasonID: req.SeasonID,
			Name:     req.Name,
			Position: req.Position,
		}
		if err := webApp.Players.Create(c.Context(), player); err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendCreated(c, player, "player created")
	}
}

// LedgersCreate opens a team's season ledger with its starting budgets.
func LedgersCreate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.CreateLedgerRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "invalid request body", nil)
		}
		if req.TeamID <= 0 || req.SeasonID <= 0 {
			return utils.SendBadRequest(c, "team_id and season_id are required", nil)
		}

		l := &ledger.Ledger{
			TeamID:           req.TeamID,
			SeasonID:         req.SeasonID,
			FootballBudget:   req.FootballBudget,
			RealPlayerBudget: req.RealPlayerBudget,
			CurrencySystem:   ledger.CurrencySystem(req.CurrencySystem),
		}
		if l.CurrencySystem == "" {
			l.CurrencySystem = ledger.CurrencySingle
		}
		if err := webApp.Ledgers.Create(c.Context(), l); err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendCreated(c, l, "ledger created")
	}
}

// LedgerDetail returns a team's season ledger. Teams may only read their
// own; admin roles may read any.
func LedgerDetail(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		teamID, err := utils.ParseID(c, "id")
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}
		seasonID, err := strconv.ParseInt(c.Query("season_id"), 10, 64)
		if err != nil || seasonID <= 0 {
			return utils.SendBadRequest(c, "season_id query parameter is required", nil)
		}

		caller, ok := middleware.TeamFromContext(c)
		if !ok {
			return utils.SendUnauthorized(c, "authentication required")
		}
		if caller.ID != teamID && caller.Role == models.RoleTeam {
			return utils.SendForbidden(c, "cannot read another team's ledger")
		}

		l, err := webApp.Ledgers.Get(c.Context(), teamID, seasonID)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return utils.SendNotFound(c, "ledger not found")
			}
			return utils.SendDomainError(c, err)
		}
		return utils.SendSuccess(c, l, "")
	}
}
