package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Shamsear/ssleague-sub021/internal/web/middleware"
	webmodels "github.com/Shamsear/ssleague-sub021/internal/web/models"
	"github.com/Shamsear/ssleague-sub021/internal/web/utils"
)

// TiebreakersList returns the caller's open tiebreakers.
func TiebreakersList(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		team, ok := middleware.TeamFromContext(c)
		if !ok {
			return utils.SendUnauthorized(c, "authentication required")
		}

		tbs, err := webApp.Tiebreakers.ListActiveByTeam(c.Context(), team.ID)
		if err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendSuccess(c, tbs, "")
	}
}

// RoundTiebreakersList returns every tiebreaker spawned by a round, after
// lazily resolving any whose window has passed.
func RoundTiebreakersList(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roundID, err := utils.ParseID(c, "id")
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}

		if err := webApp.Coordinator.ResolveDueForRound(c.Context(), roundID); err != nil {
			return utils.SendDomainError(c, err)
		}

		tbs, err := webApp.Tiebreakers.ListByRound(c.Context(), roundID)
		if err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendSuccess(c, tbs, "")
	}
}

// TiebreakersDetail returns one tiebreaker with its membership.
func TiebreakersDetail(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := utils.ParseID(c, "id")
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}

		tb, err := webApp.Tiebreakers.GetByID(c.Context(), id)
		if err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendSuccess(c, tb, "")
	}
}

// TiebreakersBid escalates the caller's bid. A losing race returns 409 with
// the fresh ceiling in the error details.
func TiebreakersBid(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := utils.ParseID(c, "id")
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}
		team, ok := middleware.TeamFromContext(c)
		if !ok {
			return utils.SendUnauthorized(c, "authentication required")
		}

		var req webmodels.TiebreakerBidRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "invalid request body", nil)
		}
		if req.Amount <= 0 {
			return utils.SendBadRequest(c, "a positive amount is required", nil)
		}

		tb, err := webApp.Coordinator.SubmitBid(c.Context(), id, team.ID, req.Amount)
		if err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendSuccess(c, tb, "bid accepted")
	}
}

// TiebreakersWithdraw removes the caller from a tiebreaker; resolution fires
// automatically when one team is left.
func TiebreakersWithdraw(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := utils.ParseID(c, "id")
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}
		team, ok := middleware.TeamFromContext(c)
		if !ok {
			return utils.SendUnauthorized(c, "authentication required")
		}

		if err := webApp.Coordinator.Withdraw(c.Context(), id, team.ID); err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendSuccess(c, nil, "withdrawn")
	}
}
