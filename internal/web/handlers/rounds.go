package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Shamsear/ssleague-sub021/internal/database/models"
	"github.com/Shamsear/ssleague-sub021/internal/web/middleware"
	webmodels "github.com/Shamsear/ssleague-sub021/internal/web/models"
	"github.com/Shamsear/ssleague-sub021/internal/web/utils"
)

// RoundsCreate registers a draft round.
func RoundsCreate(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req webmodels.CreateRoundRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "invalid request body", nil)
		}
		if req.SeasonID <= 0 || req.DurationSeconds <= 0 {
			return utils.SendBadRequest(c, "season_id and duration_seconds are required", nil)
		}

		round := &models.Round{
			SeasonID:        req.SeasonID,
			RoundNumber:     req.RoundNumber,
			RoundType:       models.RoundType(req.RoundType),
			Position:        req.Position,
			Currency:        models.CurrencyType(req.Currency),
			DurationSeconds: req.DurationSeconds,
		}
		if err := webApp.Rounds.CreateRound(c.Context(), round); err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendCreated(c, round, "round created")
	}
}

// RoundsStart opens a draft round's bidding window.
func RoundsStart(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := utils.ParseID(c, "id")
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}

		round, err := webApp.Rounds.StartRound(c.Context(), id)
		if err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendSuccess(c, round, "round started")
	}
}

// RoundsStatus returns the round as the calling team should see it,
// finalizing any elapsed deadline on the way.
func RoundsStatus(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := utils.ParseID(c, "id")
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}
		team, _ := middleware.TeamFromContext(c)

		var teamID int64
		if team != nil {
			teamID = team.ID
		}
		view, err := webApp.Rounds.GetStatus(c.Context(), id, teamID)
		if err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendSuccess(c, view, "")
	}
}

// BidsPlace records a sealed bid in an active round.
func BidsPlace(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roundID, err := utils.ParseID(c, "id")
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}
		team, ok := middleware.TeamFromContext(c)
		if !ok {
			return utils.SendUnauthorized(c, "authentication required")
		}

		var req webmodels.PlaceBidRequest
		if err := c.BodyParser(&req); err != nil {
			return utils.SendBadRequest(c, "invalid request body", nil)
		}
		if req.PlayerID <= 0 || req.Amount <= 0 {
			return utils.SendBadRequest(c, "player_id and a positive amount are required", nil)
		}

		bid, err := webApp.Rounds.PlaceBid(c.Context(), roundID, team.ID, req.PlayerID, req.Amount)
		if err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendCreated(c, bid, "bid placed")
	}
}

// BidsCancel withdraws the caller's pending bid before the round closes.
func BidsCancel(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bidID, err := utils.ParseID(c, "id")
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}
		team, ok := middleware.TeamFromContext(c)
		if !ok {
			return utils.SendUnauthorized(c, "authentication required")
		}

		if err := webApp.Rounds.CancelBid(c.Context(), bidID, team.ID); err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendSuccess(c, nil, "bid cancelled")
	}
}
