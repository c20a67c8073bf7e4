package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Shamsear/ssleague-sub021/internal/web/utils"
)

// ReconcileRun triggers one reconciler sweep over stale settlement intents.
func ReconcileRun(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		replayed, err := webApp.Reconciler.Run(c.Context())
		if err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendSuccess(c, fiber.Map{"replayed": replayed}, "reconcile complete")
	}
}

// TiebreakerReconcile re-drives the settlement of one resolved tiebreaker and
// reports the winner's ledger before and after, so an operator can see exactly
// what the replay changed.
func TiebreakerReconcile(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tiebreakerID, err := utils.ParseID(c, "id")
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}

		tb, err := webApp.Tiebreakers.GetByID(c.Context(), tiebreakerID)
		if err != nil {
			return utils.SendDomainError(c, err)
		}

		before := ledgerSnapshot(c, webApp, tb.WinnerTeamID, tb.SeasonID)

		txn, err := webApp.Reconciler.ReconcileTiebreaker(c.Context(), tiebreakerID)
		if err != nil {
			return utils.SendDomainError(c, err)
		}

		after := ledgerSnapshot(c, webApp, tb.WinnerTeamID, tb.SeasonID)

		return utils.SendSuccess(c, fiber.Map{
			"transaction": txn,
			"before":      before,
			"after":       after,
		}, "tiebreaker reconciled")
	}
}

// ledgerSnapshot captures the diffable ledger fields, or nil when the ledger
// cannot be read.
func ledgerSnapshot(c *fiber.Ctx, webApp *WebApp, teamID, seasonID int64) fiber.Map {
	l, err := webApp.Ledgers.Get(c.Context(), teamID, seasonID)
	if err != nil {
		return nil
	}
	return fiber.Map{
		"football_budget":    l.FootballBudget,
		"football_spent":     l.FootballSpent,
		"real_player_budget": l.RealPlayerBudget,
		"real_player_spent":  l.RealPlayerSpent,
		"position_counts":    l.PositionCounts,
	}
}

// TransactionsList returns a season's settlement log.
func TransactionsList(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		seasonID, err := utils.ParseID(c, "id")
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}

		txns, err := webApp.Txns.ListBySeason(c.Context(), seasonID)
		if err != nil {
			return utils.SendDomainError(c, err)
		}
		return utils.SendSuccess(c, txns, "")
	}
}

// ArchiveSeason exports a season's settlement log to the audit bucket.
func ArchiveSeason(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		seasonID, err := utils.ParseID(c, "id")
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}
		if webApp.Archiver == nil {
			return utils.SendError(c, fiber.StatusServiceUnavailable, "ARCHIVE_DISABLED",
				"audit archive is not configured", nil)
		}

		txns, err := webApp.Txns.ListBySeason(c.Context(), seasonID)
		if err != nil {
			return utils.SendDomainError(c, err)
		}

		key, err := webApp.Archiver.ExportSeason(c.Context(), seasonID, txns)
		if err != nil {
			return utils.SendInternalServerError(c, "archive export failed")
		}
		return utils.SendSuccess(c, fiber.Map{"key": key, "count": len(txns)}, "season archived")
	}
}
