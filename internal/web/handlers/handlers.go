package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Shamsear/ssleague-sub021/internal/archive"
	"github.com/Shamsear/ssleague-sub021/internal/auction"
	"github.com/Shamsear/ssleague-sub021/internal/broadcast"
	"github.com/Shamsear/ssleague-sub021/internal/database/repositories"
	"github.com/Shamsear/ssleague-sub021/internal/ledger"
	"github.com/Shamsear/ssleague-sub021/internal/web/utils"
)

// WebApp bundles everything the handlers need.
type WebApp struct {
	Rounds      *auction.RoundManager
	Coordinator *auction.Coordinator
	Reconciler  *auction.Reconciler

	Teams       repositories.TeamRepository
	Players     repositories.PlayerRepository
	Bids        repositories.BidRepository
	Tiebreakers repositories.TiebreakerRepository
	Txns        repositories.TransactionRepository
	Ledgers     ledger.Store

	Hub      *broadcast.Hub
	Archiver *archive.Exporter

	Version string
	Commit  string
}

// HealthCheck reports service liveness.
func HealthCheck(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, fiber.Map{
			"status":  "healthy",
			"version": webApp.Version,
			"commit":  webApp.Commit,
		}, "")
	}
}
