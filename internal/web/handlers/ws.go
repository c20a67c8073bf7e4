package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SeasonFeed upgrades the connection and pins it to the season's broadcast
// channel. Registering the upgrade check first lets plain HTTP requests get
// a clean 426 instead of a hang.
func SeasonFeed(webApp *WebApp) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		seasonID, err := strconv.ParseInt(conn.Params("id"), 10, 64)
		if err != nil || seasonID <= 0 {
			conn.Close()
			return
		}
		webApp.Hub.Serve(conn, seasonID)
	})
}

// WebsocketUpgrade rejects non-websocket requests on ws routes.
func WebsocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}
