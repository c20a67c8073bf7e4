package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Shamsear/ssleague-sub021/internal/web/utils"
)

// LoggingMiddleware logs HTTP requests in a structured format
func LoggingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		statusCode := c.Response().StatusCode()

		logLevel := slog.LevelInfo
		if statusCode >= 400 && statusCode < 500 {
			logLevel = slog.LevelWarn
		} else if statusCode >= 500 {
			logLevel = slog.LevelError
		}

		logger := slog.With(
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", statusCode),
			slog.Duration("duration", duration),
			slog.String("ip", utils.GetIPAddress(c)),
			slog.Int("size", len(c.Response().Body())),
		)

		if team, ok := TeamFromContext(c); ok {
			logger = logger.With(
				slog.Int64("team_id", team.ID),
				slog.String("team", team.Name),
			)
		}

		if err != nil {
			logger = logger.With(slog.Any("error", err))
		}

		logger.Log(c.Context(), logLevel, "HTTP request")
		return err
	}
}

// CustomErrorHandler turns unhandled fiber errors into the standard envelope.
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	if code >= 500 {
		slog.Error("Unhandled request error",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err))
	}

	return utils.SendError(c, code, "REQUEST_FAILED", err.Error(), nil)
}
