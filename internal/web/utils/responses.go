package utils

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/Shamsear/ssleague-sub021/internal/auction"
	"github.com/Shamsear/ssleague-sub021/internal/database/repositories"
	"github.com/Shamsear/ssleague-sub021/internal/web/models"
)

// SendJSON sends a JSON response using Fiber
func SendJSON(c *fiber.Ctx, statusCode int, data interface{}) error {
	return c.Status(statusCode).JSON(data)
}

// SendSuccess sends a successful JSON response
func SendSuccess(c *fiber.Ctx, data interface{}, message string) error {
	return SendJSON(c, http.StatusOK, models.NewSuccessResponse(data, message))
}

// SendCreated sends a created resource JSON response
func SendCreated(c *fiber.Ctx, data interface{}, message string) error {
	return SendJSON(c, http.StatusCreated, models.NewSuccessResponse(data, message))
}

// SendError sends an error JSON response
func SendError(c *fiber.Ctx, statusCode int, code, message string, details map[string]string) error {
	return SendJSON(c, statusCode, models.NewErrorResponse(code, message, details))
}

// SendBadRequest sends a bad request error response
func SendBadRequest(c *fiber.Ctx, message string, details map[string]string) error {
	return SendError(c, http.StatusBadRequest, "BAD_REQUEST", message, details)
}

// SendUnauthorized sends an unauthorized error response
func SendUnauthorized(c *fiber.Ctx, message string) error {
	return SendError(c, http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

// SendForbidden sends a forbidden error response
func SendForbidden(c *fiber.Ctx, message string) error {
	return SendError(c, http.StatusForbidden, "FORBIDDEN", message, nil)
}

// SendNotFound sends a not found error response
func SendNotFound(c *fiber.Ctx, message string) error {
	return SendError(c, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// SendConflict sends a conflict error response
func SendConflict(c *fiber.Ctx, message string, details map[string]string) error {
	return SendError(c, http.StatusConflict, "CONFLICT", message, details)
}

// SendInternalServerError sends an internal server error response
func SendInternalServerError(c *fiber.Ctx, message string) error {
	return SendError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message, nil)
}

// SendDomainError translates engine errors into HTTP responses. Stale raises
// carry the fresh ceiling in the details so the client can retry without a
// second read.
func SendDomainError(c *fiber.Ctx, err error) error {
	var stale *auction.StaleBidError
	if errors.As(err, &stale) {
		return SendError(c, http.StatusConflict, "STALE_BID", stale.Error(), map[string]string{
			"current_bid": strconv.FormatInt(stale.CurrentBid, 10),
		})
	}

	switch {
	case auction.IsNotFound(err), auction.IsLedgerNotFound(err):
		return SendNotFound(c, err.Error())
	case auction.IsNotAuthorized(err):
		return SendForbidden(c, err.Error())
	case auction.IsWindowClosed(err):
		return SendError(c, http.StatusGone, "WINDOW_CLOSED", err.Error(), nil)
	case auction.IsInvalidState(err):
		return SendConflict(c, err.Error(), nil)
	case auction.IsInsufficientBudget(err):
		return SendError(c, http.StatusUnprocessableEntity, "INSUFFICIENT_BUDGET", err.Error(), nil)
	case repositories.IsNotFound(err):
		return SendNotFound(c, err.Error())
	case repositories.IsConflict(err):
		return SendConflict(c, err.Error(), nil)
	default:
		return SendInternalServerError(c, "internal error")
	}
}

// ParseID parses a positive int64 path parameter.
func ParseID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}

// GetIPAddress extracts the client IP address
func GetIPAddress(c *fiber.Ctx) string {
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := c.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return c.IP()
}
