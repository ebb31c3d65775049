package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-pay/campus_pay/internal/ledger"
)

// ErrorHandler renders every error as {"error": "..."}. Errors that are not
// *fiber.Error are logged; infrastructure failures surface as 503.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := http.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			status, message = fe.Code, fe.Message
		case Transient(err):
			status, message = http.StatusServiceUnavailable, "service temporarily unavailable, retry later"
		}

		if fe == nil {
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Any("request_id", c.Locals("request_id")),
				slog.Any("error", err),
			)
		}

		return c.Status(status).JSON(fiber.Map{"error": message})
	}
}

// Transient reports whether err is an infrastructure failure the client may retry.
func Transient(err error) bool {
	return errors.Is(err, ledger.ErrConflict) ||
		errors.Is(err, ledger.ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Unavailable converts a transient error into a 503.
func Unavailable() *fiber.Error {
	return fiber.NewError(http.StatusServiceUnavailable, "service temporarily unavailable, retry later")
}

// UserID returns the authenticated caller placed in locals by the JWT middleware.
func UserID(c *fiber.Ctx) (string, error) {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return "", fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	return uid, nil
}
