package notification

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campus-pay/campus_pay/internal/httpx"
)

const maxListLimit = 100

// Handler exposes the caller's notification inbox.
type Handler struct {
	inbox Inbox
}

// NewHandler builds an inbox HTTP handler.
func NewHandler(inbox Inbox) *Handler {
	return &Handler{inbox: inbox}
}

// List returns the caller's notifications newest first. ?limit caps the count.
func (h *Handler) List(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	items, err := h.inbox.List(c.UserContext(), uid, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"notifications": items})
}
