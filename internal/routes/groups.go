package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campus-pay/campus_pay/internal/billing"
	"github.com/campus-pay/campus_pay/internal/groups"
	"github.com/campus-pay/campus_pay/internal/notification"
	"github.com/campus-pay/campus_pay/internal/settlement"
)

// RegisterGroupRoutes wires groups, their messages, bills and activity feed.
func RegisterGroupRoutes(r fiber.Router, g *groups.Handler, b *billing.Handler, idempotent fiber.Handler) {
	group := r.Group("/groups")
	group.Post("", g.Create)
	group.Get("/:groupId", g.Get)
	group.Post("/:groupId/messages", g.PostMessage)
	group.Get("/:groupId/messages", g.Messages)
	group.Post("/:groupId/bills", idempotent, b.Create)
	group.Get("/:groupId/activity", b.Activity)
}

// RegisterBillRoutes wires settlement of bill splits.
func RegisterBillRoutes(r fiber.Router, h *settlement.Handler, idempotent fiber.Handler) {
	r.Post("/bills/:billId/settle", idempotent, h.Settle)
}

// RegisterNotificationRoutes exposes the caller's inbox.
func RegisterNotificationRoutes(r fiber.Router, h *notification.Handler) {
	r.Get("/notifications", h.List)
}
