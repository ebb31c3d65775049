package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campus-pay/campus_pay/internal/account"
	"github.com/campus-pay/campus_pay/internal/payments"
)

// RegisterPaymentRoutes wires peer-to-peer transfer endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, idempotent fiber.Handler) {
	group := r.Group("/transactions")
	group.Post("/send", idempotent, h.Send)
	group.Post("/request", idempotent, h.Request)
	group.Get("/history", h.History)
}

// RegisterAccountRoutes wires balance lookups.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
	r.Get("/accounts/me/balance", h.MyBalance)
}
