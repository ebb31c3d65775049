package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campus-pay/campus_pay/internal/auth"
	"github.com/campus-pay/campus_pay/internal/identity"
)

// RegisterAuthRoutes wires registration and login.
func RegisterAuthRoutes(r fiber.Router, ids *identity.Handler, h *auth.Handler, rateLimiter fiber.Handler) {
	r.Post("/identity/register", ids.Register)
	group := r.Group("/auth")
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
	} else {
		group.Post("/login", h.Login)
	}
}
