package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campus-pay/campus_pay/internal/enrollment"
)

// RegisterEnrollmentRoutes wires clubs, events and paid enrollment.
func RegisterEnrollmentRoutes(r fiber.Router, h *enrollment.Handler, idempotent fiber.Handler) {
	clubs := r.Group("/clubs")
	clubs.Post("", h.CreateClub)
	clubs.Get("", h.Clubs)
	clubs.Get("/:clubId", h.Club)
	clubs.Post("/:clubId/join", idempotent, h.JoinClub)
	clubs.Post("/:clubId/events", h.CreateEvent)
	clubs.Get("/:clubId/events", h.Events)

	events := r.Group("/events")
	events.Get("/:eventId", h.Event)
	events.Post("/:eventId/register", idempotent, h.RegisterForEvent)
}
