package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-pay/campus_pay/internal/metrics"
)

// Metrics counts requests by method, matched route and status.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequest(c.Method(), route, strconv.Itoa(statusOf(c, err)))
		return err
	}
}
