package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-pay/campus_pay/internal/auth"
)

const (
	// UserIDLocal is the fiber locals key holding the authenticated user id.
	UserIDLocal = "user_id"
	// RoleLocal is the fiber locals key holding the authenticated user's role.
	RoleLocal   = "role"
)

// JWTAuth returns a middleware that validates bearer access tokens.
func JWTAuth(tokens *auth.TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < 7 || !strings.EqualFold(authz[:7], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		claims, err := tokens.Validate(strings.TrimSpace(authz[7:]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(UserIDLocal, claims.Subject)
		c.Locals(RoleLocal, claims.Role)
		return c.Next()
	}
}
