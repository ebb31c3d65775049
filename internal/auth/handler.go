package auth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-pay/campus_pay/internal/httpx"
	"github.com/campus-pay/campus_pay/internal/identity"
)

// Handler exposes the login endpoint.
type Handler struct {
	ids    *identity.Service
	tokens *TokenManager
}

// NewHandler constructs an auth handler.
func NewHandler(ids *identity.Service, tokens *TokenManager) *Handler {
	return &Handler{ids: ids, tokens: tokens}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	UserID      string `json:"user_id"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login validates credentials and returns an access token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := httpx.ParseBody(c, &req); err != nil {
		return err
	}
	user, err := h.ids.Authenticate(c.UserContext(), identity.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		}
		return err
	}
	token, expiresIn, err := h.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return err
	}
	return c.JSON(loginResponse{UserID: user.ID, AccessToken: token, TokenType: "Bearer", ExpiresIn: expiresIn})
}
