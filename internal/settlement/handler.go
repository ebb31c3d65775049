package settlement

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-pay/campus_pay/internal/httpx"
	"github.com/campus-pay/campus_pay/internal/ledger"
)

// Handler exposes the settle endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a settlement handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Settle pays the caller's share of a bill.
func (h *Handler) Settle(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	bill, err := h.service.Settle(c.UserContext(), c.Params("billId"), uid)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrBillNotFound), errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotAParticipant):
			return fiber.NewError(http.StatusForbidden, err.Error())
		case errors.Is(err, ErrAlreadySettled):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return err
		}
	}
	return c.JSON(fiber.Map{
		"message":        "Your payment has been successfully settled.",
		"bill":           bill,
		"payment_status": bill.PaymentStatus(),
	})
}
