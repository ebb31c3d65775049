package payments

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/campus-pay/campus_pay/internal/httpx"
	"github.com/campus-pay/campus_pay/internal/ledger"
)

// Handler exposes payment endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type transferRequest struct {
	ReceiverID  string          `json:"receiver_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"positive_decimal"`
	Description string          `json:"description" validate:"max=280"`
}

// Send processes a peer-to-peer transfer from the caller.
func (h *Handler) Send(c *fiber.Ctx) error {
	return h.handle(c, h.service.Transfer, "Payment sent successfully")
}

// Request records a pending payment request from the caller.
func (h *Handler) Request(c *fiber.Ctx) error {
	return h.handle(c, h.service.RequestTransfer, "Payment request sent successfully")
}

// History lists the caller's transactions.
func (h *Handler) History(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	txns, err := h.service.History(c.UserContext(), uid)
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		return fiber.NewError(http.StatusNotFound, "no transactions found")
	}
	return c.Status(http.StatusOK).JSON(txns)
}

func (h *Handler) handle(c *fiber.Ctx, op func(ctx context.Context, in TransferInput) (ledger.Transaction, error), message string) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	var req transferRequest
	if err := httpx.ParseBody(c, &req); err != nil {
		return err
	}

	txn, err := op(c.UserContext(), TransferInput{
		SenderID:    uid,
		ReceiverID:  req.ReceiverID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":     message,
		"transaction": txn,
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrSelfTransfer),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrMissingReceiver),
		errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrReceiverNotFound), errors.Is(err, ledger.ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return err
	}
}
