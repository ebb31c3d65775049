package billing

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/campus-pay/campus_pay/internal/groups"
	"github.com/campus-pay/campus_pay/internal/httpx"
)

// Handler exposes bill endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a billing handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createBillRequest struct {
	Description  string          `json:"description" validate:"required,max=280"`
	TotalAmount  decimal.Decimal `json:"total_amount" validate:"positive_decimal"`
	CustomSplits []Share         `json:"custom_splits"`
}

// Create splits a new bill in the group.
func (h *Handler) Create(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	var req createBillRequest
	if err := httpx.ParseBody(c, &req); err != nil {
		return err
	}

	spec := Equal()
	if len(req.CustomSplits) > 0 {
		spec = Custom(req.CustomSplits)
	}

	bill, err := h.service.CreateBill(c.UserContext(), CreateBillInput{
		GroupID:     c.Params("groupId"),
		CreatorID:   uid,
		Description: req.Description,
		TotalAmount: req.TotalAmount,
		Split:       spec,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "Bill created and split successfully",
		"bill":    bill,
	})
}

// Activity returns the merged message and bill feed of a group.
func (h *Handler) Activity(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	items, err := h.service.GroupActivity(c.UserContext(), c.Params("groupId"), uid)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(items)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrSplitMismatch),
		errors.Is(err, ErrEmptyGroup),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidShare),
		errors.Is(err, ErrMissingDescription):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, groups.ErrGroupNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, groups.ErrNotMember):
		return fiber.NewError(http.StatusForbidden, err.Error())
	default:
		return err
	}
}
