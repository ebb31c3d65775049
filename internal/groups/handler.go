package groups

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campus-pay/campus_pay/internal/httpx"
)

// Handler exposes group endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a group HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name         string   `json:"name" validate:"required,max=120"`
	Description  string   `json:"description" validate:"max=500"`
	Participants []string `json:"participants"`
}

type messageRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// Create makes a new group owned by the caller.
func (h *Handler) Create(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	var req createRequest
	if err := httpx.ParseBody(c, &req); err != nil {
		return err
	}
	group, err := h.service.Create(c.UserContext(), CreateInput{
		Name:         req.Name,
		Description:  req.Description,
		CreatorID:    uid,
		Participants: req.Participants,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(group)
}

// Get returns a group the caller belongs to.
func (h *Handler) Get(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	group, err := h.service.Get(c.UserContext(), c.Params("groupId"))
	if err != nil {
		return mapError(err)
	}
	if !group.HasParticipant(uid) {
		return mapError(ErrNotMember)
	}
	return c.JSON(group)
}

// PostMessage adds a message to the group.
func (h *Handler) PostMessage(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	var req messageRequest
	if err := httpx.ParseBody(c, &req); err != nil {
		return err
	}
	msg, err := h.service.PostMessage(c.UserContext(), c.Params("groupId"), uid, req.Text)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(msg)
}

// Messages lists the group's messages oldest first.
func (h *Handler) Messages(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	groupID := c.Params("groupId")
	group, err := h.service.Get(c.UserContext(), groupID)
	if err != nil {
		return mapError(err)
	}
	if !group.HasParticipant(uid) {
		return mapError(ErrNotMember)
	}
	msgs, err := h.service.Messages(c.UserContext(), groupID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrGroupNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotMember):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrMissingName), errors.Is(err, ErrMissingContent):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
