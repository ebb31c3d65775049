package enrollment

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/campus-pay/campus_pay/internal/httpx"
	"github.com/campus-pay/campus_pay/internal/ledger"
)

// Handler exposes club and event endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an enrollment HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createClubRequest struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Description string          `json:"description" validate:"required,max=1000"`
	Fee         decimal.Decimal `json:"fee"`
}

type createEventRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=2000"`
	Location    string          `json:"location" validate:"max=200"`
	StartsAt    time.Time       `json:"starts_at" validate:"required"`
	TicketPrice decimal.Decimal `json:"ticket_price"`
	Capacity    int             `json:"capacity"`
}

// CreateClub registers a club run by the caller.
func (h *Handler) CreateClub(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	var req createClubRequest
	if err := httpx.ParseBody(c, &req); err != nil {
		return err
	}
	club, err := h.service.CreateClub(c.UserContext(), CreateClubInput{
		Name:        req.Name,
		Description: req.Description,
		CreatorID:   uid,
		Fee:         req.Fee,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": "Club created successfully", "club": club})
}

// Clubs lists every club.
func (h *Handler) Clubs(c *fiber.Ctx) error {
	clubs, err := h.service.Clubs(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"clubs": clubs})
}

// Club returns a club with organizers and members.
func (h *Handler) Club(c *fiber.Ctx) error {
	club, err := h.service.Club(c.UserContext(), c.Params("clubId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(club)
}

// JoinClub enrolls the caller, paying the membership fee when there is one.
func (h *Handler) JoinClub(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	club, err := h.service.JoinClub(c.UserContext(), c.Params("clubId"), uid)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"message": "Successfully joined the club.", "club": club})
}

// CreateEvent adds an event to a club the caller organizes.
func (h *Handler) CreateEvent(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	var req createEventRequest
	if err := httpx.ParseBody(c, &req); err != nil {
		return err
	}
	event, err := h.service.CreateEvent(c.UserContext(), CreateEventInput{
		ClubID:      c.Params("clubId"),
		CreatorID:   uid,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt,
		TicketPrice: req.TicketPrice,
		Capacity:    req.Capacity,
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"message": "Event created successfully", "event": event})
}

// Events lists a club's events.
func (h *Handler) Events(c *fiber.Ctx) error {
	events, err := h.service.Events(c.UserContext(), c.Params("clubId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"events": events})
}

// Event returns an event with its attendees.
func (h *Handler) Event(c *fiber.Ctx) error {
	event, err := h.service.Event(c.UserContext(), c.Params("eventId"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(event)
}

// RegisterForEvent books a seat for the caller, paying the ticket when there is one.
func (h *Handler) RegisterForEvent(c *fiber.Ctx) error {
	uid, err := httpx.UserID(c)
	if err != nil {
		return err
	}
	event, err := h.service.RegisterForEvent(c.UserContext(), c.Params("eventId"), uid)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"message": "Successfully registered for the event!", "event": event})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrClubNotFound), errors.Is(err, ErrEventNotFound), errors.Is(err, ledger.ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotOrganizer):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrClubNameTaken), errors.Is(err, ErrAlreadyMember), errors.Is(err, ErrAlreadyRegistered):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrMissingClubInfo),
		errors.Is(err, ErrMissingTitle),
		errors.Is(err, ErrInvalidFee),
		errors.Is(err, ErrInvalidCapacity),
		errors.Is(err, ErrEventFull),
		errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return err
	}
}
