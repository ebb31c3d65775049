// Package enrollment runs clubs and events, charging membership fees and
// ticket prices through the transfer engine.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/campus-pay/campus_pay/internal/ledger"
	"github.com/campus-pay/campus_pay/internal/metrics"
	"github.com/campus-pay/campus_pay/internal/notification"
	"github.com/campus-pay/campus_pay/internal/payments"
)

var (
	ErrClubNotFound      = errors.New("club not found")
	ErrEventNotFound     = errors.New("event not found")
	ErrClubNameTaken     = errors.New("a club with this name already exists")
	ErrMissingClubInfo   = errors.New("club name and description are required")
	ErrMissingTitle      = errors.New("event title is required")
	ErrInvalidFee        = errors.New("fee must be zero or positive with at most 4 decimal places")
	ErrInvalidCapacity   = errors.New("capacity must not be negative")
	// ErrNotOrganizer is returned when someone outside the organizers creates an event.
	ErrNotOrganizer      = errors.New("only organizers of this club can create events")
	ErrAlreadyMember     = errors.New("you are already a member or organizer of this club")
	ErrAlreadyRegistered = errors.New("you are already registered for this event")
	ErrEventFull         = errors.New("this event is full")
)

// Service manages clubs, events and their paid rosters.
type Service struct {
	repo     Repository
	store    ledger.Store
	notifier notification.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewService constructs an enrollment service.
func NewService(repo Repository, store ledger.Store, notifier notification.Notifier, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{repo: repo, store: store, notifier: notifier, logger: logger, metrics: m}
}

// CreateClubInput captures a new club. A zero Fee makes membership free.
type CreateClubInput struct {
	Name        string
	Description string
	CreatorID   string
	Fee         decimal.Decimal
}

// CreateClub stores a club with its creator as first organizer.
func (s *Service) CreateClub(ctx context.Context, in CreateClubInput) (Club, error) {
	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	if name == "" || description == "" {
		return Club{}, ErrMissingClubInfo
	}
	if !validFee(in.Fee) {
		return Club{}, ErrInvalidFee
	}

	club := Club{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatorID:   in.CreatorID,
		Organizers:  []string{in.CreatorID},
		Fee:         in.Fee,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateClub(ctx, club); err != nil {
		return Club{}, err
	}
	s.logger.Info("club created", slog.String("club_id", club.ID), slog.String("creator_id", club.CreatorID))
	return club, nil
}

// Club returns a club with its current members.
func (s *Service) Club(ctx context.Context, clubID string) (Club, error) {
	club, err := s.repo.Club(ctx, clubID)
	if err != nil {
		return Club{}, err
	}
	if club.Members, err = s.store.Roster(ctx, KindClub, clubID); err != nil {
		return Club{}, err
	}
	return club, nil
}

// Clubs lists every club.
func (s *Service) Clubs(ctx context.Context) ([]Club, error) {
	return s.repo.Clubs(ctx)
}

// JoinClub adds userID to the club roster. A paid club charges the fee to
// the first organizer in the same unit of work.
func (s *Service) JoinClub(ctx context.Context, clubID, userID string) (Club, error) {
	club, err := s.repo.Club(ctx, clubID)
	if err != nil {
		return Club{}, err
	}
	if club.IsOrganizer(userID) {
		return Club{}, ErrAlreadyMember
	}
	if _, err := s.store.Account(ctx, userID); err != nil {
		return Club{}, err
	}

	var txn ledger.Transaction
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		txn = ledger.Transaction{}
		members, err := tx.LockRoster(ctx, KindClub, club.ID)
		if err != nil {
			return err
		}
		if contains(members, userID) {
			return ErrAlreadyMember
		}
		if club.Fee.IsPositive() {
			txn, err = payments.Move(ctx, tx, userID, club.Organizers[0], club.Fee,
				fmt.Sprintf("Membership fee for joining %s", club.Name), "")
			if err != nil {
				return err
			}
		}
		return enroll(ctx, tx, KindClub, club.ID, userID, txn.ID)
	})
	s.metrics.Enrollment(KindClub, err)
	if err != nil {
		return Club{}, normalize(err, ErrAlreadyMember)
	}

	s.logger.Info("club joined", slog.String("club_id", club.ID), slog.String("user_id", userID))
	s.notify(ctx, notification.New(userID, notification.TypeClub,
		fmt.Sprintf("Welcome to %q! You are now a member.", club.Name), club.ID))
	if txn.ID != "" {
		s.notify(ctx, notification.New(club.Organizers[0], notification.TypePayment,
			fmt.Sprintf("You received a membership fee of %s for %q", txn.Amount.StringFixed(2), club.Name), txn.ID))
	}
	return s.Club(ctx, club.ID)
}

// CreateEventInput captures a new club event. A zero TicketPrice makes the
// event free; a zero Capacity leaves it unlimited.
type CreateEventInput struct {
	ClubID      string
	CreatorID   string
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	TicketPrice decimal.Decimal
	Capacity    int
}

// CreateEvent stores an event for a club the creator organizes.
func (s *Service) CreateEvent(ctx context.Context, in CreateEventInput) (Event, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Event{}, ErrMissingTitle
	}
	if !validFee(in.TicketPrice) {
		return Event{}, ErrInvalidFee
	}
	if in.Capacity < 0 {
		return Event{}, ErrInvalidCapacity
	}

	club, err := s.repo.Club(ctx, in.ClubID)
	if err != nil {
		return Event{}, err
	}
	if !club.IsOrganizer(in.CreatorID) {
		return Event{}, ErrNotOrganizer
	}

	event := Event{
		ID:          uuid.NewString(),
		ClubID:      club.ID,
		CreatorID:   in.CreatorID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		StartsAt:    in.StartsAt.UTC(),
		TicketPrice: in.TicketPrice,
		Capacity:    in.Capacity,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return Event{}, err
	}
	s.logger.Info("event created", slog.String("event_id", event.ID), slog.String("club_id", club.ID))
	return event, nil
}

// Event returns an event with its attendees.
func (s *Service) Event(ctx context.Context, eventID string) (Event, error) {
	event, err := s.repo.Event(ctx, eventID)
	if err != nil {
		return Event{}, err
	}
	if event.Attendees, err = s.store.Roster(ctx, KindEvent, eventID); err != nil {
		return Event{}, err
	}
	return event, nil
}

// Events lists a club's events by start time.
func (s *Service) Events(ctx context.Context, clubID string) ([]Event, error) {
	if _, err := s.repo.Club(ctx, clubID); err != nil {
		return nil, err
	}
	return s.repo.EventsByClub(ctx, clubID)
}

// RegisterForEvent adds userID to the attendees while seats remain. A paid
// event charges the ticket to its creator in the same unit of work; the
// creator attends for free.
func (s *Service) RegisterForEvent(ctx context.Context, eventID, userID string) (Event, error) {
	event, err := s.repo.Event(ctx, eventID)
	if err != nil {
		return Event{}, err
	}
	if _, err := s.store.Account(ctx, userID); err != nil {
		return Event{}, err
	}

	var txn ledger.Transaction
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		txn = ledger.Transaction{}
		attendees, err := tx.LockRoster(ctx, KindEvent, event.ID)
		if err != nil {
			return err
		}
		if contains(attendees, userID) {
			return ErrAlreadyRegistered
		}
		if event.Full(len(attendees)) {
			return ErrEventFull
		}
		if event.TicketPrice.IsPositive() && userID != event.CreatorID {
			txn, err = payments.Move(ctx, tx, userID, event.CreatorID, event.TicketPrice,
				fmt.Sprintf("Ticket for event: %s", event.Title), "")
			if err != nil {
				return err
			}
		}
		return enroll(ctx, tx, KindEvent, event.ID, userID, txn.ID)
	})
	s.metrics.Enrollment(KindEvent, err)
	if err != nil {
		return Event{}, normalize(err, ErrAlreadyRegistered)
	}

	s.logger.Info("event registration", slog.String("event_id", event.ID), slog.String("user_id", userID))
	s.notify(ctx, notification.New(userID, notification.TypeEvent,
		fmt.Sprintf("You have successfully registered for the event: %q.", event.Title), event.ID))
	if txn.ID != "" {
		s.notify(ctx, notification.New(event.CreatorID, notification.TypePayment,
			fmt.Sprintf("You received %s for a ticket to %q", txn.Amount.StringFixed(2), event.Title), txn.ID))
	}
	return s.Event(ctx, event.ID)
}

func enroll(ctx context.Context, tx ledger.Tx, kind, targetID, userID, txnID string) error {
	return tx.Enroll(ctx, ledger.Enrollment{
		Kind:          kind,
		TargetID:      targetID,
		UserID:        userID,
		TransactionID: txnID,
		CreatedAt:     time.Now().UTC(),
	})
}

// normalize maps the ledger's duplicate error onto the caller-facing one.
func normalize(err, duplicate error) error {
	if errors.Is(err, ledger.ErrAlreadyEnrolled) {
		return duplicate
	}
	return err
}

func validFee(fee decimal.Decimal) bool {
	return fee.IsZero() || ledger.ValidAmount(fee)
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (s *Service) notify(ctx context.Context, n notification.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Warn("notification not queued",
			slog.String("user_id", n.UserID),
			slog.String("type", string(n.Type)),
			slog.Any("error", err),
		)
	}
}
