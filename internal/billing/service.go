package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/campus-pay/campus_pay/internal/groups"
	"github.com/campus-pay/campus_pay/internal/ledger"
	"github.com/campus-pay/campus_pay/internal/metrics"
	"github.com/campus-pay/campus_pay/internal/notification"
)

var (
	// ErrSplitMismatch is returned when custom shares do not add up to the total.
	ErrSplitMismatch      = errors.New("split amounts do not match bill total")
	// ErrEmptyGroup is returned when an equal split has nobody to split with.
	ErrEmptyGroup         = errors.New("no participants to split the bill with")
	ErrInvalidAmount      = errors.New("total amount must be positive with at most 4 decimal places")
	ErrMissingDescription = errors.New("description is required")
	ErrInvalidShare       = errors.New("invalid share")
)

// Membership resolves who belongs to a group. Unknown groups yield an error
// wrapping groups.ErrGroupNotFound.
type Membership interface {
	Participants(ctx context.Context, groupID string) ([]string, error)
}

// MessageSource lists a group's messages oldest first.
type MessageSource interface {
	Messages(ctx context.Context, groupID string) ([]groups.Message, error)
}

// Service creates bills and reports group activity.
type Service struct {
	store    ledger.Store
	members  Membership
	messages MessageSource
	notifier notification.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewService constructs a billing service.
func NewService(store ledger.Store, members Membership, messages MessageSource, notifier notification.Notifier, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:    store,
		members:  members,
		messages: messages,
		notifier: notifier,
		logger:   logger,
		metrics:  m,
	}
}

// CreateBillInput captures a new shared expense.
type CreateBillInput struct {
	GroupID     string
	CreatorID   string
	Description string
	TotalAmount decimal.Decimal
	Split       SplitSpec
}

// CreateBill splits the total, persists the bill with every split unpaid and
// asks each participant other than the creator to pay.
func (s *Service) CreateBill(ctx context.Context, in CreateBillInput) (ledger.Bill, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return ledger.Bill{}, ErrMissingDescription
	}
	if !ledger.ValidAmount(in.TotalAmount) {
		return ledger.Bill{}, ErrInvalidAmount
	}

	participants, err := s.members.Participants(ctx, in.GroupID)
	if err != nil {
		return ledger.Bill{}, err
	}

	var splits []ledger.Split
	if in.Split.IsCustom() {
		splits, err = CustomSplits(in.TotalAmount, in.Split.Shares())
	} else {
		splits, err = EqualSplits(in.TotalAmount, participants)
	}
	if err != nil {
		return ledger.Bill{}, err
	}

	bill := ledger.Bill{
		ID:          uuid.NewString(),
		GroupID:     in.GroupID,
		CreatorID:   in.CreatorID,
		Description: description,
		TotalAmount: in.TotalAmount,
		Splits:      splits,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertBill(ctx, bill)
	}); err != nil {
		return ledger.Bill{}, fmt.Errorf("store bill: %w", err)
	}

	s.metrics.BillCreated(in.Split.String())
	s.logger.Info("bill created",
		slog.String("bill_id", bill.ID),
		slog.String("group_id", bill.GroupID),
		slog.String("split", in.Split.String()),
		slog.Int("participants", len(bill.Splits)),
	)

	for _, split := range bill.Splits {
		if split.UserID == bill.CreatorID {
			continue
		}
		s.notify(ctx, notification.New(split.UserID, notification.TypePaymentRequest,
			fmt.Sprintf("A new bill %q was added: your share is %s", bill.Description, split.Amount.StringFixed(2)), bill.ID))
	}
	return bill, nil
}

// Bill returns a single bill.
func (s *Service) Bill(ctx context.Context, billID string) (ledger.Bill, error) {
	return s.store.Bill(ctx, billID)
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
