package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campus-pay/campus_pay/internal/ledger"
	"github.com/campus-pay/campus_pay/internal/metrics"
	"github.com/campus-pay/campus_pay/internal/notification"
	"github.com/campus-pay/campus_pay/internal/payments"
)

var (
	// ErrNotAParticipant is returned when the payer holds no split on the bill.
	ErrNotAParticipant = errors.New("you are not part of this bill split")
	// ErrAlreadySettled is returned when the payer's split is already paid.
	ErrAlreadySettled  = errors.New("you have already settled this payment")
)

// Service settles a participant's share of a bill.
type Service struct {
	store    ledger.Store
	notifier notification.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewService constructs a settlement service.
func NewService(store ledger.Store, notifier notification.Notifier, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, notifier: notifier, logger: logger, metrics: m}
}

// Settle pays payerID's split of billID to the bill creator and marks it paid
// in one unit of work. The bill is locked for the duration so a split can be
// paid only once. A creator settling their own share, or a zero share, is
// marked paid without moving money.
func (s *Service) Settle(ctx context.Context, billID, payerID string) (ledger.Bill, error) {
	var (
		settled ledger.Bill
		share   ledger.Split
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		bill, err := tx.LockBill(ctx, billID)
		if err != nil {
			return err
		}
		split, ok := bill.SplitFor(payerID)
		if !ok {
			return ErrNotAParticipant
		}
		if split.Paid {
			return ErrAlreadySettled
		}

		if payerID != bill.CreatorID && split.Amount.IsPositive() {
			description := fmt.Sprintf("Settled bill: %q", bill.Description)
			if _, err := payments.Move(ctx, tx, payerID, bill.CreatorID, split.Amount, description, bill.ID); err != nil {
				return err
			}
		}
		if err := tx.MarkSplitPaid(ctx, bill.ID, payerID); err != nil {
			return err
		}

		bill.MarkPaid(payerID)
		settled, share = bill, split
		return nil
	})
	s.metrics.Settlement(err)
	if err != nil {
		return ledger.Bill{}, err
	}

	s.logger.Info("bill split settled",
		slog.String("bill_id", settled.ID),
		slog.String("payer_id", payerID),
		slog.String("amount", share.Amount.StringFixed(2)),
		slog.String("status", settled.PaymentStatus()),
	)

	if payerID != settled.CreatorID && s.notifier != nil {
		n := notification.New(settled.CreatorID, notification.TypePaymentSettled,
			fmt.Sprintf("A participant paid their share of %s for %q", share.Amount.StringFixed(2), settled.Description), settled.ID)
		if err := s.notifier.Send(ctx, n); err != nil {
			s.logger.Warn("notification not queued", slog.String("user_id", n.UserID), slog.Any("error", err))
		}
	}
	return settled, nil
}
