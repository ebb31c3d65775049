package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/campus-pay/campus_pay/internal/ledger"
	"github.com/campus-pay/campus_pay/internal/metrics"
	"github.com/campus-pay/campus_pay/internal/notification"
)

var (
	// ErrSelfTransfer is returned when sender and receiver are the same user.
	ErrSelfTransfer     = errors.New("cannot send payment to yourself")
	// ErrInvalidAmount is returned for zero or negative amounts and for amounts
	// finer than ledger.MoneyScale.
	ErrInvalidAmount    = errors.New("amount must be positive with at most 4 decimal places")
	// ErrReceiverNotFound is returned when the receiver has no account.
	ErrReceiverNotFound = errors.New("receiver not found")
	// ErrMissingReceiver is returned when no receiver id is supplied.
	ErrMissingReceiver  = errors.New("receiver id is required")
)

// Service moves money between student accounts.
type Service struct {
	store    ledger.Store
	notifier notification.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewService constructs a payment service.
func NewService(store ledger.Store, notifier notification.Notifier, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{store: store, notifier: notifier, logger: logger, metrics: m}
}

// TransferInput captures the data needed to move funds between accounts.
type TransferInput struct {
	SenderID    string
	ReceiverID  string
	Amount      decimal.Decimal
	Description string
}

// Transfer debits the sender, credits the receiver and records a Completed
// transaction as one unit of work. Both parties are notified after commit.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (ledger.Transaction, error) {
	if err := s.validate(ctx, in); err != nil {
		s.metrics.Transfer(err)
		return ledger.Transaction{}, err
	}

	var txn ledger.Transaction
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		var err error
		txn, err = Move(ctx, tx, in.SenderID, in.ReceiverID, in.Amount, in.Description, "")
		return err
	})
	s.metrics.Transfer(err)
	if err != nil {
		return ledger.Transaction{}, err
	}

	s.logger.Info("transfer completed",
		slog.String("transaction_id", txn.ID),
		slog.String("sender_id", txn.SenderID),
		slog.String("receiver_id", txn.ReceiverID),
		slog.String("amount", txn.Amount.StringFixed(2)),
	)

	s.notify(ctx, notification.New(in.ReceiverID, notification.TypePayment,
		fmt.Sprintf("You received a payment of %s%s", txn.Amount.StringFixed(2), forDescription(in.Description)), txn.ID))
	s.notify(ctx, notification.New(in.SenderID, notification.TypePayment,
		fmt.Sprintf("You sent a payment of %s%s", txn.Amount.StringFixed(2), forDescription(in.Description)), txn.ID))

	return txn, nil
}

// RequestTransfer records a Pending transaction asking the receiver to pay.
// No balance moves.
func (s *Service) RequestTransfer(ctx context.Context, in TransferInput) (ledger.Transaction, error) {
	if err := s.validate(ctx, in); err != nil {
		return ledger.Transaction{}, err
	}

	txn, err := ledger.NewTransaction(in.SenderID, in.ReceiverID, in.Amount, in.Description, ledger.StatusPending)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if err := s.store.RecordTransaction(ctx, txn); err != nil {
		return ledger.Transaction{}, fmt.Errorf("record payment request: %w", err)
	}

	s.notify(ctx, notification.New(in.ReceiverID, notification.TypePaymentRequest,
		fmt.Sprintf("You have a payment request of %s%s", txn.Amount.StringFixed(2), forDescription(in.Description)), txn.ID))

	return txn, nil
}

// History lists the caller's transactions, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	return s.store.Transactions(ctx, userID)
}

// Move debits senderID, credits receiverID and appends a Completed
// transaction inside tx. Callers own the unit of work.
func Move(ctx context.Context, tx ledger.Tx, senderID, receiverID string, amount decimal.Decimal, description, billID string) (ledger.Transaction, error) {
	txn, err := ledger.NewTransaction(senderID, receiverID, amount, description, ledger.StatusCompleted)
	if err != nil {
		return ledger.Transaction{}, err
	}
	txn.BillID = billID

	if _, _, err := ledger.ApplyTransfer(ctx, tx, senderID, receiverID, amount); err != nil {
		return ledger.Transaction{}, err
	}
	if err := tx.InsertTransaction(ctx, txn); err != nil {
		return ledger.Transaction{}, fmt.Errorf("record transaction: %w", err)
	}
	return txn, nil
}

func (s *Service) validate(ctx context.Context, in TransferInput) error {
	if in.ReceiverID == "" {
		return ErrMissingReceiver
	}
	if !ledger.ValidAmount(in.Amount) {
		return ErrInvalidAmount
	}
	if in.SenderID == in.ReceiverID {
		return ErrSelfTransfer
	}
	if _, err := s.store.Account(ctx, in.ReceiverID); err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return ErrReceiverNotFound
		}
		return err
	}
	return nil
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

func forDescription(description string) string {
	if description == "" {
		return ""
	}
	return " for " + description
}
