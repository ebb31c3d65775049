package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound is returned when no account exists for a user.
	ErrAccountNotFound = errors.New("account not found")

	// ErrBillNotFound is returned when a bill id does not resolve.
	ErrBillNotFound = errors.New("bill not found")

	// ErrSplitNotFound is returned when a user holds no split on a bill.
	ErrSplitNotFound = errors.New("split not found")

	// ErrAlreadyEnrolled is returned when a user is already on a roster.
	ErrAlreadyEnrolled = errors.New("already enrolled")

	// ErrSameAccount is returned when a transfer names one account on both sides.
	ErrSameAccount = errors.New("sender and receiver must differ")

	// ErrInvalidAmount is returned for amounts that are not positive or carry
	// more decimals than MoneyScale.
	ErrInvalidAmount = errors.New("amount must be positive with at most 4 decimal places")

	// ErrConflict is returned when a unit of work kept losing to concurrent
	// writers and ran out of retries.
	ErrConflict = errors.New("ledger: concurrent update conflict")

	// ErrUnavailable wraps failures to reach the backing store.
	ErrUnavailable = errors.New("ledger: store unavailable")
)

// MoneyScale is the number of decimal places every stored amount keeps.
const MoneyScale = 4

// ValidAmount reports whether amount is positive and representable at
// MoneyScale without rounding.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Truncate(MoneyScale))
}

// Store is the account store and transaction ledger. Reads outside of
// WithinTx observe committed state only.
type Store interface {
	// WithinTx runs fn as one atomic unit of work. Every write made through tx
	// becomes visible together when fn returns nil, and none of them do otherwise.
	// fn must only touch the store through tx.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// OpenAccount creates the account for userID with the opening balance. It is
	// idempotent and returns the existing account when one is already open.
	OpenAccount(ctx context.Context, userID string, opening decimal.Decimal) (Account, error)
	Account(ctx context.Context, userID string) (Account, error)

	// RecordTransaction appends a transaction that moves no money, such as a
	// pending request.
	RecordTransaction(ctx context.Context, txn Transaction) error

	// Transactions lists every transaction where userID is sender or receiver,
	// newest first. An empty slice means there is no history.
	Transactions(ctx context.Context, userID string) ([]Transaction, error)

	Bill(ctx context.Context, billID string) (Bill, error)
	BillsByGroup(ctx context.Context, groupID string) ([]Bill, error)
	// OpenBills lists bills that still have at least one unpaid split.
	OpenBills(ctx context.Context) ([]Bill, error)

	// Roster lists the users enrolled on a club or event, oldest first.
	Roster(ctx context.Context, kind, targetID string) ([]string, error)
}

// Tx is the write side of a unit of work. Balances can only be changed
// through ApplyTransfer.
type Tx interface {
	InsertTransaction(ctx context.Context, txn Transaction) error
	InsertBill(ctx context.Context, bill Bill) error
	// LockBill reads a bill and holds it against concurrent settlement until
	// the unit of work ends.
	LockBill(ctx context.Context, billID string) (Bill, error)
	MarkSplitPaid(ctx context.Context, billID, userID string) error
	// LockRoster reads a roster and holds it against concurrent enrollment
	// until the unit of work ends.
	LockRoster(ctx context.Context, kind, targetID string) ([]string, error)
	// Enroll adds e to its roster. A repeated user yields ErrAlreadyEnrolled.
	Enroll(ctx context.Context, e Enrollment) error

	lockAccounts(ctx context.Context, userIDs []string) (map[string]Account, error)
	writeBalance(ctx context.Context, userID string, balance decimal.Decimal) error
}

// NewTransaction builds a transaction with a fresh id and creation time.
func NewTransaction(senderID, receiverID string, amount decimal.Decimal, description string, status Status) (Transaction, error) {
	if senderID == receiverID {
		return Transaction{}, ErrSameAccount
	}
	if !ValidAmount(amount) {
		return Transaction{}, ErrInvalidAmount
	}
	return Transaction{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		ReceiverID:  receiverID,
		Amount:      amount,
		Description: description,
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// ApplyTransfer debits fromID and credits toID by amount within tx. Both
// accounts are locked in ascending id order so concurrent transfers between
// the same pair cannot deadlock.
func ApplyTransfer(ctx context.Context, tx Tx, fromID, toID string, amount decimal.Decimal) (from, to Account, err error) {
	if fromID == toID {
		return Account{}, Account{}, ErrSameAccount
	}
	if !ValidAmount(amount) {
		return Account{}, Account{}, ErrInvalidAmount
	}

	accounts, err := tx.lockAccounts(ctx, []string{fromID, toID})
	if err != nil {
		return Account{}, Account{}, err
	}
	from, to = accounts[fromID], accounts[toID]

	if from.Balance.LessThan(amount) {
		return Account{}, Account{}, ErrInsufficientFunds
	}

	from.Balance = from.Balance.Sub(amount)
	to.Balance = to.Balance.Add(amount)

	if err := tx.writeBalance(ctx, fromID, from.Balance); err != nil {
		return Account{}, Account{}, fmt.Errorf("debit %s: %w", fromID, err)
	}
	if err := tx.writeBalance(ctx, toID, to.Balance); err != nil {
		return Account{}, Account{}, fmt.Errorf("credit %s: %w", toID, err)
	}
	return from, to, nil
}
