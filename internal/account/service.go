package account

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/campus-pay/campus_pay/internal/ledger"
)

// ErrMissingUser is returned when no user id is supplied.
var ErrMissingUser = errors.New("user id is required")

// Balance is a point-in-time view of an account.
type Balance struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"balance"`
	AsOf   time.Time       `json:"as_of"`
}

// Service exposes account operations backed by the ledger store.
type Service struct {
	store   ledger.Store
	opening decimal.Decimal
}

// NewService builds an account service that opens accounts with the given balance.
func NewService(store ledger.Store, opening decimal.Decimal) *Service {
	return &Service{store: store, opening: opening}
}

// Open provisions the account for a newly registered user. Opening an
// existing account returns it unchanged.
func (s *Service) Open(ctx context.Context, userID string) (ledger.Account, error) {
	if userID == "" {
		return ledger.Account{}, ErrMissingUser
	}
	return s.store.OpenAccount(ctx, userID, s.opening)
}

// Balance returns the committed balance for userID.
func (s *Service) Balance(ctx context.Context, userID string) (Balance, error) {
	acc, err := s.store.Account(ctx, userID)
	if err != nil {
		return Balance{}, err
	}
	return Balance{UserID: acc.UserID, Amount: acc.Balance, AsOf: time.Now().UTC()}, nil
}
