package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-pay/campus_pay/internal/httpx"
	"github.com/campus-pay/campus_pay/internal/ledger"
)

const minPasswordLength = 6

var (
	ErrMissingName        = errors.New("name is required")
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLength)
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// AccountOpener provisions the ledger account of a new user.
type AccountOpener interface {
	Open(ctx context.Context, userID string) (ledger.Account, error)
}

// Service manages identity lifecycle.
type Service struct {
	repo     Repository
	accounts AccountOpener
	logger   *slog.Logger
}

// NewService creates a new identity service. accounts may be nil when no
// ledger is attached.
func NewService(repo Repository, accounts AccountOpener, logger *slog.Logger) *Service {
	return &Service{repo: repo, accounts: accounts, logger: logger}
}

// Register creates a student user with a hashed password and opens their
// account with the opening balance.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	name := strings.TrimSpace(reg.Name)
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	if name == "" {
		return User{}, ErrMissingName
	}
	if email == "" || httpx.ValidateVar(email, "email") != nil {
		return User{}, ErrInvalidEmail
	}
	if len(reg.Password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Role:         RoleStudent,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	if err := s.ensureAccount(ctx, user.ID); err != nil {
		return User{}, err
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// Authenticate verifies email and password. A user whose registration stopped
// before the account was opened gets it opened here.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(creds.Email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	if err := s.ensureAccount(ctx, user.ID); err != nil {
		return User{}, err
	}
	return user, nil
}

// User returns the profile for id.
func (s *Service) User(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// ensureAccount relies on Open returning the existing account when there is one.
func (s *Service) ensureAccount(ctx context.Context, userID string) error {
	if s.accounts == nil {
		return nil
	}
	if _, err := s.accounts.Open(ctx, userID); err != nil {
		s.logger.Error("open account failed", slog.String("user_id", userID), slog.Any("error", err))
		return fmt.Errorf("open account: %w", err)
	}
	return nil
}
