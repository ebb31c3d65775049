package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification for the client.
type Type string

const (
	TypeClub           Type = "Club"
	TypeEvent          Type = "Event"
	TypeGroup          Type = "Group"
	TypePayment        Type = "Payment"
	TypePaymentRequest Type = "PaymentRequest"
	TypePaymentSettled Type = "PaymentSettled"
)

// Notification describes a message addressed to one user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Type      Type      `json:"type"`
	RelatedID string    `json:"related_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// New builds a notification with a fresh id and timestamp.
func New(userID string, typ Type, message, relatedID string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		Type:      typ,
		RelatedID: relatedID,
		CreatedAt: time.Now().UTC(),
	}
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the notification to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, msg Notification) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("user_id", msg.UserID),
		slog.String("type", string(msg.Type)),
		slog.String("related_id", msg.RelatedID),
		slog.String("message", msg.Message),
	)
	return nil
}

// Multi fans a notification out to every sink and returns the first error.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, n Notification) error {
	var first error
	for _, sink := range m {
		if err := sink.Send(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}
