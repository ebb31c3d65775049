package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerNotifier stops calling a failing sink for a cool-down period.
type BreakerNotifier struct {
	next Notifier
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerNotifier trips after five consecutive failures and retries after 30s.
func NewBreakerNotifier(next Notifier, name string, logger *slog.Logger) *BreakerNotifier {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("notification breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}
	return &BreakerNotifier{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *BreakerNotifier) Send(ctx context.Context, n Notification) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Send(ctx, n)
	})
	return err
}

// State reports the breaker state.
func (b *BreakerNotifier) State() gobreaker.State {
	return b.cb.State()
}
