package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/campus-pay/campus_pay/internal/metrics"
)

const deliveryTimeout = 5 * time.Second

// ErrQueueFull is returned by Send when the buffer is saturated. The
// notification is dropped.
var ErrQueueFull = errors.New("notification queue full")

// Queue decouples callers from the sink. Send never blocks; Run drains the
// buffer into the sink until its context ends.
type Queue struct {
	sink    Notifier
	events  chan Notification
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewQueue creates a queue holding at most size pending notifications.
func NewQueue(sink Notifier, size int, logger *slog.Logger, m *metrics.Metrics) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{
		sink:    sink,
		events:  make(chan Notification, size),
		logger:  logger,
		metrics: m,
	}
}

// Send enqueues n for asynchronous delivery.
func (q *Queue) Send(_ context.Context, n Notification) error {
	select {
	case q.events <- n:
		return nil
	default:
		q.metrics.Notification("dropped")
		return ErrQueueFull
	}
}

// Run delivers queued notifications until ctx is done, then flushes what is
// already buffered.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case n := <-q.events:
			q.deliver(n)
		case <-ctx.Done():
			q.flush()
			return
		}
	}
}

func (q *Queue) flush() {
	for {
		select {
		case n := <-q.events:
			q.deliver(n)
		default:
			return
		}
	}
}

func (q *Queue) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := q.sink.Send(ctx, n); err != nil {
		q.metrics.Notification("failed")
		q.logger.Warn("notification delivery failed",
			slog.String("user_id", n.UserID),
			slog.String("type", string(n.Type)),
			slog.Any("error", err),
		)
		return
	}
	q.metrics.Notification("delivered")
}
