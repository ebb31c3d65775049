package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pay/campus_pay/internal/logging"
)

type recordingSink struct {
	mu   sync.Mutex
	got  []Notification
	fail error
}

func (r *recordingSink) Send(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.got = append(r.got, n)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestQueue_DeliversAsynchronously(t *testing.T) {
	sink := &recordingSink{}
	q := NewQueue(sink, 8, logging.Discard(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Send(context.Background(), New("u1", TypePayment, "hi", "")))
	}

	require.Eventually(t, func() bool { return sink.count() == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestQueue_FullBufferDropsWithoutBlocking(t *testing.T) {
	q := NewQueue(&recordingSink{}, 1, logging.Discard(), nil)

	require.NoError(t, q.Send(context.Background(), New("u1", TypePayment, "a", "")))
	err := q.Send(context.Background(), New("u1", TypePayment, "b", ""))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueue_FlushesBufferedOnShutdown(t *testing.T) {
	sink := &recordingSink{}
	q := NewQueue(sink, 4, logging.Discard(), nil)
	require.NoError(t, q.Send(context.Background(), New("u1", TypeGroup, "a", "")))
	require.NoError(t, q.Send(context.Background(), New("u2", TypeGroup, "b", "")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q.Run(ctx)

	assert.Equal(t, 2, sink.count())
}

func TestQueue_SinkFailureIsSwallowed(t *testing.T) {
	sink := &recordingSink{fail: errors.New("down")}
	q := NewQueue(sink, 2, logging.Discard(), nil)
	require.NoError(t, q.Send(context.Background(), New("u1", TypePayment, "a", "")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() { q.Run(ctx) })
}

func TestRedisInbox_NewestFirstAndCapped(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	inbox := NewRedisInbox(client, 2)
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		require.NoError(t, inbox.Send(ctx, New("u1", TypePaymentRequest, msg, "bill-1")))
	}
	require.NoError(t, inbox.Send(ctx, New("u2", TypePayment, "other", "")))

	got, err := inbox.List(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Message)
	assert.Equal(t, "second", got[1].Message)
	assert.Equal(t, TypePaymentRequest, got[0].Type)
	assert.Equal(t, "bill-1", got[0].RelatedID)

	none, err := inbox.List(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryInbox_List(t *testing.T) {
	inbox := NewMemoryInbox()
	ctx := context.Background()
	require.NoError(t, inbox.Send(ctx, New("u1", TypeClub, "a", "")))
	require.NoError(t, inbox.Send(ctx, New("u1", TypeEvent, "b", "")))

	got, err := inbox.List(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Message)
}

func TestBreakerNotifier_OpensAfterConsecutiveFailures(t *testing.T) {
	sink := &recordingSink{fail: errors.New("down")}
	b := NewBreakerNotifier(sink, "test", logging.Discard())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.Error(t, b.Send(ctx, New("u1", TypePayment, "x", "")))
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())
	assert.ErrorIs(t, b.Send(ctx, New("u1", TypePayment, "x", "")), gobreaker.ErrOpenState)
}

func TestMulti_SendsToEverySink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{fail: errors.New("b down")}
	err := Multi{a, b}.Send(context.Background(), New("u1", TypePayment, "x", ""))
	assert.EqualError(t, err, "b down")
	assert.Equal(t, 1, a.count())
}
