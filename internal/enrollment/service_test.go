package enrollment

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pay/campus_pay/internal/ledger"
	"github.com/campus-pay/campus_pay/internal/logging"
	"github.com/campus-pay/campus_pay/internal/notification"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (r *recordingNotifier) Send(_ context.Context, n notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) ofType(typ notification.Type) []notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Notification
	for _, n := range r.sent {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func setup(t *testing.T, balances map[string]string) (*Service, ledger.Store, *recordingNotifier) {
	t.Helper()
	store := ledger.NewInMemory()
	for id, bal := range balances {
		_, err := store.OpenAccount(context.Background(), id, dec(bal))
		require.NoError(t, err)
	}
	notifier := &recordingNotifier{}
	return NewService(NewMemoryRepository(), store, notifier, logging.Discard(), nil), store, notifier
}

func balance(t *testing.T, store ledger.Store, id string) decimal.Decimal {
	t.Helper()
	acc, err := store.Account(context.Background(), id)
	require.NoError(t, err)
	return acc.Balance
}

func TestJoinClub_PaysFeeToFirstOrganizer(t *testing.T) {
	svc, store, notifier := setup(t, map[string]string{"olive": "0", "bob": "100"})
	ctx := context.Background()

	club, err := svc.CreateClub(ctx, CreateClubInput{Name: " Chess ", Description: "Weekly games", CreatorID: "olive", Fee: dec("15")})
	require.NoError(t, err)
	assert.Equal(t, "Chess", club.Name)
	assert.Equal(t, []string{"olive"}, club.Organizers)

	joined, err := svc.JoinClub(ctx, club.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, joined.Members)

	assert.True(t, balance(t, store, "bob").Equal(dec("85")))
	assert.True(t, balance(t, store, "olive").Equal(dec("15")))

	history, err := store.Transactions(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Membership fee for joining Chess", history[0].Description)
	assert.Equal(t, ledger.StatusCompleted, history[0].Status)

	welcome := notifier.ofType(notification.TypeClub)
	require.Len(t, welcome, 1)
	assert.Equal(t, "bob", welcome[0].UserID)
	assert.Equal(t, club.ID, welcome[0].RelatedID)
	require.Len(t, notifier.ofType(notification.TypePayment), 1)

	_, err = svc.JoinClub(ctx, club.ID, "bob")
	assert.ErrorIs(t, err, ErrAlreadyMember)
	_, err = svc.JoinClub(ctx, club.ID, "olive")
	assert.ErrorIs(t, err, ErrAlreadyMember)
	assert.True(t, balance(t, store, "bob").Equal(dec("85")), "fee must not be charged twice")
}

func TestJoinClub_FreeAndInsufficientFunds(t *testing.T) {
	svc, store, _ := setup(t, map[string]string{"olive": "0", "bob": "5", "carol": "5"})
	ctx := context.Background()

	free, err := svc.CreateClub(ctx, CreateClubInput{Name: "Hiking", Description: "Trails", CreatorID: "olive"})
	require.NoError(t, err)
	_, err = svc.JoinClub(ctx, free.ID, "bob")
	require.NoError(t, err)
	assert.True(t, balance(t, store, "bob").Equal(dec("5")))

	paid, err := svc.CreateClub(ctx, CreateClubInput{Name: "Sailing", Description: "Boats", CreatorID: "olive", Fee: dec("50")})
	require.NoError(t, err)
	_, err = svc.JoinClub(ctx, paid.ID, "carol")
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	got, err := svc.Club(ctx, paid.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Members, "failed payment must not enroll")
	assert.True(t, balance(t, store, "carol").Equal(dec("5")))
}

func TestCreateClub_Validation(t *testing.T) {
	svc, _, _ := setup(t, nil)
	ctx := context.Background()

	_, err := svc.CreateClub(ctx, CreateClubInput{Name: "Chess", CreatorID: "olive"})
	assert.ErrorIs(t, err, ErrMissingClubInfo)
	_, err = svc.CreateClub(ctx, CreateClubInput{Name: "Chess", Description: "x", CreatorID: "olive", Fee: dec("-1")})
	assert.ErrorIs(t, err, ErrInvalidFee)
	_, err = svc.CreateClub(ctx, CreateClubInput{Name: "Chess", Description: "x", CreatorID: "olive", Fee: dec("0.00001")})
	assert.ErrorIs(t, err, ErrInvalidFee)

	_, err = svc.CreateClub(ctx, CreateClubInput{Name: "Chess", Description: "x", CreatorID: "olive"})
	require.NoError(t, err)
	_, err = svc.CreateClub(ctx, CreateClubInput{Name: "Chess", Description: "y", CreatorID: "bob"})
	assert.ErrorIs(t, err, ErrClubNameTaken)

	_, err = svc.JoinClub(ctx, "missing", "bob")
	assert.ErrorIs(t, err, ErrClubNotFound)
}

func TestCreateEvent_OnlyOrganizers(t *testing.T) {
	svc, _, _ := setup(t, map[string]string{"olive": "0"})
	ctx := context.Background()
	club, err := svc.CreateClub(ctx, CreateClubInput{Name: "Drama", Description: "Plays", CreatorID: "olive"})
	require.NoError(t, err)

	in := CreateEventInput{ClubID: club.ID, CreatorID: "bob", Title: "Opening night", StartsAt: time.Now().Add(24 * time.Hour)}
	_, err = svc.CreateEvent(ctx, in)
	assert.ErrorIs(t, err, ErrNotOrganizer)

	in.CreatorID = "olive"
	in.Capacity = -1
	_, err = svc.CreateEvent(ctx, in)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	in.Capacity = 0
	in.Title = " "
	_, err = svc.CreateEvent(ctx, in)
	assert.ErrorIs(t, err, ErrMissingTitle)

	in.Title = "Opening night"
	event, err := svc.CreateEvent(ctx, in)
	require.NoError(t, err)

	events, err := svc.Events(ctx, club.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.ID, events[0].ID)

	_, err = svc.Events(ctx, "missing")
	assert.ErrorIs(t, err, ErrClubNotFound)
}

func newEvent(t *testing.T, svc *Service, price string, capacity int) Event {
	t.Helper()
	ctx := context.Background()
	club, err := svc.CreateClub(ctx, CreateClubInput{Name: "Music " + price, Description: "Gigs", CreatorID: "olive"})
	require.NoError(t, err)
	event, err := svc.CreateEvent(ctx, CreateEventInput{
		ClubID:      club.ID,
		CreatorID:   "olive",
		Title:       "Jazz night",
		StartsAt:    time.Now().Add(time.Hour),
		TicketPrice: dec(price),
		Capacity:    capacity,
	})
	require.NoError(t, err)
	return event
}

func TestRegisterForEvent_ChargesTicketAndRespectsCapacity(t *testing.T) {
	svc, store, notifier := setup(t, map[string]string{"olive": "0", "bob": "100", "carol": "100", "dave": "100"})
	ctx := context.Background()
	event := newEvent(t, svc, "12.50", 2)

	got, err := svc.RegisterForEvent(ctx, event.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, got.Attendees)

	_, err = svc.RegisterForEvent(ctx, event.ID, "bob")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	_, err = svc.RegisterForEvent(ctx, event.ID, "carol")
	require.NoError(t, err)

	_, err = svc.RegisterForEvent(ctx, event.ID, "dave")
	assert.ErrorIs(t, err, ErrEventFull)

	assert.True(t, balance(t, store, "bob").Equal(dec("87.5")))
	assert.True(t, balance(t, store, "carol").Equal(dec("87.5")))
	assert.True(t, balance(t, store, "dave").Equal(dec("100")))
	assert.True(t, balance(t, store, "olive").Equal(dec("25")))

	history, err := store.Transactions(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Ticket for event: Jazz night", history[0].Description)

	assert.Len(t, notifier.ofType(notification.TypeEvent), 2)
}

func TestRegisterForEvent_CreatorAttendsFree(t *testing.T) {
	svc, store, _ := setup(t, map[string]string{"olive": "10"})
	ctx := context.Background()
	event := newEvent(t, svc, "20", 0)

	got, err := svc.RegisterForEvent(ctx, event.ID, "olive")
	require.NoError(t, err)
	assert.Equal(t, []string{"olive"}, got.Attendees)
	assert.True(t, balance(t, store, "olive").Equal(dec("10")))

	_, err = svc.RegisterForEvent(ctx, "missing", "olive")
	assert.ErrorIs(t, err, ErrEventNotFound)
	_, err = svc.RegisterForEvent(ctx, event.ID, "ghost")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestRegisterForEvent_ConcurrentLastSeat(t *testing.T) {
	balances := map[string]string{"olive": "0"}
	users := []string{"u0", "u1", "u2", "u3", "u4", "u5", "u6", "u7"}
	for _, u := range users {
		balances[u] = "10"
	}
	svc, store, _ := setup(t, balances)
	event := newEvent(t, svc, "10", 1)

	var (
		wg   sync.WaitGroup
		ok   atomic.Int32
		full atomic.Int32
	)
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			_, err := svc.RegisterForEvent(context.Background(), event.ID, u)
			if err == nil {
				ok.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrEventFull)
			full.Add(1)
		}(u)
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(len(users)-1), full.Load())
	assert.True(t, balance(t, store, "olive").Equal(dec("10")), "exactly one ticket must be paid")

	got, err := svc.Event(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Len(t, got.Attendees, 1)
}
