package ledger_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-pay/campus_pay/internal/infra"
	"github.com/campus-pay/campus_pay/internal/ledger"
)

func newPostgresStore(t *testing.T) *ledger.PostgresStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := infra.NewPostgresPool(ctx, url, 4)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, infra.Migrate(ctx, pool))
	return ledger.NewPostgresStore(pool)
}

func TestPostgresStore_TransferAndHistory(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	a, b := uuid.NewString(), uuid.NewString()

	_, err := store.OpenAccount(ctx, a, decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = store.OpenAccount(ctx, b, decimal.NewFromInt(50))
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		if _, _, err := ledger.ApplyTransfer(ctx, tx, a, b, decimal.NewFromInt(40)); err != nil {
			return err
		}
		txn, err := ledger.NewTransaction(a, b, decimal.NewFromInt(40), "lunch", ledger.StatusCompleted)
		if err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, txn)
	})
	require.NoError(t, err)

	accA, err := store.Account(ctx, a)
	require.NoError(t, err)
	accB, err := store.Account(ctx, b)
	require.NoError(t, err)
	assert.True(t, accA.Balance.Equal(decimal.NewFromInt(60)), accA.Balance.String())
	assert.True(t, accB.Balance.Equal(decimal.NewFromInt(90)), accB.Balance.String())

	history, err := store.Transactions(ctx, b)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, ledger.StatusCompleted, history[0].Status)
	assert.Equal(t, "lunch", history[0].Description)
}

func TestPostgresStore_InsufficientFundsRollsBack(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	a, b := uuid.NewString(), uuid.NewString()
	_, err := store.OpenAccount(ctx, a, decimal.NewFromInt(10))
	require.NoError(t, err)
	_, err = store.OpenAccount(ctx, b, decimal.Zero)
	require.NoError(t, err)

	err = store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		_, _, err := ledger.ApplyTransfer(ctx, tx, a, b, decimal.NewFromInt(30))
		return err
	})
	require.True(t, errors.Is(err, ledger.ErrInsufficientFunds), "got %v", err)

	acc, err := store.Account(ctx, a)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(10)))
}

func TestPostgresStore_ConcurrentSettlementOfOneSplit(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	creator, payer := uuid.NewString(), uuid.NewString()
	_, err := store.OpenAccount(ctx, creator, decimal.Zero)
	require.NoError(t, err)
	_, err = store.OpenAccount(ctx, payer, decimal.NewFromInt(100))
	require.NoError(t, err)

	bill := ledger.Bill{
		ID:          uuid.NewString(),
		GroupID:     uuid.NewString(),
		CreatorID:   creator,
		Description: "Pizza",
		TotalAmount: decimal.NewFromInt(60),
		Splits: []ledger.Split{
			{UserID: creator, Amount: decimal.NewFromInt(30)},
			{UserID: payer, Amount: decimal.NewFromInt(30)},
		},
	}
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		return tx.InsertBill(ctx, bill)
	}))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
				locked, err := tx.LockBill(ctx, bill.ID)
				if err != nil {
					return err
				}
				split, _ := locked.SplitFor(payer)
				if split.Paid {
					return errors.New("already settled")
				}
				if _, _, err := ledger.ApplyTransfer(ctx, tx, payer, creator, split.Amount); err != nil {
					return err
				}
				return tx.MarkSplitPaid(ctx, bill.ID, payer)
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	acc, err := store.Account(ctx, payer)
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(70)), acc.Balance.String())

	got, err := store.Bill(ctx, bill.ID)
	require.NoError(t, err)
	assert.Equal(t, "1/2 Paid", got.PaymentStatus())
}

func TestPostgresStore_RosterSerializesCapacity(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	eventID := uuid.NewString()

	users := make([]string, 6)
	for i := range users {
		users[i] = uuid.NewString()
		_, err := store.OpenAccount(ctx, users[i], decimal.NewFromInt(10))
		require.NoError(t, err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		enrolled int
	)
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			err := store.WithinTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
				roster, err := tx.LockRoster(ctx, "event", eventID)
				if err != nil {
					return err
				}
				if len(roster) >= 2 {
					return errors.New("full")
				}
				return tx.Enroll(ctx, ledger.Enrollment{Kind: "event", TargetID: eventID, UserID: u, CreatedAt: time.Now()})
			})
			if err == nil {
				mu.Lock()
				enrolled++
				mu.Unlock()
			}
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 2, enrolled)
	roster, err := store.Roster(ctx, "event", eventID)
	require.NoError(t, err)
	assert.Len(t, roster, 2)
}
