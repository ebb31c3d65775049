package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type inMemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]Account
	transactions []Transaction
	bills        map[string]Bill
	billOrder    []string
	rosters      map[string][]Enrollment
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests
// and local development. Units of work are serialized behind a single writer lock.
func NewInMemory() Store {
	return &inMemoryStore{
		accounts: make(map[string]Account),
		bills:    make(map[string]Bill),
		rosters:  make(map[string][]Enrollment),
	}
}

func (s *inMemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		accounts: make(map[string]Account),
		bills:    make(map[string]Bill),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *inMemoryStore) OpenAccount(_ context.Context, userID string, opening decimal.Decimal) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, exists := s.accounts[userID]; exists {
		return acc, nil
	}
	acc := Account{UserID: userID, Balance: opening, UpdatedAt: time.Now().UTC()}
	s.accounts[userID] = acc
	return acc, nil
}

func (s *inMemoryStore) Account(_ context.Context, userID string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, exists := s.accounts[userID]
	if !exists {
		return Account{}, ErrAccountNotFound
	}
	return acc, nil
}

func (s *inMemoryStore) RecordTransaction(_ context.Context, txn Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, txn)
	return nil
}

func (s *inMemoryStore) Transactions(_ context.Context, userID string) ([]Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Transaction, 0)
	for i := len(s.transactions) - 1; i >= 0; i-- {
		txn := s.transactions[i]
		if txn.SenderID == userID || txn.ReceiverID == userID {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (s *inMemoryStore) Bill(_ context.Context, billID string) (Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bill, exists := s.bills[billID]
	if !exists {
		return Bill{}, ErrBillNotFound
	}
	return bill.clone(), nil
}

func (s *inMemoryStore) BillsByGroup(_ context.Context, groupID string) ([]Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Bill, 0)
	for _, id := range s.billOrder {
		if bill := s.bills[id]; bill.GroupID == groupID {
			out = append(out, bill.clone())
		}
	}
	return out, nil
}

func (s *inMemoryStore) OpenBills(_ context.Context) ([]Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Bill, 0)
	for _, id := range s.billOrder {
		if bill := s.bills[id]; !bill.FullyPaid() {
			out = append(out, bill.clone())
		}
	}
	return out, nil
}

func (s *inMemoryStore) Roster(_ context.Context, kind, targetID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return userIDs(s.rosters[rosterKey(kind, targetID)]), nil
}

func rosterKey(kind, targetID string) string { return kind + "/" + targetID }

func userIDs(entries []Enrollment) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.UserID)
	}
	return out
}

// memTx stages writes on top of the committed maps. The store's writer lock
// is held for its whole lifetime.
type memTx struct {
	store    *inMemoryStore
	accounts map[string]Account
	txns     []Transaction
	bills    map[string]Bill
	newBills []string
	enrolled []Enrollment
}

func (t *memTx) lockAccounts(_ context.Context, userIDs []string) (map[string]Account, error) {
	ids := append([]string(nil), userIDs...)
	sort.Strings(ids)
	out := make(map[string]Account, len(ids))
	for _, id := range ids {
		acc, ok := t.accounts[id]
		if !ok {
			acc, ok = t.store.accounts[id]
		}
		if !ok {
			return nil, ErrAccountNotFound
		}
		out[id] = acc
	}
	return out, nil
}

func (t *memTx) writeBalance(_ context.Context, userID string, balance decimal.Decimal) error {
	acc, ok := t.accounts[userID]
	if !ok {
		acc, ok = t.store.accounts[userID]
	}
	if !ok {
		return ErrAccountNotFound
	}
	acc.Balance = balance
	acc.UpdatedAt = time.Now().UTC()
	t.accounts[userID] = acc
	return nil
}

func (t *memTx) InsertTransaction(_ context.Context, txn Transaction) error {
	t.txns = append(t.txns, txn)
	return nil
}

func (t *memTx) InsertBill(_ context.Context, bill Bill) error {
	t.bills[bill.ID] = bill.clone()
	t.newBills = append(t.newBills, bill.ID)
	return nil
}

func (t *memTx) LockBill(_ context.Context, billID string) (Bill, error) {
	bill, err := t.bill(billID)
	if err != nil {
		return Bill{}, err
	}
	return bill.clone(), nil
}

func (t *memTx) MarkSplitPaid(_ context.Context, billID, userID string) error {
	bill, err := t.bill(billID)
	if err != nil {
		return err
	}
	bill = bill.clone()
	if !bill.MarkPaid(userID) {
		return ErrSplitNotFound
	}
	t.bills[billID] = bill
	return nil
}

func (t *memTx) LockRoster(_ context.Context, kind, targetID string) ([]string, error) {
	return userIDs(t.roster(kind, targetID)), nil
}

func (t *memTx) Enroll(_ context.Context, e Enrollment) error {
	for _, existing := range t.roster(e.Kind, e.TargetID) {
		if existing.UserID == e.UserID {
			return ErrAlreadyEnrolled
		}
	}
	t.enrolled = append(t.enrolled, e)
	return nil
}

func (t *memTx) roster(kind, targetID string) []Enrollment {
	out := append([]Enrollment(nil), t.store.rosters[rosterKey(kind, targetID)]...)
	for _, e := range t.enrolled {
		if e.Kind == kind && e.TargetID == targetID {
			out = append(out, e)
		}
	}
	return out
}

func (t *memTx) bill(billID string) (Bill, error) {
	if bill, ok := t.bills[billID]; ok {
		return bill, nil
	}
	if bill, ok := t.store.bills[billID]; ok {
		return bill, nil
	}
	return Bill{}, ErrBillNotFound
}

func (t *memTx) commit() {
	for id, acc := range t.accounts {
		t.store.accounts[id] = acc
	}
	t.store.transactions = append(t.store.transactions, t.txns...)
	for id, bill := range t.bills {
		t.store.bills[id] = bill
	}
	t.store.billOrder = append(t.store.billOrder, t.newBills...)
	for _, e := range t.enrolled {
		key := rosterKey(e.Kind, e.TargetID)
		t.store.rosters[key] = append(t.store.rosters[key], e)
	}
}
