package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	defaultTxTimeout  = 5 * time.Second
	defaultMaxRetries = 3
	defaultRetryBase  = 20 * time.Millisecond
)

// PostgresStore persists accounts, transactions and bills in PostgreSQL.
type PostgresStore struct {
	db         *pgxpool.Pool
	txTimeout  time.Duration
	maxRetries int
	retryBase  time.Duration
	onRetry    func(attempt int, err error)
}

// Option customises a PostgresStore.
type Option func(*PostgresStore)

// WithTxTimeout bounds every unit of work.
func WithTxTimeout(d time.Duration) Option {
	return func(s *PostgresStore) {
		if d > 0 {
			s.txTimeout = d
		}
	}
}

// WithMaxRetries sets how many times a unit of work is re-run after a
// serialization failure or deadlock.
func WithMaxRetries(n int) Option {
	return func(s *PostgresStore) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithRetryHook registers a callback invoked before each retry.
func WithRetryHook(fn func(attempt int, err error)) Option {
	return func(s *PostgresStore) { s.onRetry = fn }
}

// NewPostgresStore constructs a Postgres-backed store implementation.
func NewPostgresStore(db *pgxpool.Pool, opts ...Option) *PostgresStore {
	s := &PostgresStore{
		db:         db,
		txTimeout:  defaultTxTimeout,
		maxRetries: defaultMaxRetries,
		retryBase:  defaultRetryBase,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithinTx runs fn in a READ COMMITTED transaction, re-running it when
// Postgres reports a serialization failure or deadlock.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	for attempt := 0; ; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil || !isRetryable(err) {
			return err
		}
		if attempt >= s.maxRetries {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		if s.onRetry != nil {
			s.onRetry(attempt+1, err)
		}
		if err := sleepWithContext(ctx, backoffWithJitter(s.retryBase, attempt)); err != nil {
			return err
		}
	}
}

func (s *PostgresStore) runTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrUnavailable, err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(ctx, &postgresTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// OpenAccount inserts the account unless it already exists.
func (s *PostgresStore) OpenAccount(ctx context.Context, userID string, opening decimal.Decimal) (Account, error) {
	if _, err := s.db.Exec(ctx, `INSERT INTO accounts (user_id, balance, updated_at) VALUES ($1, $2, now())
        ON CONFLICT (user_id) DO NOTHING`, userID, opening); err != nil {
		return Account{}, err
	}
	return s.Account(ctx, userID)
}

// Account returns the committed account for userID.
func (s *PostgresStore) Account(ctx context.Context, userID string) (Account, error) {
	var acc Account
	err := s.db.QueryRow(ctx, `SELECT user_id, balance, updated_at FROM accounts WHERE user_id = $1`, userID).
		Scan(&acc.UserID, &acc.Balance, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return acc, nil
}

// RecordTransaction appends a single transaction outside of a unit of work.
func (s *PostgresStore) RecordTransaction(ctx context.Context, txn Transaction) error {
	return insertTransaction(ctx, s.db, txn)
}

// Transactions lists the history of userID, newest first.
func (s *PostgresStore) Transactions(ctx context.Context, userID string) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id, sender_id, receiver_id, amount, description, status, COALESCE(bill_id, ''), created_at
        FROM transactions
        WHERE sender_id = $1 OR receiver_id = $1
        ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Transaction, 0)
	for rows.Next() {
		var txn Transaction
		if err := rows.Scan(&txn.ID, &txn.SenderID, &txn.ReceiverID, &txn.Amount, &txn.Description, &txn.Status, &txn.BillID, &txn.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

// Bill loads a bill with its splits.
func (s *PostgresStore) Bill(ctx context.Context, billID string) (Bill, error) {
	return loadBill(ctx, s.db, billID, false)
}

// BillsByGroup lists the bills of a group in creation order.
func (s *PostgresStore) BillsByGroup(ctx context.Context, groupID string) ([]Bill, error) {
	return s.listBills(ctx, `
        SELECT id FROM bills WHERE group_id = $1 ORDER BY created_at, id`, groupID)
}

// OpenBills lists every bill with an unpaid split.
func (s *PostgresStore) OpenBills(ctx context.Context) ([]Bill, error) {
	return s.listBills(ctx, `
        SELECT b.id FROM bills b
        WHERE EXISTS (SELECT 1 FROM bill_splits s WHERE s.bill_id = b.id AND NOT s.paid)
        ORDER BY b.created_at, b.id`)
}

// Roster lists the users enrolled on kind/targetID, oldest first.
func (s *PostgresStore) Roster(ctx context.Context, kind, targetID string) ([]string, error) {
	return loadRoster(ctx, s.db, kind, targetID)
}

func (s *PostgresStore) listBills(ctx context.Context, query string, args ...any) ([]Bill, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}

	out := make([]Bill, 0, len(ids))
	for _, id := range ids {
		bill, err := loadBill(ctx, s.db, id, false)
		if err != nil {
			return nil, err
		}
		out = append(out, bill)
	}
	return out, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertTransaction(ctx context.Context, q querier, txn Transaction) error {
	var billID *string
	if txn.BillID != "" {
		billID = &txn.BillID
	}
	_, err := q.Exec(ctx, `INSERT INTO transactions (id, sender_id, receiver_id, amount, description, status, bill_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		txn.ID, txn.SenderID, txn.ReceiverID, txn.Amount, txn.Description, txn.Status, billID, txn.CreatedAt)
	return err
}

func loadBill(ctx context.Context, q querier, billID string, forUpdate bool) (Bill, error) {
	query := `SELECT id, group_id, creator_id, description, total_amount, created_at FROM bills WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var bill Bill
	err := q.QueryRow(ctx, query, billID).
		Scan(&bill.ID, &bill.GroupID, &bill.CreatorID, &bill.Description, &bill.TotalAmount, &bill.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bill{}, ErrBillNotFound
		}
		return Bill{}, err
	}

	rows, err := q.Query(ctx, `SELECT user_id, amount, paid FROM bill_splits WHERE bill_id = $1 ORDER BY position`, billID)
	if err != nil {
		return Bill{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var split Split
		if err := rows.Scan(&split.UserID, &split.Amount, &split.Paid); err != nil {
			return Bill{}, err
		}
		bill.Splits = append(bill.Splits, split)
	}
	return bill, rows.Err()
}

func loadRoster(ctx context.Context, q querier, kind, targetID string) ([]string, error) {
	rows, err := q.Query(ctx, `SELECT user_id FROM enrollments
        WHERE kind = $1 AND target_id = $2 ORDER BY created_at, user_id`, kind, targetID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) lockAccounts(ctx context.Context, userIDs []string) (map[string]Account, error) {
	ids := append([]string(nil), userIDs...)
	sort.Strings(ids)

	out := make(map[string]Account, len(ids))
	for _, id := range ids {
		var acc Account
		err := t.tx.QueryRow(ctx, `SELECT user_id, balance, updated_at FROM accounts WHERE user_id = $1 FOR UPDATE`, id).
			Scan(&acc.UserID, &acc.Balance, &acc.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrAccountNotFound
			}
			return nil, err
		}
		out[id] = acc
	}
	return out, nil
}

func (t *postgresTx) writeBalance(ctx context.Context, userID string, balance decimal.Decimal) error {
	tag, err := t.tx.Exec(ctx, `UPDATE accounts SET balance = $2, updated_at = now() WHERE user_id = $1`, userID, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (t *postgresTx) InsertTransaction(ctx context.Context, txn Transaction) error {
	return insertTransaction(ctx, t.tx, txn)
}

func (t *postgresTx) InsertBill(ctx context.Context, bill Bill) error {
	if _, err := t.tx.Exec(ctx, `INSERT INTO bills (id, group_id, creator_id, description, total_amount, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		bill.ID, bill.GroupID, bill.CreatorID, bill.Description, bill.TotalAmount, bill.CreatedAt); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i, split := range bill.Splits {
		batch.Queue(`INSERT INTO bill_splits (bill_id, position, user_id, amount, paid) VALUES ($1, $2, $3, $4, $5)`,
			bill.ID, i, split.UserID, split.Amount, split.Paid)
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *postgresTx) LockBill(ctx context.Context, billID string) (Bill, error) {
	return loadBill(ctx, t.tx, billID, true)
}

func (t *postgresTx) MarkSplitPaid(ctx context.Context, billID, userID string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE bill_splits SET paid = true WHERE bill_id = $1 AND user_id = $2`, billID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSplitNotFound
	}
	return nil
}

// LockRoster takes a transaction-scoped advisory lock on the roster so that
// capacity checks and inserts for one club or event run one at a time.
func (t *postgresTx) LockRoster(ctx context.Context, kind, targetID string) ([]string, error) {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, rosterKey(kind, targetID)); err != nil {
		return nil, err
	}
	return loadRoster(ctx, t.tx, kind, targetID)
}

func (t *postgresTx) Enroll(ctx context.Context, e Enrollment) error {
	var txnID *string
	if e.TransactionID != "" {
		txnID = &e.TransactionID
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO enrollments (kind, target_id, user_id, transaction_id, created_at)
        VALUES ($1, $2, $3, $4, $5)`, e.Kind, e.TargetID, e.UserID, txnID, e.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyEnrolled
	}
	return err
}
