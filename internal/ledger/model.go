package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks whether a transaction moved money.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
)

// Account holds the spendable balance of a single user.
type Account struct {
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction is an append-only record of a transfer or a transfer request.
type Transaction struct {
	ID          string          `json:"id"`
	SenderID    string          `json:"sender_id"`
	ReceiverID  string          `json:"receiver_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Status      Status          `json:"status"`
	BillID      string          `json:"bill_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Enrollment is a user's place on a club or event roster. TransactionID
// names the fee payment, if any.
type Enrollment struct {
	Kind          string    `json:"kind"`
	TargetID      string    `json:"target_id"`
	UserID        string    `json:"user_id"`
	TransactionID string    `json:"transaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Split is one participant's share of a bill.
type Split struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
	Paid   bool            `json:"paid"`
}

// Bill is a shared expense split across group members.
type Bill struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"group_id"`
	CreatorID   string          `json:"creator_id"`
	Description string          `json:"description"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Splits      []Split         `json:"splits"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SplitFor returns the split owned by userID.
func (b Bill) SplitFor(userID string) (Split, bool) {
	for _, s := range b.Splits {
		if s.UserID == userID {
			return s, true
		}
	}
	return Split{}, false
}

// PaidCount reports how many splits are settled.
func (b Bill) PaidCount() int {
	n := 0
	for _, s := range b.Splits {
		if s.Paid {
			n++
		}
	}
	return n
}

// PaymentStatus renders progress as "<paid>/<total> Paid".
func (b Bill) PaymentStatus() string {
	return fmt.Sprintf("%d/%d Paid", b.PaidCount(), len(b.Splits))
}

// FullyPaid reports whether every split is settled.
func (b Bill) FullyPaid() bool {
	return b.PaidCount() == len(b.Splits)
}

func (b Bill) clone() Bill {
	b.Splits = append([]Split(nil), b.Splits...)
	return b
}

// MarkPaid flags userID's split as settled on this copy of the bill.
func (b *Bill) MarkPaid(userID string) bool {
	for i := range b.Splits {
		if b.Splits[i].UserID == userID {
			b.Splits[i].Paid = true
			return true
		}
	}
	return false
}
