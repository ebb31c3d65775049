package billing

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/campus-pay/campus_pay/internal/ledger"
)

// minScale is the smallest unit equal splits are rounded to: one cent.
const minScale = 2

// splitTolerance is how far custom shares may drift from the bill total.
var splitTolerance = decimal.New(1, -2)

// Share is one user's explicit portion of a custom split.
type Share struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

type splitKind int

const (
	splitEqual splitKind = iota
	splitCustom
)

// SplitSpec selects how a bill total is divided. The zero value is Equal.
type SplitSpec struct {
	kind   splitKind
	shares []Share
}

// Equal divides the total across every group participant.
func Equal() SplitSpec { return SplitSpec{kind: splitEqual} }

// Custom assigns explicit shares.
func Custom(shares []Share) SplitSpec {
	return SplitSpec{kind: splitCustom, shares: append([]Share(nil), shares...)}
}

// IsCustom reports whether explicit shares were given.
func (s SplitSpec) IsCustom() bool { return s.kind == splitCustom }

// Shares returns the explicit shares of a custom split.
func (s SplitSpec) Shares() []Share { return append([]Share(nil), s.shares...) }

func (s SplitSpec) String() string {
	if s.IsCustom() {
		return "custom"
	}
	return "equal"
}

// EqualSplits divides total across participants using the largest remainder
// rule: amounts are counted in units of 10^-s where s is the larger of two and
// the number of decimals in total, capped at ledger.MoneyScale. Every participant gets floor(units/N) and
// the first units mod N participants get one extra unit. The result always
// sums exactly to total.
func EqualSplits(total decimal.Decimal, participants []string) ([]ledger.Split, error) {
	members := dedupe(participants)
	if len(members) == 0 {
		return nil, ErrEmptyGroup
	}
	if !ledger.ValidAmount(total) {
		return nil, ErrInvalidAmount
	}

	scale := int32(minScale)
	if decimals := -total.Exponent(); decimals > scale {
		scale = min(decimals, ledger.MoneyScale)
	}

	units := total.Shift(scale).BigInt()
	n := big.NewInt(int64(len(members)))
	base, rem := new(big.Int).QuoRem(units, n, new(big.Int))

	share := decimal.NewFromBigInt(base, -scale)
	bumped := decimal.NewFromBigInt(new(big.Int).Add(base, big.NewInt(1)), -scale)
	extra := int(rem.Int64())

	splits := make([]ledger.Split, len(members))
	for i, userID := range members {
		amount := share
		if i < extra {
			amount = bumped
		}
		splits[i] = ledger.Split{UserID: userID, Amount: amount}
	}
	return splits, nil
}

// CustomSplits validates explicit shares against total. Every share must be
// positive, fit ledger.MoneyScale and be owned by a distinct user, and the sum must match total within
// one cent.
func CustomSplits(total decimal.Decimal, shares []Share) ([]ledger.Split, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("%w: no shares given", ErrInvalidShare)
	}
	if !ledger.ValidAmount(total) {
		return nil, ErrInvalidAmount
	}

	seen := make(map[string]bool, len(shares))
	sum := decimal.Zero
	splits := make([]ledger.Split, 0, len(shares))
	for _, share := range shares {
		switch {
		case share.UserID == "":
			return nil, fmt.Errorf("%w: missing user id", ErrInvalidShare)
		case seen[share.UserID]:
			return nil, fmt.Errorf("%w: duplicate user %s", ErrInvalidShare, share.UserID)
		case !ledger.ValidAmount(share.Amount):
			return nil, fmt.Errorf("%w: amount for %s must be positive with at most %d decimal places", ErrInvalidShare, share.UserID, ledger.MoneyScale)
		}
		seen[share.UserID] = true
		sum = sum.Add(share.Amount)
		splits = append(splits, ledger.Split{UserID: share.UserID, Amount: share.Amount})
	}

	if sum.Sub(total).Abs().GreaterThan(splitTolerance) {
		return nil, fmt.Errorf("%w: shares sum to %s, bill total is %s", ErrSplitMismatch, sum.String(), total.String())
	}
	return splits, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
