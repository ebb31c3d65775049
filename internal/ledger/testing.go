package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that overwrites the balance for an account when using the in-memory store.
// The account is created if it does not exist.
func SeedBalance(s Store, userID string, amount decimal.Decimal) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		acc := mem.accounts[userID]
		acc.UserID = userID
		acc.Balance = amount
		mem.accounts[userID] = acc
	}
}
