package clients

import (
	"sync"

	"github.com/shopspring/decimal"
)

var _ BalanceReader = (*StaticBalance)(nil)

// StaticBalance is a BalanceReader over a snapshot the owner updates explicitly.
type StaticBalance struct {
	mu      sync.RWMutex
	balance decimal.Decimal
	known   bool
}

// NewStaticBalance returns a reader holding a known balance.
func NewStaticBalance(balance decimal.Decimal) *StaticBalance {
	return &StaticBalance{balance: balance, known: true}
}

// UnknownBalance returns a reader whose balance has not been fetched yet.
func UnknownBalance() *StaticBalance {
	return &StaticBalance{}
}

func (s *StaticBalance) CachedBalance() (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance, s.known
}

// Set replaces the snapshot.
func (s *StaticBalance) Set(balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = balance
	s.known = true
}

// Forget marks the balance unknown again.
func (s *StaticBalance) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = decimal.Zero
	s.known = false
}
