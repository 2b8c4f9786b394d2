package ledger

import (
	"context"
	"fmt"
	"sync"
)

type account struct {
	mu     sync.Mutex
	chips  int64
	wins   int
	losses int
	xp     int64
}

// MemoryLedger is an in-process ledger. Each account has its own lock so
// users never contend with each other.
type MemoryLedger struct {
	mu            sync.RWMutex
	accounts      map[int64]*account
	startingChips int64
}

// NewMemoryLedger creates an empty ledger that opens accounts with
// startingChips.
func NewMemoryLedger(startingChips int64) *MemoryLedger {
	return &MemoryLedger{
		accounts:      make(map[int64]*account),
		startingChips: startingChips,
	}
}

func (l *MemoryLedger) account(userID int64) *account {
	l.mu.RLock()
	acct, ok := l.accounts[userID]
	l.mu.RUnlock()
	if ok {
		return acct
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if acct, ok := l.accounts[userID]; ok {
		return acct
	}
	acct = &account{chips: l.startingChips}
	l.accounts[userID] = acct
	return acct
}

// SetBalance overwrites a user's balance
func (l *MemoryLedger) SetBalance(userID int64, chips int64) {
	acct := l.account(userID)
	acct.mu.Lock()
	acct.chips = chips
	acct.mu.Unlock()
}

// Balance returns the user's available chips
func (l *MemoryLedger) Balance(_ context.Context, userID int64) (int64, error) {
	acct := l.account(userID)
	acct.mu.Lock()
	defer acct.mu.Unlock()
	return acct.chips, nil
}

// Reserve withdraws amount when the balance covers it
func (l *MemoryLedger) Reserve(_ context.Context, userID int64, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("invalid reserve amount %d", amount)
	}
	acct := l.account(userID)
	acct.mu.Lock()
	defer acct.mu.Unlock()
	if acct.chips < amount {
		return fmt.Errorf("reserve %d with balance %d: %w", amount, acct.chips, ErrInsufficientFunds)
	}
	acct.chips -= amount
	return nil
}

// Credit deposits amount
func (l *MemoryLedger) Credit(_ context.Context, userID int64, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("invalid credit amount %d", amount)
	}
	acct := l.account(userID)
	acct.mu.Lock()
	acct.chips += amount
	acct.mu.Unlock()
	return nil
}

// RecordGame updates win/loss counters and XP
func (l *MemoryLedger) RecordGame(_ context.Context, userID int64, wagered, payout int64) error {
	stats := StatsFor(wagered, payout)
	acct := l.account(userID)
	acct.mu.Lock()
	acct.wins += stats.Wins
	acct.losses += stats.Losses
	acct.xp += stats.XP
	acct.mu.Unlock()
	return nil
}

// Stats returns the recorded counters for a user
func (l *MemoryLedger) Stats(userID int64) GameStats {
	acct := l.account(userID)
	acct.mu.Lock()
	defer acct.mu.Unlock()
	return GameStats{Wins: acct.wins, Losses: acct.losses, XP: acct.xp}
}
