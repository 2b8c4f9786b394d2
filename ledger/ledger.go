// Package ledger holds chip balances. Reservations and credits are atomic
// per user and independent across users.
package ledger

import (
	"context"
	"errors"
)

// StartingChips is the balance a user receives on first contact
const StartingChips = 1000

// ErrInsufficientFunds is returned when a reservation exceeds the balance.
// A failed reservation has no effect.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger is the balance store consumed by the table service
type Ledger interface {
	// Balance returns the user's available chips
	Balance(ctx context.Context, userID int64) (int64, error)
	// Reserve withdraws amount or fails with ErrInsufficientFunds
	Reserve(ctx context.Context, userID int64, amount int64) error
	// Credit deposits amount
	Credit(ctx context.Context, userID int64, amount int64) error
}

// StatsRecorder is implemented by ledgers that keep player statistics
type StatsRecorder interface {
	RecordGame(ctx context.Context, userID int64, wagered, payout int64) error
}

// XPPerProfit is the XP awarded per chip of profit
const XPPerProfit = 2

// GameStats is the stats delta for one finished game
type GameStats struct {
	Wins   int
	Losses int
	XP     int64
}

// StatsFor derives the stats delta of a game from its money flow
func StatsFor(wagered, payout int64) GameStats {
	profit := payout - wagered
	switch {
	case profit > 0:
		return GameStats{Wins: 1, XP: profit * XPPerProfit}
	case profit < 0:
		return GameStats{Losses: 1}
	}
	return GameStats{}
}
