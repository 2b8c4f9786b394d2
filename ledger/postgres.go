package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgExecutor is the subset of pgxpool.Pool used by the ledger
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger keeps balances in the users table. Every operation is a
// single conditional statement, so Postgres row locking makes it atomic
// per user.
type PostgresLedger struct {
	db            pgExecutor
	startingChips int64
}

// NewPostgresLedger creates a ledger over a connection pool
func NewPostgresLedger(pool *pgxpool.Pool, startingChips int64) *PostgresLedger {
	return &PostgresLedger{db: pool, startingChips: startingChips}
}

// EnsureSchema creates the users table if it does not exist
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS users (
		user_id BIGINT PRIMARY KEY,
		chips BIGINT NOT NULL DEFAULT 0,
		total_xp BIGINT NOT NULL DEFAULT 0,
		current_xp BIGINT NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CONSTRAINT users_chips_non_negative CHECK (chips >= 0)
	);
	CREATE INDEX IF NOT EXISTS idx_users_chips ON users(chips);`
	if _, err := l.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

func (l *PostgresLedger) ensureUser(ctx context.Context, userID int64) error {
	_, err := l.db.Exec(ctx,
		`INSERT INTO users (user_id, chips) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`,
		userID, l.startingChips)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Balance returns the user's chips, opening the account if needed
func (l *PostgresLedger) Balance(ctx context.Context, userID int64) (int64, error) {
	if err := l.ensureUser(ctx, userID); err != nil {
		return 0, err
	}
	var chips int64
	if err := l.db.QueryRow(ctx, `SELECT chips FROM users WHERE user_id = $1`, userID).Scan(&chips); err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return chips, nil
}

// Reserve withdraws amount when the balance covers it
func (l *PostgresLedger) Reserve(ctx context.Context, userID int64, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("invalid reserve amount %d", amount)
	}
	if err := l.ensureUser(ctx, userID); err != nil {
		return err
	}
	tag, err := l.db.Exec(ctx,
		`UPDATE users SET chips = chips - $2 WHERE user_id = $1 AND chips >= $2`,
		userID, amount)
	if err != nil {
		return fmt.Errorf("failed to reserve chips: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reserve %d: %w", amount, ErrInsufficientFunds)
	}
	return nil
}

// Credit deposits amount
func (l *PostgresLedger) Credit(ctx context.Context, userID int64, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("invalid credit amount %d", amount)
	}
	if err := l.ensureUser(ctx, userID); err != nil {
		return err
	}
	if _, err := l.db.Exec(ctx,
		`UPDATE users SET chips = chips + $2 WHERE user_id = $1`,
		userID, amount); err != nil {
		return fmt.Errorf("failed to credit chips: %w", err)
	}
	return nil
}

// RecordGame updates win/loss counters and XP
func (l *PostgresLedger) RecordGame(ctx context.Context, userID int64, wagered, payout int64) error {
	stats := StatsFor(wagered, payout)
	if stats == (GameStats{}) {
		return nil
	}
	_, err := l.db.Exec(ctx, `
		UPDATE users
		SET wins = wins + $2, losses = losses + $3,
			total_xp = total_xp + $4, current_xp = current_xp + $4
		WHERE user_id = $1`,
		userID, stats.Wins, stats.Losses, stats.XP)
	if err != nil {
		return fmt.Errorf("failed to record game: %w", err)
	}
	return nil
}
