package ledger

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteLedger keeps balances in a local SQLite file for single-process
// deployments and development.
type SQLiteLedger struct {
	db            *sql.DB
	startingChips int64
}

// OpenSQLite opens (or creates) the database at path and ensures the schema
func OpenSQLite(ctx context.Context, path string, startingChips int64) (*SQLiteLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY and keeps
	// :memory: databases on a single handle.
	db.SetMaxOpenConns(1)

	l := &SQLiteLedger{db: db, startingChips: startingChips}
	if err := l.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// Close closes the database
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func (l *SQLiteLedger) ensureSchema(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		chips INTEGER NOT NULL DEFAULT 0 CHECK (chips >= 0),
		total_xp INTEGER NOT NULL DEFAULT 0,
		current_xp INTEGER NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

func (l *SQLiteLedger) ensureUser(ctx context.Context, userID int64) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO users (user_id, chips) VALUES (?, ?) ON CONFLICT (user_id) DO NOTHING`,
		userID, l.startingChips)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// Balance returns the user's chips, opening the account if needed
func (l *SQLiteLedger) Balance(ctx context.Context, userID int64) (int64, error) {
	if err := l.ensureUser(ctx, userID); err != nil {
		return 0, err
	}
	var chips int64
	if err := l.db.QueryRowContext(ctx, `SELECT chips FROM users WHERE user_id = ?`, userID).Scan(&chips); err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return chips, nil
}

// Reserve withdraws amount when the balance covers it
func (l *SQLiteLedger) Reserve(ctx context.Context, userID int64, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("invalid reserve amount %d", amount)
	}
	if err := l.ensureUser(ctx, userID); err != nil {
		return err
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE users SET chips = chips - ? WHERE user_id = ? AND chips >= ?`,
		amount, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to reserve chips: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reserve chips: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("reserve %d: %w", amount, ErrInsufficientFunds)
	}
	return nil
}

// Credit deposits amount
func (l *SQLiteLedger) Credit(ctx context.Context, userID int64, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("invalid credit amount %d", amount)
	}
	if err := l.ensureUser(ctx, userID); err != nil {
		return err
	}
	if _, err := l.db.ExecContext(ctx,
		`UPDATE users SET chips = chips + ? WHERE user_id = ?`,
		amount, userID); err != nil {
		return fmt.Errorf("failed to credit chips: %w", err)
	}
	return nil
}

// RecordGame updates win/loss counters and XP
func (l *SQLiteLedger) RecordGame(ctx context.Context, userID int64, wagered, payout int64) error {
	stats := StatsFor(wagered, payout)
	if stats == (GameStats{}) {
		return nil
	}
	_, err := l.db.ExecContext(ctx, `
		UPDATE users
		SET wins = wins + ?, losses = losses + ?,
			total_xp = total_xp + ?, current_xp = current_xp + ?
		WHERE user_id = ?`,
		stats.Wins, stats.Losses, stats.XP, stats.XP, userID)
	if err != nil {
		return fmt.Errorf("failed to record game: %w", err)
	}
	return nil
}
