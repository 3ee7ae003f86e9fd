package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/callzzzz333/mm2-arena/internal/repos/accounts"
)

func (r *accountsRepo) Exists(tx *sql.Tx, userID int64) error {
	var exists bool

	err := tx.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)
	`, userID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}

	if !exists {
		return accounts.ErrAccountNotFound
	}

	return nil
}

func (r *accountsRepo) Get(ctx context.Context, userID int64) (*accounts.Account, error) {
	var a accounts.Account

	err := r.db.QueryRowContext(ctx, `
		SELECT id, balance, total_wagered, total_profits, level, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`, userID).Scan(&a.ID, &a.Balance, &a.TotalWagered, &a.TotalProfits, &a.Level, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, accounts.ErrAccountNotFound
		}

		return nil, fmt.Errorf("get account: %w", err)
	}

	return &a, nil
}

// Ensure creates the account row with a zero balance if it does not exist.
// Called when the identity provider maps a new profile to an account.
func (r *accountsRepo) Ensure(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id)
		VALUES ($1)
		ON CONFLICT (id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ensure account: %w", err)
	}

	return nil
}
