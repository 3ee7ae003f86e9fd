package accounts

import (
	"database/sql"
	"fmt"
)

func (r *accountsRepo) Credit(tx *sql.Tx, userID int64, amount int64) error {
	_, err := tx.Exec(`
		UPDATE accounts
		SET balance = balance + $2, updated_at = NOW()
		WHERE id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("credit balance: %w", err)
	}

	return nil
}
