package accounts

import (
	"database/sql"
	"fmt"
)

func (r *accountsRepo) LockAndGetBalance(tx *sql.Tx, userID int64) (int64, error) {
	var balance int64

	err := tx.QueryRow(`
		SELECT balance
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, userID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("lock/get balance: %w", err)
	}

	return balance, nil
}
