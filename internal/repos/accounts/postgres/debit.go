package accounts

import (
	"database/sql"
	"fmt"

	"github.com/callzzzz333/mm2-arena/internal/repos/accounts"
)

// Debit decrements the balance only if it covers the amount. A zero row
// count means the funds are no longer there, regardless of what the caller
// read earlier.
func (r *accountsRepo) Debit(tx *sql.Tx, userID int64, amount int64) error {
	res, err := tx.Exec(`
		UPDATE accounts
		SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1
		  AND balance >= $2
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return accounts.ErrInsufficientFunds
	}

	return nil
}
