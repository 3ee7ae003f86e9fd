package accounts

import (
	"database/sql"
	"fmt"
)

// centsPerLevel is how much total wager buys one account level.
const centsPerLevel = 100000

func (r *accountsRepo) AddWagered(tx *sql.Tx, userID int64, amount int64) error {
	_, err := tx.Exec(`
		UPDATE accounts
		SET total_wagered = total_wagered + $2,
		    level = 1 + (total_wagered + $2) / $3,
		    updated_at = NOW()
		WHERE id = $1
	`, userID, amount, centsPerLevel)
	if err != nil {
		return fmt.Errorf("add wagered: %w", err)
	}

	return nil
}

func (r *accountsRepo) AddProfit(tx *sql.Tx, userID int64, amount int64) error {
	_, err := tx.Exec(`
		UPDATE accounts
		SET total_profits = total_profits + $2, updated_at = NOW()
		WHERE id = $1
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("add profit: %w", err)
	}

	return nil
}
