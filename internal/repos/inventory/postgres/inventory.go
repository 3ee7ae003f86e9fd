package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/callzzzz333/mm2-arena/internal/repos/inventory"
)

var _ inventory.Inventory = (*inventoryRepo)(nil)

type inventoryRepo struct{ db *sql.DB }

func New(db *sql.DB) *inventoryRepo {
	return &inventoryRepo{db: db}
}

func (r *inventoryRepo) List(ctx context.Context, userID int64) ([]inventory.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, item_id, quantity
		FROM inventory
		WHERE user_id = $1
		ORDER BY item_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()

	var entries []inventory.Entry

	for rows.Next() {
		var e inventory.Entry

		err := rows.Scan(&e.UserID, &e.ItemID, &e.Quantity)
		if err != nil {
			return nil, fmt.Errorf("scan inventory entry: %w", err)
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (r *inventoryRepo) Quantity(ctx context.Context, userID, itemID int64) (int, error) {
	var qty int

	err := r.db.QueryRowContext(ctx, `
		SELECT quantity
		FROM inventory
		WHERE user_id = $1 AND item_id = $2
	`, userID, itemID).Scan(&qty)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}

		return 0, fmt.Errorf("get quantity: %w", err)
	}

	return qty, nil
}

// Remove decrements the owned quantity only if it covers qty. Zero rows
// affected means the stake went stale between submission and settlement.
func (r *inventoryRepo) Remove(tx *sql.Tx, userID, itemID int64, qty int) error {
	res, err := tx.Exec(`
		UPDATE inventory
		SET quantity = quantity - $3
		WHERE user_id = $1
		  AND item_id = $2
		  AND quantity >= $3
	`, userID, itemID, qty)
	if err != nil {
		return fmt.Errorf("remove items: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return inventory.ErrInsufficientItems
	}

	// Drained rows are deleted rather than kept at zero.
	_, err = tx.Exec(`
		DELETE FROM inventory
		WHERE user_id = $1 AND item_id = $2 AND quantity = 0
	`, userID, itemID)
	if err != nil {
		return fmt.Errorf("delete drained row: %w", err)
	}

	return nil
}

func (r *inventoryRepo) Add(tx *sql.Tx, userID, itemID int64, qty int) error {
	_, err := tx.Exec(`
		INSERT INTO inventory (user_id, item_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item_id)
		DO UPDATE SET quantity = inventory.quantity + EXCLUDED.quantity
	`, userID, itemID, qty)
	if err != nil {
		return fmt.Errorf("add items: %w", err)
	}

	return nil
}
