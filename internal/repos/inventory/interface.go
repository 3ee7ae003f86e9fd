package inventory

import (
	"context"
	"database/sql"
	"errors"
)

// ErrInsufficientItems means the live quantity no longer covers the
// requested stake. Client-declared stakes go stale, so every debit
// re-checks at settlement time.
var ErrInsufficientItems = errors.New("insufficient item quantity")

type Entry struct {
	UserID   int64
	ItemID   int64
	Quantity int
}

type Inventory interface {
	List(ctx context.Context, userID int64) ([]Entry, error)
	Quantity(ctx context.Context, userID, itemID int64) (int, error)
	// Remove conditionally decrements and deletes the row at zero.
	Remove(tx *sql.Tx, userID, itemID int64, qty int) error
	// Add upserts: increment if the row exists, insert otherwise.
	Add(tx *sql.Tx, userID, itemID int64, qty int) error
}
