package inventory

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/callzzzz333/mm2-arena/internal/infra/pgtestutil"
	"github.com/callzzzz333/mm2-arena/internal/repos/inventory"
)

func seed(t *testing.T, db *sql.DB) {
	t.Helper()

	pgtestutil.SeedAccount(t, db, 1, 0)
	pgtestutil.SeedItem(t, db, 10, "Chroma Luger", "godly", 500)
	pgtestutil.SeedItem(t, db, 11, "Seer", "godly", 450)
}

func inTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx) error) error {
	t.Helper()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	return nil
}

func TestRemove(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		startQty  int
		removeQty int
		wantErr   error
		wantQty   int
	}{
		{name: "partial_decrement", startQty: 5, removeQty: 2, wantQty: 3},
		{name: "exact_drain_deletes_row", startQty: 2, removeQty: 2, wantQty: 0},
		{name: "insufficient_rejected", startQty: 1, removeQty: 2, wantErr: inventory.ErrInsufficientItems, wantQty: 1},
		{name: "missing_row_rejected", startQty: 0, removeQty: 1, wantErr: inventory.ErrInsufficientItems, wantQty: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			db, cleanup := pgtestutil.NewTestDB(t)
			defer cleanup()
			seed(t, db)

			if tt.startQty > 0 {
				pgtestutil.SeedInventory(t, db, 1, 10, tt.startQty)
			}

			repo := New(db)

			err := inTx(t, db, func(tx *sql.Tx) error {
				return repo.Remove(tx, 1, 10, tt.removeQty)
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}

			if qty := pgtestutil.Quantity(t, db, 1, 10); qty != tt.wantQty {
				t.Fatalf("quantity = %d, want %d", qty, tt.wantQty)
			}
		})
	}
}

func TestRemove_DrainedRowIsDeleted(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	seed(t, db)
	pgtestutil.SeedInventory(t, db, 1, 10, 2)

	repo := New(db)

	err := inTx(t, db, func(tx *sql.Tx) error {
		return repo.Remove(tx, 1, 10, 2)
	})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	var n int
	if qerr := db.QueryRow(`SELECT COUNT(*) FROM inventory WHERE user_id = 1 AND item_id = 10`).Scan(&n); qerr != nil {
		t.Fatalf("count rows: %v", qerr)
	}
	if n != 0 {
		t.Fatalf("drained rows left = %d, want 0", n)
	}
}

func TestAdd_Upserts(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	seed(t, db)

	repo := New(db)

	err := inTx(t, db, func(tx *sql.Tx) error {
		return repo.Add(tx, 1, 10, 3)
	})
	if err != nil {
		t.Fatalf("first add: %v", err)
	}

	err = inTx(t, db, func(tx *sql.Tx) error {
		return repo.Add(tx, 1, 10, 2)
	})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if qty := pgtestutil.Quantity(t, db, 1, 10); qty != 5 {
		t.Fatalf("quantity = %d, want 5", qty)
	}
}

func TestListAndQuantity(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	seed(t, db)
	pgtestutil.SeedInventory(t, db, 1, 11, 4)
	pgtestutil.SeedInventory(t, db, 1, 10, 1)

	repo := New(db)
	ctx := context.Background()

	entries, err := repo.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	// Ordered by item id.
	if len(entries) != 2 || entries[0].ItemID != 10 || entries[1].ItemID != 11 {
		t.Fatalf("entries = %+v, want items 10 then 11", entries)
	}

	qty, err := repo.Quantity(ctx, 1, 11)
	if err != nil {
		t.Fatalf("quantity: %v", err)
	}
	if qty != 4 {
		t.Fatalf("quantity = %d, want 4", qty)
	}

	qty, err = repo.Quantity(ctx, 1, 999)
	if err != nil {
		t.Fatalf("missing quantity: %v", err)
	}
	if qty != 0 {
		t.Fatalf("missing row quantity = %d, want 0", qty)
	}
}
