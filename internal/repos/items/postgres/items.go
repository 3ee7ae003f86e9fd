package items

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/callzzzz333/mm2-arena/internal/repos/items"
)

var _ items.Items = (*itemsRepo)(nil)

type itemsRepo struct{ db *sql.DB }

func New(db *sql.DB) *itemsRepo {
	return &itemsRepo{db: db}
}

func (r *itemsRepo) Get(ctx context.Context, itemID int64) (*items.Item, error) {
	var it items.Item

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, rarity, value, image_url
		FROM items
		WHERE id = $1
	`, itemID).Scan(&it.ID, &it.Name, &it.Rarity, &it.Value, &it.ImageURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, items.ErrItemNotFound
		}

		return nil, fmt.Errorf("get item: %w", err)
	}

	return &it, nil
}

func (r *itemsRepo) ListAll(ctx context.Context) ([]items.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, rarity, value, image_url
		FROM items
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var all []items.Item

	for rows.Next() {
		var it items.Item

		err := rows.Scan(&it.ID, &it.Name, &it.Rarity, &it.Value, &it.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}

		all = append(all, it)
	}

	return all, rows.Err()
}
