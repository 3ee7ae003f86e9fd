package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/callzzzz333/mm2-arena/internal/repos/ledger"
)

var _ ledger.Ledger = (*ledgerRepo)(nil)

type ledgerRepo struct{ db *sql.DB }

func New(db *sql.DB) *ledgerRepo {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) Insert(tx *sql.Tx, e ledger.Entry) error {
	_, err := tx.Exec(`
		INSERT INTO ledger_entries (entry_key, user_id, amount, entry_type, game_type, game_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, e.Key, e.UserID, e.Amount, e.Type, e.GameType, e.GameID, e.Description)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return ledger.ErrDuplicateEntry
			}
		}

		return fmt.Errorf("insert ledger entry: %w", err)
	}

	return nil
}

func (r *ledgerRepo) ListByUser(ctx context.Context, userID int64, limit int) ([]ledger.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entry_key, user_id, amount, entry_type, game_type, game_id, description, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry

	for rows.Next() {
		var e ledger.Entry

		err := rows.Scan(&e.ID, &e.Key, &e.UserID, &e.Amount, &e.Type, &e.GameType, &e.GameID, &e.Description, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
