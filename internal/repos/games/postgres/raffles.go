package games

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/callzzzz333/mm2-arena/internal/repos/games"
)

var _ games.Raffles = (*rafflesRepo)(nil)

type rafflesRepo struct{ db *sql.DB }

func NewRaffles(db *sql.DB) *rafflesRepo {
	return &rafflesRepo{db: db}
}

func (r *rafflesRepo) Get(ctx context.Context, id uuid.UUID) (*games.Raffle, error) {
	var raf games.Raffle

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, ticket_price, min_item_value, status, created_at
		FROM raffles
		WHERE id = $1
	`, id).Scan(&raf.ID, &raf.Name, &raf.TicketPrice, &raf.MinItemValue, &raf.Status, &raf.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, games.ErrGameNotFound
		}

		return nil, fmt.Errorf("get raffle: %w", err)
	}

	return &raf, nil
}

func (r *rafflesRepo) AddTickets(tx *sql.Tx, raffleID uuid.UUID, userID int64, tickets int64, totalValue int64) error {
	_, err := tx.Exec(`
		INSERT INTO raffle_entries (raffle_id, user_id, tickets, total_value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (raffle_id, user_id)
		DO UPDATE SET tickets = raffle_entries.tickets + EXCLUDED.tickets,
		              total_value = raffle_entries.total_value + EXCLUDED.total_value
	`, raffleID, userID, tickets, totalValue)
	if err != nil {
		return fmt.Errorf("add raffle tickets: %w", err)
	}

	return nil
}
