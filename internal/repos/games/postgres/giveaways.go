package games

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/callzzzz333/mm2-arena/internal/repos/games"
)

var _ games.Giveaways = (*giveawaysRepo)(nil)

type giveawaysRepo struct{ db *sql.DB }

func NewGiveaways(db *sql.DB) *giveawaysRepo {
	return &giveawaysRepo{db: db}
}

func (r *giveawaysRepo) Create(tx *sql.Tx, g *games.Giveaway) error {
	_, err := tx.Exec(`
		INSERT INTO giveaways (id, creator_id, prize_amount, status, ends_at)
		VALUES ($1, $2, $3, $4, $5)
	`, g.ID, g.CreatorID, g.PrizeAmount, games.StatusActive, g.EndsAt)
	if err != nil {
		return fmt.Errorf("insert giveaway: %w", err)
	}

	return nil
}

func (r *giveawaysRepo) Get(ctx context.Context, id uuid.UUID) (*games.Giveaway, error) {
	var g games.Giveaway

	err := r.db.QueryRowContext(ctx, `
		SELECT id, creator_id, prize_amount, status, ends_at, winner_id, created_at, completed_at
		FROM giveaways
		WHERE id = $1
	`, id).Scan(&g.ID, &g.CreatorID, &g.PrizeAmount, &g.Status, &g.EndsAt, &g.WinnerID, &g.CreatedAt, &g.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, games.ErrGameNotFound
		}

		return nil, fmt.Errorf("get giveaway: %w", err)
	}

	return &g, nil
}

func (r *giveawaysRepo) InsertEntry(ctx context.Context, e *games.GiveawayEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO giveaway_entries (giveaway_id, user_id, tickets)
		VALUES ($1, $2, $3)
	`, e.GiveawayID, e.UserID, e.Tickets)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return games.ErrAlreadyEntered
			}
		}

		return fmt.Errorf("insert giveaway entry: %w", err)
	}

	return nil
}

func (r *giveawaysRepo) ListEntries(tx *sql.Tx, giveawayID uuid.UUID) ([]games.GiveawayEntry, error) {
	rows, err := tx.Query(`
		SELECT giveaway_id, user_id, tickets
		FROM giveaway_entries
		WHERE giveaway_id = $1
		ORDER BY created_at
	`, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("list giveaway entries: %w", err)
	}
	defer rows.Close()

	var entries []games.GiveawayEntry

	for rows.Next() {
		var e games.GiveawayEntry

		err := rows.Scan(&e.GiveawayID, &e.UserID, &e.Tickets)
		if err != nil {
			return nil, fmt.Errorf("scan giveaway entry: %w", err)
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (r *giveawaysRepo) SettleWinner(tx *sql.Tx, id uuid.UUID, winnerID int64) error {
	res, err := tx.Exec(`
		UPDATE giveaways
		SET status = $2, winner_id = $3, completed_at = NOW()
		WHERE id = $1
		  AND status = $4
	`, id, games.StatusCompleted, winnerID, games.StatusActive)
	if err != nil {
		return fmt.Errorf("settle giveaway winner: %w", err)
	}

	return claimed(res)
}

func (r *giveawaysRepo) ListActiveEndedBefore(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	return r.listIDs(ctx, `
		SELECT id FROM giveaways WHERE status = $1 AND ends_at < $2
	`, games.StatusActive, now)
}

func (r *giveawaysRepo) ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	return r.listIDs(ctx, `
		SELECT id FROM giveaways WHERE status = $1 AND completed_at < $2
	`, games.StatusCompleted, cutoff)
}

func (r *giveawaysRepo) listIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list giveaways: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID

		err := rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("scan giveaway id: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *giveawaysRepo) DeleteEntries(tx *sql.Tx, giveawayID uuid.UUID) error {
	_, err := tx.Exec(`DELETE FROM giveaway_entries WHERE giveaway_id = $1`, giveawayID)
	if err != nil {
		return fmt.Errorf("delete giveaway entries: %w", err)
	}

	return nil
}

func (r *giveawaysRepo) Delete(tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.Exec(`DELETE FROM giveaways WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete giveaway: %w", err)
	}

	return nil
}
