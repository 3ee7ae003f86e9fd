package games

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/callzzzz333/mm2-arena/internal/repos/games"
)

var _ games.Chambers = (*chambersRepo)(nil)

type chambersRepo struct{ db *sql.DB }

func NewChambers(db *sql.DB) *chambersRepo {
	return &chambersRepo{db: db}
}

func (r *chambersRepo) Create(tx *sql.Tx, g *games.ChamberGame) error {
	_, err := tx.Exec(`
		INSERT INTO chamber_games (id, user_id, bet, chambers_left, multiplier, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, g.ID, g.UserID, g.Bet, g.ChambersLeft, g.Multiplier, games.StatusPlaying)
	if err != nil {
		return fmt.Errorf("insert chamber game: %w", err)
	}

	return nil
}

func (r *chambersRepo) Lock(tx *sql.Tx, id uuid.UUID) (*games.ChamberGame, error) {
	var g games.ChamberGame

	err := tx.QueryRow(`
		SELECT id, user_id, bet, chambers_left, multiplier, status, payout, created_at, completed_at
		FROM chamber_games
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&g.ID, &g.UserID, &g.Bet, &g.ChambersLeft, &g.Multiplier, &g.Status, &g.Payout, &g.CreatedAt, &g.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, games.ErrGameNotFound
		}

		return nil, fmt.Errorf("lock chamber game: %w", err)
	}

	return &g, nil
}

func (r *chambersRepo) RecordPull(tx *sql.Tx, id uuid.UUID, chambersLeft int, multiplier int64) error {
	res, err := tx.Exec(`
		UPDATE chamber_games
		SET chambers_left = $2, multiplier = $3
		WHERE id = $1
		  AND status = $4
	`, id, chambersLeft, multiplier, games.StatusPlaying)
	if err != nil {
		return fmt.Errorf("record chamber pull: %w", err)
	}

	return claimed(res)
}

func (r *chambersRepo) SettleDead(tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.Exec(`
		UPDATE chamber_games
		SET status = $2, completed_at = NOW()
		WHERE id = $1
		  AND status = $3
	`, id, games.StatusDead, games.StatusPlaying)
	if err != nil {
		return fmt.Errorf("settle chamber dead: %w", err)
	}

	return claimed(res)
}

func (r *chambersRepo) SettleCashed(tx *sql.Tx, id uuid.UUID, payout int64) error {
	res, err := tx.Exec(`
		UPDATE chamber_games
		SET status = $2, payout = $3, completed_at = NOW()
		WHERE id = $1
		  AND status = $4
	`, id, games.StatusCashed, payout, games.StatusPlaying)
	if err != nil {
		return fmt.Errorf("settle chamber cashout: %w", err)
	}

	return claimed(res)
}
