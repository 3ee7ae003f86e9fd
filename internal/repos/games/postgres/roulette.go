package games

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/callzzzz333/mm2-arena/internal/repos/games"
)

var _ games.Roulettes = (*roulettesRepo)(nil)

type roulettesRepo struct{ db *sql.DB }

func NewRoulettes(db *sql.DB) *roulettesRepo {
	return &roulettesRepo{db: db}
}

func (r *roulettesRepo) Create(ctx context.Context, g *games.RouletteGame) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roulette_games (id, status)
		VALUES ($1, $2)
	`, g.ID, games.StatusWaiting)
	if err != nil {
		return fmt.Errorf("insert roulette game: %w", err)
	}

	return nil
}

func (r *roulettesRepo) Get(ctx context.Context, id uuid.UUID) (*games.RouletteGame, error) {
	var g games.RouletteGame

	err := r.db.QueryRowContext(ctx, `
		SELECT id, status, result_color, result_number, created_at, completed_at
		FROM roulette_games
		WHERE id = $1
	`, id).Scan(&g.ID, &g.Status, &g.ResultColor, &g.ResultNumber, &g.CreatedAt, &g.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, games.ErrGameNotFound
		}

		return nil, fmt.Errorf("get roulette game: %w", err)
	}

	return &g, nil
}

func (r *roulettesRepo) InsertBet(tx *sql.Tx, b *games.RouletteBet) error {
	err := tx.QueryRow(`
		INSERT INTO roulette_bets (game_id, user_id, color, amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, b.GameID, b.UserID, b.Color, b.Amount).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("insert roulette bet: %w", err)
	}

	return nil
}

func (r *roulettesRepo) ListBets(tx *sql.Tx, gameID uuid.UUID) ([]games.RouletteBet, error) {
	rows, err := tx.Query(`
		SELECT id, game_id, user_id, color, amount, payout, won
		FROM roulette_bets
		WHERE game_id = $1
		ORDER BY id
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list roulette bets: %w", err)
	}
	defer rows.Close()

	var bets []games.RouletteBet

	for rows.Next() {
		var b games.RouletteBet

		err := rows.Scan(&b.ID, &b.GameID, &b.UserID, &b.Color, &b.Amount, &b.Payout, &b.Won)
		if err != nil {
			return nil, fmt.Errorf("scan roulette bet: %w", err)
		}

		bets = append(bets, b)
	}

	return bets, rows.Err()
}

func (r *roulettesRepo) SettleSpin(tx *sql.Tx, id uuid.UUID, color string, number int) error {
	res, err := tx.Exec(`
		UPDATE roulette_games
		SET status = $2, result_color = $3, result_number = $4, completed_at = NOW()
		WHERE id = $1
		  AND status = $5
	`, id, games.StatusCompleted, color, number, games.StatusWaiting)
	if err != nil {
		return fmt.Errorf("settle roulette spin: %w", err)
	}

	return claimed(res)
}

func (r *roulettesRepo) SetBetOutcome(tx *sql.Tx, betID int64, payout int64, won bool) error {
	_, err := tx.Exec(`
		UPDATE roulette_bets
		SET payout = $2, won = $3
		WHERE id = $1
	`, betID, payout, won)
	if err != nil {
		return fmt.Errorf("set roulette bet outcome: %w", err)
	}

	return nil
}
