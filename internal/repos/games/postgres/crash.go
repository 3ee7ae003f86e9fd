package games

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/callzzzz333/mm2-arena/internal/repos/games"
)

var _ games.Crashes = (*crashesRepo)(nil)

type crashesRepo struct{ db *sql.DB }

func NewCrashes(db *sql.DB) *crashesRepo {
	return &crashesRepo{db: db}
}

func (r *crashesRepo) Create(ctx context.Context, g *games.CrashGame) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO crash_games (id, status)
		VALUES ($1, $2)
	`, g.ID, games.StatusWaiting)
	if err != nil {
		return fmt.Errorf("insert crash game: %w", err)
	}

	return nil
}

func (r *crashesRepo) Get(ctx context.Context, id uuid.UUID) (*games.CrashGame, error) {
	var g games.CrashGame

	err := r.db.QueryRowContext(ctx, `
		SELECT id, status, crash_point, created_at, completed_at
		FROM crash_games
		WHERE id = $1
	`, id).Scan(&g.ID, &g.Status, &g.CrashPoint, &g.CreatedAt, &g.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, games.ErrGameNotFound
		}

		return nil, fmt.Errorf("get crash game: %w", err)
	}

	return &g, nil
}

func (r *crashesRepo) InsertBet(tx *sql.Tx, b *games.CrashBet) error {
	err := tx.QueryRow(`
		INSERT INTO crash_bets (game_id, user_id, amount)
		VALUES ($1, $2, $3)
		RETURNING id
	`, b.GameID, b.UserID, b.Amount).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("insert crash bet: %w", err)
	}

	return nil
}

func (r *crashesRepo) ListBets(tx *sql.Tx, gameID uuid.UUID) ([]games.CrashBet, error) {
	rows, err := tx.Query(`
		SELECT id, game_id, user_id, amount, cashout, payout, won
		FROM crash_bets
		WHERE game_id = $1
		ORDER BY id
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list crash bets: %w", err)
	}
	defer rows.Close()

	var bets []games.CrashBet

	for rows.Next() {
		var b games.CrashBet

		err := rows.Scan(&b.ID, &b.GameID, &b.UserID, &b.Amount, &b.Cashout, &b.Payout, &b.Won)
		if err != nil {
			return nil, fmt.Errorf("scan crash bet: %w", err)
		}

		bets = append(bets, b)
	}

	return bets, rows.Err()
}

func (r *crashesRepo) ClaimFlying(tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.Exec(`
		UPDATE crash_games
		SET status = $2
		WHERE id = $1
		  AND status = $3
	`, id, games.StatusFlying, games.StatusWaiting)
	if err != nil {
		return fmt.Errorf("claim crash flying: %w", err)
	}

	return claimed(res)
}

func (r *crashesRepo) SettleCrashed(tx *sql.Tx, id uuid.UUID, crashPoint int64) error {
	res, err := tx.Exec(`
		UPDATE crash_games
		SET status = $2, crash_point = $3, completed_at = NOW()
		WHERE id = $1
		  AND status = $4
	`, id, games.StatusCrashed, crashPoint, games.StatusFlying)
	if err != nil {
		return fmt.Errorf("settle crash: %w", err)
	}

	return claimed(res)
}

// RecordCashout only lands while the game row still says flying and the
// bet has no cashout yet; the join makes the check and the write one
// statement.
func (r *crashesRepo) RecordCashout(tx *sql.Tx, gameID uuid.UUID, userID int64, multiplier int64) error {
	res, err := tx.Exec(`
		UPDATE crash_bets b
		SET cashout = $3
		FROM crash_games g
		WHERE b.game_id = $1
		  AND b.user_id = $2
		  AND b.cashout IS NULL
		  AND g.id = b.game_id
		  AND g.status = $4
	`, gameID, userID, multiplier, games.StatusFlying)
	if err != nil {
		return fmt.Errorf("record cashout: %w", err)
	}

	return claimed(res)
}

func (r *crashesRepo) SetBetOutcome(tx *sql.Tx, betID int64, payout int64, won bool) error {
	_, err := tx.Exec(`
		UPDATE crash_bets
		SET payout = $2, won = $3
		WHERE id = $1
	`, betID, payout, won)
	if err != nil {
		return fmt.Errorf("set crash bet outcome: %w", err)
	}

	return nil
}

func (r *crashesRepo) ListIdleWaitingBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM crash_games
		WHERE status = $1
		  AND created_at < $2
	`, games.StatusWaiting, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list idle crash games: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID

		err := rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("scan crash game id: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *crashesRepo) ClaimExpired(tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.Exec(`
		UPDATE crash_games
		SET status = $2, completed_at = NOW()
		WHERE id = $1
		  AND status = $3
	`, id, games.StatusExpired, games.StatusWaiting)
	if err != nil {
		return fmt.Errorf("claim crash expired: %w", err)
	}

	return claimed(res)
}

// Delete purges a round and its bets. Callers refund the bets first.
func (r *crashesRepo) Delete(tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.Exec(`DELETE FROM crash_bets WHERE game_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete crash bets: %w", err)
	}

	_, err = tx.Exec(`DELETE FROM crash_games WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete crash game: %w", err)
	}

	return nil
}
