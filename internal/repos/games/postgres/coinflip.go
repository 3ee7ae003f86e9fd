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

var _ games.Coinflips = (*coinflipsRepo)(nil)

type coinflipsRepo struct{ db *sql.DB }

func NewCoinflips(db *sql.DB) *coinflipsRepo {
	return &coinflipsRepo{db: db}
}

func (r *coinflipsRepo) Create(tx *sql.Tx, g *games.CoinflipGame) error {
	stake, err := marshalStake(g.CreatorStake)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO coinflip_games (id, creator_id, creator_side, creator_stake, stake_value, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, g.ID, g.CreatorID, g.CreatorSide, stake, g.StakeValue, games.StatusWaiting)
	if err != nil {
		return fmt.Errorf("insert coinflip game: %w", err)
	}

	return nil
}

func (r *coinflipsRepo) Get(ctx context.Context, id uuid.UUID) (*games.CoinflipGame, error) {
	var (
		g          games.CoinflipGame
		creatorRaw []byte
		joinerRaw  []byte
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, creator_id, creator_side, creator_stake, stake_value, status,
		       joiner_id, joiner_stake, result_side, winner_id, created_at, completed_at
		FROM coinflip_games
		WHERE id = $1
	`, id).Scan(&g.ID, &g.CreatorID, &g.CreatorSide, &creatorRaw, &g.StakeValue, &g.Status,
		&g.JoinerID, &joinerRaw, &g.ResultSide, &g.WinnerID, &g.CreatedAt, &g.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, games.ErrGameNotFound
		}

		return nil, fmt.Errorf("get coinflip game: %w", err)
	}

	err = unmarshalStake(creatorRaw, &g.CreatorStake)
	if err != nil {
		return nil, err
	}

	err = unmarshalStake(joinerRaw, &g.JoinerStake)
	if err != nil {
		return nil, err
	}

	return &g, nil
}

func (r *coinflipsRepo) SettleJoin(tx *sql.Tx, id uuid.UUID, joinerID int64, joinerStake []games.StakedItem, resultSide string, winnerID int64) error {
	stake, err := marshalStake(joinerStake)
	if err != nil {
		return err
	}

	res, err := tx.Exec(`
		UPDATE coinflip_games
		SET status = $2, joiner_id = $3, joiner_stake = $4, result_side = $5,
		    winner_id = $6, completed_at = NOW()
		WHERE id = $1
		  AND status = $7
	`, id, games.StatusCompleted, joinerID, stake, resultSide, winnerID, games.StatusWaiting)
	if err != nil {
		return fmt.Errorf("settle coinflip join: %w", err)
	}

	return claimed(res)
}

func (r *coinflipsRepo) ClaimExpired(tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.Exec(`
		UPDATE coinflip_games
		SET status = $2
		WHERE id = $1
		  AND status = $3
	`, id, games.StatusExpired, games.StatusWaiting)
	if err != nil {
		return fmt.Errorf("claim coinflip expired: %w", err)
	}

	return claimed(res)
}

func (r *coinflipsRepo) ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]games.CoinflipGame, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, creator_id, creator_side, creator_stake, stake_value, status, created_at
		FROM coinflip_games
		WHERE status = $1
		  AND created_at < $2
	`, games.StatusWaiting, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list waiting coinflips: %w", err)
	}
	defer rows.Close()

	var stale []games.CoinflipGame

	for rows.Next() {
		var (
			g   games.CoinflipGame
			raw []byte
		)

		err := rows.Scan(&g.ID, &g.CreatorID, &g.CreatorSide, &raw, &g.StakeValue, &g.Status, &g.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan coinflip game: %w", err)
		}

		err = unmarshalStake(raw, &g.CreatorStake)
		if err != nil {
			return nil, err
		}

		stale = append(stale, g)
	}

	return stale, rows.Err()
}

func (r *coinflipsRepo) Delete(tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.Exec(`DELETE FROM coinflip_games WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete coinflip game: %w", err)
	}

	return nil
}

// claimed maps a zero row count on a conditional status update to
// ErrStateConflict.
func claimed(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if affected == 0 {
		return games.ErrStateConflict
	}

	return nil
}
