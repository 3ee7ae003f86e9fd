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

var _ games.CaseBattles = (*caseBattlesRepo)(nil)

type caseBattlesRepo struct{ db *sql.DB }

func NewCaseBattles(db *sql.DB) *caseBattlesRepo {
	return &caseBattlesRepo{db: db}
}

func (r *caseBattlesRepo) Create(tx *sql.Tx, b *games.CaseBattle) error {
	_, err := tx.Exec(`
		INSERT INTO case_battles (id, status, max_players, rounds, cases_per_round, entry_cost)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.ID, games.StatusWaiting, b.MaxPlayers, b.Rounds, b.CasesPerRound, b.EntryCost)
	if err != nil {
		return fmt.Errorf("insert case battle: %w", err)
	}

	return nil
}

func (r *caseBattlesRepo) Get(ctx context.Context, id uuid.UUID) (*games.CaseBattle, error) {
	var b games.CaseBattle

	err := r.db.QueryRowContext(ctx, `
		SELECT id, status, max_players, rounds, cases_per_round, entry_cost,
		       current_round, winner_id, created_at, completed_at
		FROM case_battles
		WHERE id = $1
	`, id).Scan(&b.ID, &b.Status, &b.MaxPlayers, &b.Rounds, &b.CasesPerRound, &b.EntryCost,
		&b.CurrentRound, &b.WinnerID, &b.CreatedAt, &b.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, games.ErrGameNotFound
		}

		return nil, fmt.Errorf("get case battle: %w", err)
	}

	return &b, nil
}

func (r *caseBattlesRepo) InsertParticipant(tx *sql.Tx, p *games.CaseBattleParticipant) error {
	drops, err := marshalStake(p.Drops)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO case_battle_participants (battle_id, user_id, position, total_value, drops)
		VALUES ($1, $2, $3, $4, $5)
	`, p.BattleID, p.UserID, p.Position, p.TotalValue, drops)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return games.ErrAlreadyEntered
		}

		return fmt.Errorf("insert battle participant: %w", err)
	}

	return nil
}

func (r *caseBattlesRepo) ListParticipants(tx *sql.Tx, battleID uuid.UUID) ([]games.CaseBattleParticipant, error) {
	rows, err := tx.Query(`
		SELECT battle_id, user_id, position, total_value, drops
		FROM case_battle_participants
		WHERE battle_id = $1
		ORDER BY position
	`, battleID)
	if err != nil {
		return nil, fmt.Errorf("list battle participants: %w", err)
	}
	defer rows.Close()

	var parts []games.CaseBattleParticipant

	for rows.Next() {
		var (
			p   games.CaseBattleParticipant
			raw []byte
		)

		err := rows.Scan(&p.BattleID, &p.UserID, &p.Position, &p.TotalValue, &raw)
		if err != nil {
			return nil, fmt.Errorf("scan battle participant: %w", err)
		}

		err = unmarshalStake(raw, &p.Drops)
		if err != nil {
			return nil, err
		}

		parts = append(parts, p)
	}

	return parts, rows.Err()
}

func (r *caseBattlesRepo) ClaimActive(tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.Exec(`
		UPDATE case_battles
		SET status = $2
		WHERE id = $1
		  AND status = $3
	`, id, games.StatusActive, games.StatusWaiting)
	if err != nil {
		return fmt.Errorf("claim battle active: %w", err)
	}

	return claimed(res)
}

func (r *caseBattlesRepo) AdvanceRound(tx *sql.Tx, id uuid.UUID, round int) error {
	res, err := tx.Exec(`
		UPDATE case_battles
		SET current_round = $2
		WHERE id = $1
		  AND status = $3
		  AND current_round = $2 - 1
	`, id, round, games.StatusActive)
	if err != nil {
		return fmt.Errorf("advance battle round: %w", err)
	}

	return claimed(res)
}

func (r *caseBattlesRepo) UpdateParticipant(tx *sql.Tx, battleID uuid.UUID, userID int64, totalValue int64, drops []games.StakedItem) error {
	raw, err := marshalStake(drops)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE case_battle_participants
		SET total_value = $3, drops = $4
		WHERE battle_id = $1 AND user_id = $2
	`, battleID, userID, totalValue, raw)
	if err != nil {
		return fmt.Errorf("update battle participant: %w", err)
	}

	return nil
}

func (r *caseBattlesRepo) SettleWinner(tx *sql.Tx, id uuid.UUID, winnerID int64) error {
	res, err := tx.Exec(`
		UPDATE case_battles
		SET status = $2, winner_id = $3, completed_at = NOW()
		WHERE id = $1
		  AND status = $4
	`, id, games.StatusCompleted, winnerID, games.StatusActive)
	if err != nil {
		return fmt.Errorf("settle battle winner: %w", err)
	}

	return claimed(res)
}

func (r *caseBattlesRepo) ClaimExpired(tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.Exec(`
		UPDATE case_battles
		SET status = $2, completed_at = NOW()
		WHERE id = $1
		  AND status = $3
	`, id, games.StatusExpired, games.StatusWaiting)
	if err != nil {
		return fmt.Errorf("claim battle expired: %w", err)
	}

	return claimed(res)
}

func (r *caseBattlesRepo) ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM case_battles
		WHERE status = $1
		  AND created_at < $2
	`, games.StatusWaiting, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list waiting battles: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID

	for rows.Next() {
		var id uuid.UUID

		err := rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("scan battle id: %w", err)
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}
