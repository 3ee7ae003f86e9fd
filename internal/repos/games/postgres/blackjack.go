package games

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/callzzzz333/mm2-arena/internal/repos/games"
	"github.com/callzzzz333/mm2-arena/internal/services/outcome"
)

var _ games.Blackjacks = (*blackjacksRepo)(nil)

type blackjacksRepo struct{ db *sql.DB }

func NewBlackjacks(db *sql.DB) *blackjacksRepo {
	return &blackjacksRepo{db: db}
}

func (r *blackjacksRepo) CreateTable(ctx context.Context, t *games.BlackjackTable) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blackjack_tables (id, status)
		VALUES ($1, $2)
	`, t.ID, games.StatusWaiting)
	if err != nil {
		return fmt.Errorf("insert blackjack table: %w", err)
	}

	return nil
}

func (r *blackjacksRepo) GetTable(ctx context.Context, id uuid.UUID) (*games.BlackjackTable, error) {
	var (
		t   games.BlackjackTable
		raw []byte
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, status, dealer_hand, turn_seat, created_at, completed_at
		FROM blackjack_tables
		WHERE id = $1
	`, id).Scan(&t.ID, &t.Status, &raw, &t.TurnSeat, &t.CreatedAt, &t.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, games.ErrGameNotFound
		}

		return nil, fmt.Errorf("get blackjack table: %w", err)
	}

	err = unmarshalHand(raw, &t.DealerHand)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

// LockTable takes the table row lock. Hit, stand and deal all lock the
// table first, so turn order cannot be raced.
func (r *blackjacksRepo) LockTable(tx *sql.Tx, id uuid.UUID) (*games.BlackjackTable, error) {
	var (
		t   games.BlackjackTable
		raw []byte
	)

	err := tx.QueryRow(`
		SELECT id, status, dealer_hand, turn_seat, created_at, completed_at
		FROM blackjack_tables
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&t.ID, &t.Status, &raw, &t.TurnSeat, &t.CreatedAt, &t.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, games.ErrGameNotFound
		}

		return nil, fmt.Errorf("lock blackjack table: %w", err)
	}

	err = unmarshalHand(raw, &t.DealerHand)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *blackjacksRepo) InsertPlayer(tx *sql.Tx, p *games.BlackjackPlayer) error {
	hand, err := marshalHand(p.Hand)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO blackjack_players (table_id, user_id, seat, hand, status, bet)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.TableID, p.UserID, p.Seat, hand, games.StatusPlaying, p.Bet)
	if err != nil {
		return fmt.Errorf("insert blackjack player: %w", err)
	}

	return nil
}

func (r *blackjacksRepo) ListPlayers(tx *sql.Tx, tableID uuid.UUID) ([]games.BlackjackPlayer, error) {
	rows, err := tx.Query(`
		SELECT table_id, user_id, seat, hand, status, bet, payout, won
		FROM blackjack_players
		WHERE table_id = $1
		ORDER BY seat
	`, tableID)
	if err != nil {
		return nil, fmt.Errorf("list blackjack players: %w", err)
	}
	defer rows.Close()

	var players []games.BlackjackPlayer

	for rows.Next() {
		var (
			p   games.BlackjackPlayer
			raw []byte
		)

		err := rows.Scan(&p.TableID, &p.UserID, &p.Seat, &raw, &p.Status, &p.Bet, &p.Payout, &p.Won)
		if err != nil {
			return nil, fmt.Errorf("scan blackjack player: %w", err)
		}

		err = unmarshalHand(raw, &p.Hand)
		if err != nil {
			return nil, err
		}

		players = append(players, p)
	}

	return players, rows.Err()
}

func (r *blackjacksRepo) ClaimInProgress(tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.Exec(`
		UPDATE blackjack_tables
		SET status = $2
		WHERE id = $1
		  AND status = $3
	`, id, games.StatusInProgress, games.StatusWaiting)
	if err != nil {
		return fmt.Errorf("claim blackjack in_progress: %w", err)
	}

	return claimed(res)
}

func (r *blackjacksRepo) ClaimCompleted(tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.Exec(`
		UPDATE blackjack_tables
		SET status = $2, completed_at = NOW()
		WHERE id = $1
		  AND status = $3
	`, id, games.StatusCompleted, games.StatusInProgress)
	if err != nil {
		return fmt.Errorf("claim blackjack completed: %w", err)
	}

	return claimed(res)
}

func (r *blackjacksRepo) SetTurn(tx *sql.Tx, id uuid.UUID, seat int) error {
	_, err := tx.Exec(`
		UPDATE blackjack_tables
		SET turn_seat = $2
		WHERE id = $1
	`, id, seat)
	if err != nil {
		return fmt.Errorf("set blackjack turn: %w", err)
	}

	return nil
}

func (r *blackjacksRepo) SetDealerHand(tx *sql.Tx, id uuid.UUID, hand []outcome.Card) error {
	raw, err := marshalHand(hand)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE blackjack_tables
		SET dealer_hand = $2
		WHERE id = $1
	`, id, raw)
	if err != nil {
		return fmt.Errorf("set dealer hand: %w", err)
	}

	return nil
}

func (r *blackjacksRepo) SetPlayerHand(tx *sql.Tx, tableID uuid.UUID, userID int64, hand []outcome.Card, status string) error {
	raw, err := marshalHand(hand)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		UPDATE blackjack_players
		SET hand = $3, status = $4
		WHERE table_id = $1 AND user_id = $2
	`, tableID, userID, raw, status)
	if err != nil {
		return fmt.Errorf("set player hand: %w", err)
	}

	return nil
}

func (r *blackjacksRepo) SetPlayerOutcome(tx *sql.Tx, tableID uuid.UUID, userID int64, payout int64, won bool) error {
	_, err := tx.Exec(`
		UPDATE blackjack_players
		SET payout = $3, won = $4
		WHERE table_id = $1 AND user_id = $2
	`, tableID, userID, payout, won)
	if err != nil {
		return fmt.Errorf("set player outcome: %w", err)
	}

	return nil
}
