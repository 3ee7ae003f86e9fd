// Package roulette runs color-bet wheel rounds. Bets debit balance when
// placed; the spin is a single transaction that claims the round, draws
// the slot and pays every winning bet.
package roulette

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/callzzzz333/mm2-arena/internal/infra/pgutils"
	"github.com/callzzzz333/mm2-arena/internal/repos/games"
	pggames "github.com/callzzzz333/mm2-arena/internal/repos/games/postgres"
	ledgerrepo "github.com/callzzzz333/mm2-arena/internal/repos/ledger"
	ledgersvc "github.com/callzzzz333/mm2-arena/internal/services/ledger"
	"github.com/callzzzz333/mm2-arena/internal/services/outcome"
)

var (
	ErrBadColor     = errors.New("color must be red, black or green")
	ErrBadAmount    = errors.New("amount must be positive")
	ErrBettingOver  = errors.New("betting is closed for this round")
	ErrAlreadySpun  = errors.New("round already settled")
	ErrNoBetsPlaced = errors.New("round has no bets")
)

type Service struct {
	db     *sql.DB
	games  games.Roulettes
	ledger *ledgersvc.Service
	src    outcome.Source
}

func New(db *sql.DB, ledger *ledgersvc.Service, src outcome.Source) *Service {
	return &Service{
		db:     db,
		games:  pggames.NewRoulettes(db),
		ledger: ledger,
		src:    src,
	}
}

// Create opens a betting round.
func (s *Service) Create(ctx context.Context) (*games.RouletteGame, error) {
	g := &games.RouletteGame{
		ID:     uuid.New(),
		Status: games.StatusWaiting,
	}

	err := s.games.Create(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("create roulette round: %w", err)
	}

	return g, nil
}

// Get returns one round.
func (s *Service) Get(ctx context.Context, gameID uuid.UUID) (*games.RouletteGame, error) {
	return s.games.Get(ctx, gameID)
}

// PlaceBet debits the bet amount and records it against the round.
func (s *Service) PlaceBet(ctx context.Context, userID int64, gameID uuid.UUID, color string, amount int64) (*games.RouletteBet, error) {
	if color != outcome.ColorRed && color != outcome.ColorBlack && color != outcome.ColorGreen {
		return nil, ErrBadColor
	}

	if amount <= 0 {
		return nil, ErrBadAmount
	}

	g, err := s.games.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if g.Status != games.StatusWaiting {
		return nil, ErrBettingOver
	}

	b := &games.RouletteBet{
		GameID: gameID,
		UserID: userID,
		Color:  color,
		Amount: amount,
	}

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.games.InsertBet(tx, b)
		if err != nil {
			return err
		}

		return s.ledger.Apply(tx, ledgerrepo.Entry{
			Key:         fmt.Sprintf("roulette:%s:bet:%d", gameID, b.ID),
			UserID:      userID,
			Amount:      -amount,
			Type:        ledgerrepo.TypeBet,
			GameType:    "roulette",
			GameID:      &gameID,
			Description: fmt.Sprintf("roulette bet on %s", color),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("place roulette bet: %w", err)
	}

	return b, nil
}

// SpinResult carries the settled round back to the caller.
type SpinResult struct {
	Slot  int
	Color string
	Bets  []games.RouletteBet
}

// Spin settles the round. The claiming update (waiting -> completed,
// result recorded) runs before any payout, so a concurrent spin gets
// ErrAlreadySpun and pays nothing. A round with no bets is not spun;
// the transaction rolls back and betting stays open. Winning bets pay
// amount times the color multiplier; losing bets get a zero-amount
// audit entry.
func (s *Service) Spin(ctx context.Context, gameID uuid.UUID) (*SpinResult, error) {
	slot, color := outcome.SpinWheel(s.src)

	res := &SpinResult{Slot: slot, Color: color}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.games.SettleSpin(tx, gameID, color, slot)
		if err != nil {
			if errors.Is(err, games.ErrStateConflict) {
				return ErrAlreadySpun
			}

			return err
		}

		bets, err := s.games.ListBets(tx, gameID)
		if err != nil {
			return err
		}

		// Rolling back keeps the round open for bets.
		if len(bets) == 0 {
			return ErrNoBetsPlaced
		}

		for i := range bets {
			b := &bets[i]

			payout, won := SettleBet(b.Amount, b.Color, color)

			err = s.games.SetBetOutcome(tx, b.ID, payout, won)
			if err != nil {
				return err
			}

			entry := ledgerrepo.Entry{
				UserID:   b.UserID,
				GameType: "roulette",
				GameID:   &gameID,
			}

			if won {
				entry.Key = fmt.Sprintf("roulette:%s:win:%d", gameID, b.ID)
				entry.Amount = payout
				entry.Type = ledgerrepo.TypeWin
				entry.Description = fmt.Sprintf("roulette win on %s", color)
			} else {
				entry.Key = fmt.Sprintf("roulette:%s:loss:%d", gameID, b.ID)
				entry.Amount = 0
				entry.Type = ledgerrepo.TypeLoss
				entry.Description = fmt.Sprintf("roulette loss, landed %s", color)
			}

			err = s.ledger.Apply(tx, entry)
			if err != nil {
				return err
			}

			b.Payout = payout
			b.Won = &won
		}

		res.Bets = bets

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("spin roulette: %w", err)
	}

	return res, nil
}

// SettleBet computes one bet's payout against the landed color.
func SettleBet(amount int64, betColor, landed string) (payout int64, won bool) {
	if betColor != landed {
		return 0, false
	}

	return amount * outcome.WheelMultiplier(landed) / 100, true
}
