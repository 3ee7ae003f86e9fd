// Package chamber runs the revolver game: each pull draws uniformly
// over the remaining chambers, each survival removes one chamber and
// raises the cashout multiplier by half the bet. With one chamber left
// the pull is always fatal, so a player must cash out before the end.
package chamber

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
	ErrBadAmount  = errors.New("amount must be positive")
	ErrNotYours   = errors.New("not your game")
	ErrNotPlaying = errors.New("game is over")
)

type Service struct {
	db       *sql.DB
	games    games.Chambers
	ledger   *ledgersvc.Service
	src      outcome.Source
	chambers int
}

func New(db *sql.DB, ledger *ledgersvc.Service, src outcome.Source, chambers int) *Service {
	return &Service{
		db:       db,
		games:    pggames.NewChambers(db),
		ledger:   ledger,
		src:      src,
		chambers: chambers,
	}
}

// Create debits the bet and loads the cylinder.
func (s *Service) Create(ctx context.Context, userID int64, bet int64) (*games.ChamberGame, error) {
	if bet <= 0 {
		return nil, ErrBadAmount
	}

	g := &games.ChamberGame{
		ID:           uuid.New(),
		UserID:       userID,
		Bet:          bet,
		ChambersLeft: s.chambers,
		Multiplier:   100,
		Status:       games.StatusPlaying,
	}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.ledger.Apply(tx, ledgerrepo.Entry{
			Key:         fmt.Sprintf("chamber:%s:bet", g.ID),
			UserID:      userID,
			Amount:      -bet,
			Type:        ledgerrepo.TypeBet,
			GameType:    "chamber",
			GameID:      &g.ID,
			Description: "chamber bet",
		})
		if err != nil {
			return err
		}

		return s.games.Create(tx, g)
	})
	if err != nil {
		return nil, fmt.Errorf("create chamber game: %w", err)
	}

	return g, nil
}

// Pull fires once. The game row is locked for the whole pull, so two
// concurrent pulls resolve one after the other against the real
// remaining chamber count.
func (s *Service) Pull(ctx context.Context, userID int64, gameID uuid.UUID) (*games.ChamberGame, error) {
	var out *games.ChamberGame

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		g, err := s.lockOwned(tx, userID, gameID)
		if err != nil {
			return err
		}

		if outcome.PullTrigger(s.src, g.ChambersLeft) {
			g.Status = games.StatusDead

			err = s.games.SettleDead(tx, gameID)
			if err != nil {
				return err
			}

			out = g

			return s.ledger.Apply(tx, ledgerrepo.Entry{
				Key:         fmt.Sprintf("chamber:%s:loss", gameID),
				UserID:      userID,
				Amount:      0,
				Type:        ledgerrepo.TypeLoss,
				GameType:    "chamber",
				GameID:      &gameID,
				Description: "chamber loss",
			})
		}

		g.ChambersLeft--
		g.Multiplier += outcome.ChamberStep
		out = g

		return s.games.RecordPull(tx, gameID, g.ChambersLeft, g.Multiplier)
	})
	if err != nil {
		return nil, fmt.Errorf("chamber pull: %w", err)
	}

	return out, nil
}

// Cashout pays bet times the current multiplier and ends the game.
func (s *Service) Cashout(ctx context.Context, userID int64, gameID uuid.UUID) (*games.ChamberGame, error) {
	var out *games.ChamberGame

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		g, err := s.lockOwned(tx, userID, gameID)
		if err != nil {
			return err
		}

		payout := g.Bet * g.Multiplier / 100

		err = s.games.SettleCashed(tx, gameID, payout)
		if err != nil {
			return err
		}

		g.Status = games.StatusCashed
		g.Payout = payout
		out = g

		return s.ledger.Apply(tx, ledgerrepo.Entry{
			Key:         fmt.Sprintf("chamber:%s:win", gameID),
			UserID:      userID,
			Amount:      payout,
			Type:        ledgerrepo.TypeWin,
			GameType:    "chamber",
			GameID:      &gameID,
			Description: fmt.Sprintf("chamber cashout at %d.%02dx", g.Multiplier/100, g.Multiplier%100),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("chamber cashout: %w", err)
	}

	return out, nil
}

func (s *Service) lockOwned(tx *sql.Tx, userID int64, gameID uuid.UUID) (*games.ChamberGame, error) {
	g, err := s.games.Lock(tx, gameID)
	if err != nil {
		return nil, err
	}

	if g.UserID != userID {
		return nil, ErrNotYours
	}

	if g.Status != games.StatusPlaying {
		return nil, ErrNotPlaying
	}

	return g, nil
}
