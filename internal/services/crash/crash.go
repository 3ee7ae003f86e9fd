// Package crash runs multiplier rounds. A round moves waiting -> flying
// -> crashed. Cashouts are recorded while the round flies; the crash
// point is drawn inside the resolving transaction and a cashout pays
// only when it does not exceed that point.
package crash

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/callzzzz333/mm2-arena/internal/infra/pgutils"
	"github.com/callzzzz333/mm2-arena/internal/repos/games"
	pggames "github.com/callzzzz333/mm2-arena/internal/repos/games/postgres"
	ledgerrepo "github.com/callzzzz333/mm2-arena/internal/repos/ledger"
	ledgersvc "github.com/callzzzz333/mm2-arena/internal/services/ledger"
	"github.com/callzzzz333/mm2-arena/internal/services/outcome"
)

var (
	ErrBadAmount     = errors.New("amount must be positive")
	ErrBadMultiplier = errors.New("multiplier must be at least 1.00")
	ErrBettingOver   = errors.New("betting is closed for this round")
	ErrNotFlying     = errors.New("round is not flying")
	ErrNoCashout     = errors.New("no live bet to cash out")
	ErrNotResolvable = errors.New("round is not resolvable")
)

type Service struct {
	db     *sql.DB
	games  games.Crashes
	ledger *ledgersvc.Service
	src    outcome.Source
}

func New(db *sql.DB, ledger *ledgersvc.Service, src outcome.Source) *Service {
	return &Service{
		db:     db,
		games:  pggames.NewCrashes(db),
		ledger: ledger,
		src:    src,
	}
}

// Create opens a betting round.
func (s *Service) Create(ctx context.Context) (*games.CrashGame, error) {
	g := &games.CrashGame{
		ID:     uuid.New(),
		Status: games.StatusWaiting,
	}

	err := s.games.Create(ctx, g)
	if err != nil {
		return nil, fmt.Errorf("create crash round: %w", err)
	}

	return g, nil
}

// Get returns one round.
func (s *Service) Get(ctx context.Context, gameID uuid.UUID) (*games.CrashGame, error) {
	return s.games.Get(ctx, gameID)
}

// PlaceBet debits the amount and enters the user into the round. One bet
// per user per round.
func (s *Service) PlaceBet(ctx context.Context, userID int64, gameID uuid.UUID, amount int64) (*games.CrashBet, error) {
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

	b := &games.CrashBet{
		GameID: gameID,
		UserID: userID,
		Amount: amount,
	}

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.games.InsertBet(tx, b)
		if err != nil {
			return err
		}

		return s.ledger.Apply(tx, ledgerrepo.Entry{
			Key:         fmt.Sprintf("crash:%s:bet:%d", gameID, userID),
			UserID:      userID,
			Amount:      -amount,
			Type:        ledgerrepo.TypeBet,
			GameType:    "crash",
			GameID:      &gameID,
			Description: "crash bet",
		})
	})
	if err != nil {
		return nil, fmt.Errorf("place crash bet: %w", err)
	}

	return b, nil
}

// Launch closes betting and sets the round flying.
func (s *Service) Launch(ctx context.Context, gameID uuid.UUID) error {
	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.games.ClaimFlying(tx, gameID)
	})
	if err != nil {
		if errors.Is(err, games.ErrStateConflict) {
			return ErrBettingOver
		}

		return fmt.Errorf("launch crash round: %w", err)
	}

	return nil
}

// Cashout records the user's exit multiplier while the round flies. It
// succeeds at most once per bet; whether it pays is decided at resolve
// time against the drawn crash point.
func (s *Service) Cashout(ctx context.Context, userID int64, gameID uuid.UUID, multiplier int64) error {
	if multiplier < 100 {
		return ErrBadMultiplier
	}

	g, err := s.games.Get(ctx, gameID)
	if err != nil {
		return err
	}

	// The conditional update below re-checks under the transaction;
	// this read only picks the right error for a round that is not
	// airborne.
	if g.Status != games.StatusFlying {
		return ErrNotFlying
	}

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.games.RecordCashout(tx, gameID, userID, multiplier)
	})
	if err != nil {
		if errors.Is(err, games.ErrStateConflict) {
			return ErrNoCashout
		}

		return fmt.Errorf("crash cashout: %w", err)
	}

	return nil
}

// ResolveResult carries the settled round back to the caller.
type ResolveResult struct {
	CrashPoint int64
	Bets       []games.CrashBet
}

// Resolve draws the crash point and settles every bet. The claiming
// update (flying -> crashed, point recorded) is the first write; a
// concurrent resolve gets ErrNotResolvable. The point is drawn inside
// the transaction so a rolled-back resolve never leaks an outcome.
func (s *Service) Resolve(ctx context.Context, gameID uuid.UUID) (*ResolveResult, error) {
	res := &ResolveResult{}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		point := outcome.CrashPoint(s.src)

		err := s.games.SettleCrashed(tx, gameID, point)
		if err != nil {
			if errors.Is(err, games.ErrStateConflict) {
				return ErrNotResolvable
			}

			return err
		}

		res.CrashPoint = point

		bets, err := s.games.ListBets(tx, gameID)
		if err != nil {
			return err
		}

		for i := range bets {
			b := &bets[i]

			payout, won := SettleBet(b.Amount, b.Cashout, point)

			err = s.games.SetBetOutcome(tx, b.ID, payout, won)
			if err != nil {
				return err
			}

			entry := ledgerrepo.Entry{
				UserID:   b.UserID,
				GameType: "crash",
				GameID:   &gameID,
			}

			if won {
				entry.Key = fmt.Sprintf("crash:%s:win:%d", gameID, b.ID)
				entry.Amount = payout
				entry.Type = ledgerrepo.TypeWin
				entry.Description = fmt.Sprintf("crash cashout at %d.%02dx", *b.Cashout/100, *b.Cashout%100)
			} else {
				entry.Key = fmt.Sprintf("crash:%s:loss:%d", gameID, b.ID)
				entry.Amount = 0
				entry.Type = ledgerrepo.TypeLoss
				entry.Description = fmt.Sprintf("crashed at %d.%02dx", point/100, point%100)
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
		return nil, fmt.Errorf("resolve crash round: %w", err)
	}

	return res, nil
}

// SettleBet computes one bet's payout against the crash point. A bet
// pays only when a cashout was recorded at or below the point.
func SettleBet(amount int64, cashout *int64, point int64) (payout int64, won bool) {
	if cashout == nil || *cashout > point {
		return 0, false
	}

	return amount * *cashout / 100, true
}

// SweepIdle refunds and removes rounds that sat in betting with no
// launch for longer than the window. Refunds are idempotent via the
// ledger key, so a crashed sweep can safely rerun.
func (s *Service) SweepIdle(ctx context.Context, window time.Duration) (int, error) {
	ids, err := s.games.ListIdleWaitingBefore(ctx, time.Now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("list idle crash rounds: %w", err)
	}

	swept := 0

	for _, id := range ids {
		err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			err := s.games.ClaimExpired(tx, id)
			if err != nil {
				return err
			}

			bets, err := s.games.ListBets(tx, id)
			if err != nil {
				return err
			}

			for _, b := range bets {
				gameID := id

				err = s.ledger.Apply(tx, ledgerrepo.Entry{
					Key:         fmt.Sprintf("crash:%s:refund:%d", id, b.ID),
					UserID:      b.UserID,
					Amount:      b.Amount,
					Type:        ledgerrepo.TypeRefund,
					GameType:    "crash",
					GameID:      &gameID,
					Description: "crash round expired",
				})
				if err != nil {
					return err
				}
			}

			return s.games.Delete(tx, id)
		})
		if err != nil {
			if errors.Is(err, games.ErrStateConflict) {
				// A launch got there first.
				continue
			}

			slog.Error("crash sweep: refund failed", "game_id", id, "error", err)

			continue
		}

		swept++
	}

	return swept, nil
}
