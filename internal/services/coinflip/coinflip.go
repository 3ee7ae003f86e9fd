// Package coinflip settles item-stake coinflips. The full join flow runs
// in one database transaction: claim the waiting row, debit the joiner's
// stake, flip, move both stakes to the winner. No value is created or
// destroyed on this path; there is no house edge on the coin.
package coinflip

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
	"github.com/callzzzz333/mm2-arena/internal/services/stakes"
)

var (
	ErrBadSide        = errors.New("side must be heads or tails")
	ErrSelfJoin       = errors.New("cannot join your own game")
	ErrNotJoinable    = errors.New("game is not joinable")
	ErrOutOfTolerance = errors.New("stake value outside the allowed band")
)

type Service struct {
	db           *sql.DB
	games        games.Coinflips
	ledger       *ledgersvc.Service
	mover        *stakes.Mover
	src          outcome.Source
	tolerancePct int64
}

func New(db *sql.DB, ledger *ledgersvc.Service, mover *stakes.Mover, src outcome.Source, tolerancePct int64) *Service {
	return &Service{
		db:           db,
		games:        pggames.NewCoinflips(db),
		ledger:       ledger,
		mover:        mover,
		src:          src,
		tolerancePct: tolerancePct,
	}
}

// Create opens a waiting game with the creator's item stake.
func (s *Service) Create(ctx context.Context, userID int64, side string, lines []stakes.Line) (*games.CoinflipGame, error) {
	if side != outcome.SideHeads && side != outcome.SideTails {
		return nil, ErrBadSide
	}

	g := &games.CoinflipGame{
		ID:          uuid.New(),
		CreatorID:   userID,
		CreatorSide: side,
		Status:      games.StatusWaiting,
	}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		stake, err := s.mover.Take(ctx, tx, userID, lines)
		if err != nil {
			return err
		}

		g.CreatorStake = stake
		g.StakeValue = games.StakeValue(stake)

		err = s.games.Create(tx, g)
		if err != nil {
			return err
		}

		return s.ledger.Apply(tx, stakeEntry(g.ID, userID, g.StakeValue))
	})
	if err != nil {
		return nil, fmt.Errorf("create coinflip: %w", err)
	}

	return g, nil
}

// JoinResult is what the joiner gets back from a settled flip.
type JoinResult struct {
	Game       *games.CoinflipGame
	ResultSide string
	WinnerID   int64
}

// Join settles a waiting game against the joiner's stake.
//
// Preconditions fail fast in order: game exists and is waiting, joiner is
// not the creator, joiner currently owns the staked items, joiner's stake
// is within tolerance of the creator's. The claiming update (waiting ->
// completed) is the first write; a concurrent joiner loses the claim,
// gets ErrNotJoinable, and leaves no side effects behind.
func (s *Service) Join(ctx context.Context, userID int64, gameID uuid.UUID, lines []stakes.Line) (*JoinResult, error) {
	g, err := s.games.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if g.Status != games.StatusWaiting {
		return nil, ErrNotJoinable
	}

	if g.CreatorID == userID {
		return nil, ErrSelfJoin
	}

	joinerStake, err := s.mover.Price(ctx, lines)
	if err != nil {
		return nil, err
	}

	err = s.mover.Covered(ctx, userID, joinerStake)
	if err != nil {
		return nil, err
	}

	if !WithinTolerance(g.StakeValue, games.StakeValue(joinerStake), s.tolerancePct) {
		return nil, ErrOutOfTolerance
	}

	result := outcome.FlipCoin(s.src)

	winnerID := userID
	if result == g.CreatorSide {
		winnerID = g.CreatorID
	}

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.games.SettleJoin(tx, gameID, userID, joinerStake, result, winnerID)
		if err != nil {
			if errors.Is(err, games.ErrStateConflict) {
				return ErrNotJoinable
			}

			return err
		}

		err = s.mover.Debit(tx, userID, joinerStake)
		if err != nil {
			return err
		}

		err = s.mover.Award(tx, winnerID, g.CreatorStake, joinerStake)
		if err != nil {
			return err
		}

		err = s.ledger.Apply(tx, stakeEntry(gameID, userID, games.StakeValue(joinerStake)))
		if err != nil {
			return err
		}

		total := g.StakeValue + games.StakeValue(joinerStake)

		return s.ledger.Apply(tx, ledgerrepo.Entry{
			Key:         fmt.Sprintf("coinflip:%s:payout", gameID),
			UserID:      winnerID,
			Amount:      0,
			Type:        ledgerrepo.TypeWin,
			GameType:    "coinflip",
			GameID:      &gameID,
			Description: fmt.Sprintf("coinflip won items worth %d", total),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("join coinflip: %w", err)
	}

	g.Status = games.StatusCompleted
	g.JoinerID = &userID
	g.JoinerStake = joinerStake
	g.ResultSide = &result
	g.WinnerID = &winnerID

	return &JoinResult{Game: g, ResultSide: result, WinnerID: winnerID}, nil
}

// Get returns one game.
func (s *Service) Get(ctx context.Context, gameID uuid.UUID) (*games.CoinflipGame, error) {
	return s.games.Get(ctx, gameID)
}

// stakeEntry is the zero-amount audit record for an item stake. Items
// carry no cash delta, but every inventory move tied to a game still
// lands in the ledger with its snapshot value in the description.
func stakeEntry(gameID uuid.UUID, userID, value int64) ledgerrepo.Entry {
	return ledgerrepo.Entry{
		Key:         fmt.Sprintf("coinflip:%s:stake:%d", gameID, userID),
		UserID:      userID,
		Amount:      0,
		Type:        ledgerrepo.TypeBet,
		GameType:    "coinflip",
		GameID:      &gameID,
		Description: fmt.Sprintf("coinflip item stake worth %d", value),
	}
}

// WithinTolerance reports whether joiner's stake value sits inside
// creator +/- pct percent. Boundary values are inside.
func WithinTolerance(creatorValue, joinerValue, pct int64) bool {
	return joinerValue*100 >= creatorValue*(100-pct) &&
		joinerValue*100 <= creatorValue*(100+pct)
}

const (
	minSweepWindow = time.Minute
	maxSweepWindow = 30 * time.Minute
)

// SweepExpired reaps waiting games older than the window, refunds the
// creator's items and deletes the rows. Each game is claimed with a
// conditional update first, so a sweep cannot race a live join. One
// game failing to refund does not stall the rest of the sweep.
func (s *Service) SweepExpired(ctx context.Context, window time.Duration) (int, error) {
	window = ClampWindow(window)

	stale, err := s.games.ListWaitingBefore(ctx, time.Now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("list stale coinflips: %w", err)
	}

	swept := 0

	for _, g := range stale {
		err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			err := s.games.ClaimExpired(tx, g.ID)
			if err != nil {
				return err
			}

			err = s.mover.Return(tx, g.CreatorID, g.CreatorStake)
			if err != nil {
				return err
			}

			gameID := g.ID

			err = s.ledger.Apply(tx, ledgerrepo.Entry{
				Key:         fmt.Sprintf("coinflip:%s:refund", g.ID),
				UserID:      g.CreatorID,
				Amount:      0,
				Type:        ledgerrepo.TypeRefund,
				GameType:    "coinflip",
				GameID:      &gameID,
				Description: fmt.Sprintf("coinflip expired, items worth %d returned", g.StakeValue),
			})
			if err != nil {
				return err
			}

			return s.games.Delete(tx, g.ID)
		})
		if err != nil {
			if errors.Is(err, games.ErrStateConflict) {
				// A join got there first.
				continue
			}

			slog.Error("coinflip sweep: refund failed", "game_id", g.ID, "error", err)

			continue
		}

		swept++
	}

	return swept, nil
}

// ClampWindow bounds the expiry window to [1m, 30m].
func ClampWindow(window time.Duration) time.Duration {
	if window < minSweepWindow {
		return minSweepWindow
	}

	if window > maxSweepWindow {
		return maxSweepWindow
	}

	return window
}
