// Package giveaways escrows a cash prize from the creator, takes free
// entries until the deadline, then draws a ticket-weighted winner on the
// sweep. Completed giveaways are purged after a short grace period.
package giveaways

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
	ErrBadAmount   = errors.New("prize must be positive")
	ErrBadDeadline = errors.New("deadline must be in the future")
	ErrNotOpen     = errors.New("giveaway is not open for entries")
	ErrOwnGiveaway = errors.New("cannot enter your own giveaway")
)

type Service struct {
	db     *sql.DB
	games  games.Giveaways
	ledger *ledgersvc.Service
	src    outcome.Source
	grace  time.Duration
}

func New(db *sql.DB, ledger *ledgersvc.Service, src outcome.Source, grace time.Duration) *Service {
	return &Service{
		db:     db,
		games:  pggames.NewGiveaways(db),
		ledger: ledger,
		src:    src,
		grace:  grace,
	}
}

// Create escrows the prize from the creator and opens the giveaway.
func (s *Service) Create(ctx context.Context, userID int64, prize int64, endsAt time.Time) (*games.Giveaway, error) {
	if prize <= 0 {
		return nil, ErrBadAmount
	}

	if !endsAt.After(time.Now()) {
		return nil, ErrBadDeadline
	}

	g := &games.Giveaway{
		ID:          uuid.New(),
		CreatorID:   userID,
		PrizeAmount: prize,
		Status:      games.StatusActive,
		EndsAt:      endsAt,
	}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.ledger.Apply(tx, ledgerrepo.Entry{
			Key:         fmt.Sprintf("giveaway:%s:escrow", g.ID),
			UserID:      userID,
			Amount:      -prize,
			Type:        ledgerrepo.TypeEscrow,
			GameType:    "giveaway",
			GameID:      &g.ID,
			Description: "giveaway prize escrow",
		})
		if err != nil {
			return err
		}

		return s.games.Create(tx, g)
	})
	if err != nil {
		return nil, fmt.Errorf("create giveaway: %w", err)
	}

	return g, nil
}

// Get returns one giveaway.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*games.Giveaway, error) {
	return s.games.Get(ctx, id)
}

// Join enters the user once, at one ticket. Ticket counts are never
// taken from the caller; a client-chosen weight would let a joiner buy
// the draw. The entries table's primary key turns a repeat join into
// ErrAlreadyEntered.
func (s *Service) Join(ctx context.Context, userID int64, giveawayID uuid.UUID) error {
	g, err := s.games.Get(ctx, giveawayID)
	if err != nil {
		return err
	}

	if g.Status != games.StatusActive || !g.EndsAt.After(time.Now()) {
		return ErrNotOpen
	}

	if g.CreatorID == userID {
		return ErrOwnGiveaway
	}

	err = s.games.InsertEntry(ctx, &games.GiveawayEntry{
		GiveawayID: giveawayID,
		UserID:     userID,
		Tickets:    1,
	})
	if err != nil {
		return fmt.Errorf("join giveaway: %w", err)
	}

	return nil
}

// SweepDue draws winners for every giveaway past its deadline. The
// winner update is conditional on the active status, so a concurrent
// sweep draws each giveaway once. A giveaway nobody entered refunds
// the escrowed prize to the creator.
func (s *Service) SweepDue(ctx context.Context) (int, error) {
	ids, err := s.games.ListActiveEndedBefore(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("list due giveaways: %w", err)
	}

	settled := 0

	for _, id := range ids {
		g, err := s.games.Get(ctx, id)
		if err != nil {
			slog.Error("giveaway sweep: load failed", "giveaway_id", id, "error", err)

			continue
		}

		err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			entries, err := s.games.ListEntries(tx, id)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				err = s.games.SettleWinner(tx, id, g.CreatorID)
				if err != nil {
					return err
				}

				giveawayID := id

				return s.ledger.Apply(tx, ledgerrepo.Entry{
					Key:         fmt.Sprintf("giveaway:%s:refund", id),
					UserID:      g.CreatorID,
					Amount:      g.PrizeAmount,
					Type:        ledgerrepo.TypeRefund,
					GameType:    "giveaway",
					GameID:      &giveawayID,
					Description: "giveaway had no entries",
				})
			}

			winnerID := DrawWinner(s.src, entries)

			err = s.games.SettleWinner(tx, id, winnerID)
			if err != nil {
				return err
			}

			giveawayID := id

			return s.ledger.Apply(tx, ledgerrepo.Entry{
				Key:         fmt.Sprintf("giveaway:%s:prize", id),
				UserID:      winnerID,
				Amount:      g.PrizeAmount,
				Type:        ledgerrepo.TypePrize,
				GameType:    "giveaway",
				GameID:      &giveawayID,
				Description: "giveaway prize",
			})
		})
		if err != nil {
			if errors.Is(err, games.ErrStateConflict) {
				continue
			}

			slog.Error("giveaway sweep: settle failed", "giveaway_id", id, "error", err)

			continue
		}

		settled++
	}

	return settled, nil
}

// DrawWinner picks one entry with probability proportional to its
// ticket count.
func DrawWinner(src outcome.Source, entries []games.GiveawayEntry) int64 {
	weights := make([]int, len(entries))
	for i, e := range entries {
		weights[i] = e.Tickets
	}

	picker := outcome.NewWeightedPicker(weights)
	if picker == nil {
		return entries[0].UserID
	}

	return entries[picker.Pick(src)].UserID
}

// SweepCompleted purges settled giveaways older than the grace period,
// entries first so a failure between the two deletes never orphans
// entry rows.
func (s *Service) SweepCompleted(ctx context.Context) (int, error) {
	ids, err := s.games.ListCompletedBefore(ctx, time.Now().Add(-s.grace))
	if err != nil {
		return 0, fmt.Errorf("list completed giveaways: %w", err)
	}

	purged := 0

	for _, id := range ids {
		err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			err := s.games.DeleteEntries(tx, id)
			if err != nil {
				return err
			}

			return s.games.Delete(tx, id)
		})
		if err != nil {
			slog.Error("giveaway sweep: purge failed", "giveaway_id", id, "error", err)

			continue
		}

		purged++
	}

	return purged, nil
}
