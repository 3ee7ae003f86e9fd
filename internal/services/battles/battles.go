// Package battles runs case battles: every participant pays the same
// entry, each round opens one case per slot for every seat, and the
// highest accumulated drop value takes everything.
package battles

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
	"github.com/callzzzz333/mm2-arena/internal/repos/items"
	ledgerrepo "github.com/callzzzz333/mm2-arena/internal/repos/ledger"
	ledgersvc "github.com/callzzzz333/mm2-arena/internal/services/ledger"
	"github.com/callzzzz333/mm2-arena/internal/services/outcome"
	"github.com/callzzzz333/mm2-arena/internal/services/pricing"
	"github.com/callzzzz333/mm2-arena/internal/services/stakes"
)

var (
	ErrBadConfig    = errors.New("battle needs at least 2 players, 1 round and 1 case per round")
	ErrBadAmount    = errors.New("entry cost must be positive")
	ErrNotJoinable  = errors.New("battle is not joinable")
	ErrNotActive    = errors.New("battle is not active")
	ErrRoundPlayed  = errors.New("round already played")
	ErrEmptyCatalog = errors.New("item catalog is empty")
)

type Service struct {
	db     *sql.DB
	games  games.CaseBattles
	ledger *ledgersvc.Service
	mover  *stakes.Mover
	prices *pricing.Cache
	src    outcome.Source
}

func New(db *sql.DB, ledger *ledgersvc.Service, mover *stakes.Mover, prices *pricing.Cache, src outcome.Source) *Service {
	return &Service{
		db:     db,
		games:  pggames.NewCaseBattles(db),
		ledger: ledger,
		mover:  mover,
		prices: prices,
		src:    src,
	}
}

// Create opens a battle with the creator in seat 0, entry paid.
func (s *Service) Create(ctx context.Context, userID int64, maxPlayers, rounds, casesPerRound int, entryCost int64) (*games.CaseBattle, error) {
	if maxPlayers < 2 || rounds < 1 || casesPerRound < 1 {
		return nil, ErrBadConfig
	}

	if entryCost <= 0 {
		return nil, ErrBadAmount
	}

	b := &games.CaseBattle{
		ID:            uuid.New(),
		Status:        games.StatusWaiting,
		MaxPlayers:    maxPlayers,
		Rounds:        rounds,
		CasesPerRound: casesPerRound,
		EntryCost:     entryCost,
	}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.games.Create(tx, b)
		if err != nil {
			return err
		}

		return s.enter(tx, b, userID, 0)
	})
	if err != nil {
		return nil, fmt.Errorf("create battle: %w", err)
	}

	return b, nil
}

// Join seats the user and pays the entry; the last seat flips the battle
// active.
func (s *Service) Join(ctx context.Context, userID int64, battleID uuid.UUID) (*games.CaseBattle, error) {
	b, err := s.games.Get(ctx, battleID)
	if err != nil {
		return nil, err
	}

	if b.Status != games.StatusWaiting {
		return nil, ErrNotJoinable
	}

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		participants, err := s.games.ListParticipants(tx, battleID)
		if err != nil {
			return err
		}

		if len(participants) >= b.MaxPlayers {
			return ErrNotJoinable
		}

		// The unique seat constraint turns a racing join into
		// ErrAlreadyEntered instead of a double seat.
		err = s.enter(tx, b, userID, len(participants))
		if err != nil {
			return err
		}

		if len(participants)+1 == b.MaxPlayers {
			b.Status = games.StatusActive

			return s.games.ClaimActive(tx, battleID)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("join battle: %w", err)
	}

	return b, nil
}

func (s *Service) enter(tx *sql.Tx, b *games.CaseBattle, userID int64, position int) error {
	err := s.games.InsertParticipant(tx, &games.CaseBattleParticipant{
		BattleID: b.ID,
		UserID:   userID,
		Position: position,
	})
	if err != nil {
		return err
	}

	battleID := b.ID

	return s.ledger.Apply(tx, ledgerrepo.Entry{
		Key:         fmt.Sprintf("battle:%s:entry:%d", b.ID, userID),
		UserID:      userID,
		Amount:      -b.EntryCost,
		Type:        ledgerrepo.TypeBet,
		GameType:    "battle",
		GameID:      &battleID,
		Description: "case battle entry",
	})
}

// Get returns a battle with its participants.
func (s *Service) Get(ctx context.Context, battleID uuid.UUID) (*games.CaseBattle, []games.CaseBattleParticipant, error) {
	b, err := s.games.Get(ctx, battleID)
	if err != nil {
		return nil, nil, err
	}

	var participants []games.CaseBattleParticipant

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		participants, err = s.games.ListParticipants(tx, battleID)

		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("list battle participants: %w", err)
	}

	return b, participants, nil
}

// RoundResult is one played round: the drops per participant and, after
// the final round, the settled winner.
type RoundResult struct {
	Round        int
	Drops        map[int64][]games.StakedItem
	Final        bool
	WinnerID     int64
	Participants []games.CaseBattleParticipant
}

// PlayRound advances the battle exactly one round. The round-counter
// update is the claiming write, so two concurrent calls play the round
// once: the loser gets ErrRoundPlayed. Every participant opens one
// weighted case per slot; the final round hands all accumulated drops
// to the winner's inventory.
func (s *Service) PlayRound(ctx context.Context, battleID uuid.UUID) (*RoundResult, error) {
	b, err := s.games.Get(ctx, battleID)
	if err != nil {
		return nil, err
	}

	if b.Status != games.StatusActive {
		return nil, ErrNotActive
	}

	catalog, err := s.prices.Catalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("load item catalog: %w", err)
	}

	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}

	picker := newCasePicker(catalog)
	round := b.CurrentRound + 1

	res := &RoundResult{
		Round: round,
		Drops: make(map[int64][]games.StakedItem),
		Final: round == b.Rounds,
	}

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.games.AdvanceRound(tx, battleID, round)
		if err != nil {
			if errors.Is(err, games.ErrStateConflict) {
				return ErrRoundPlayed
			}

			return err
		}

		participants, err := s.games.ListParticipants(tx, battleID)
		if err != nil {
			return err
		}

		for i := range participants {
			p := &participants[i]

			drops := picker.open(s.src, b.CasesPerRound)
			res.Drops[p.UserID] = drops

			p.Drops = append(p.Drops, drops...)
			p.TotalValue += games.StakeValue(drops)

			err = s.games.UpdateParticipant(tx, battleID, p.UserID, p.TotalValue, p.Drops)
			if err != nil {
				return err
			}
		}

		res.Participants = participants

		if !res.Final {
			return nil
		}

		winnerID := PickWinner(participants)
		res.WinnerID = winnerID

		err = s.games.SettleWinner(tx, battleID, winnerID)
		if err != nil {
			return err
		}

		all := make([][]games.StakedItem, 0, len(participants))

		var dropValue int64

		for _, p := range participants {
			all = append(all, p.Drops)
			dropValue += games.StakeValue(p.Drops)
		}

		err = s.mover.Award(tx, winnerID, all...)
		if err != nil {
			return err
		}

		// Zero-amount audit record for the item payout; the drops carry
		// no cash delta but the award still lands in the ledger.
		return s.ledger.Apply(tx, ledgerrepo.Entry{
			Key:         fmt.Sprintf("battle:%s:drops:%d", battleID, winnerID),
			UserID:      winnerID,
			Amount:      0,
			Type:        ledgerrepo.TypeWin,
			GameType:    "battle",
			GameID:      &battleID,
			Description: fmt.Sprintf("case battle won drops worth %d", dropValue),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("play battle round: %w", err)
	}

	return res, nil
}

// PickWinner returns the participant with the highest total drop value.
// Ties go to the lowest seat.
func PickWinner(participants []games.CaseBattleParticipant) int64 {
	var (
		winnerID  int64
		bestValue int64 = -1
		bestSeat  int
	)

	for _, p := range participants {
		if p.TotalValue > bestValue || (p.TotalValue == bestValue && p.Position < bestSeat) {
			winnerID = p.UserID
			bestValue = p.TotalValue
			bestSeat = p.Position
		}
	}

	return winnerID
}

// casePicker draws catalog items by rarity weight.
type casePicker struct {
	picker *outcome.WeightedPicker
	items  []items.Item
}

func newCasePicker(catalog []items.Item) *casePicker {
	weights := make([]int, len(catalog))
	for i, it := range catalog {
		weights[i] = items.Weight(it.Rarity)
	}

	return &casePicker{picker: outcome.NewWeightedPicker(weights), items: catalog}
}

func (c *casePicker) open(src outcome.Source, cases int) []games.StakedItem {
	drops := make([]games.StakedItem, 0, cases)

	for range cases {
		it := c.items[c.picker.Pick(src)]

		drops = append(drops, games.StakedItem{
			ItemID:   it.ID,
			Name:     it.Name,
			Value:    it.Value,
			Quantity: 1,
		})
	}

	return drops
}

// SweepExpired expires battles stuck in waiting past the window and
// refunds every paid entry. The conditional claim keeps the sweep from
// racing the final join.
func (s *Service) SweepExpired(ctx context.Context, window time.Duration) (int, error) {
	ids, err := s.games.ListWaitingBefore(ctx, time.Now().Add(-window))
	if err != nil {
		return 0, fmt.Errorf("list stale battles: %w", err)
	}

	swept := 0

	for _, id := range ids {
		b, err := s.games.Get(ctx, id)
		if err != nil {
			slog.Error("battle sweep: load failed", "battle_id", id, "error", err)

			continue
		}

		err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			err := s.games.ClaimExpired(tx, id)
			if err != nil {
				return err
			}

			participants, err := s.games.ListParticipants(tx, id)
			if err != nil {
				return err
			}

			for _, p := range participants {
				battleID := id

				err = s.ledger.Apply(tx, ledgerrepo.Entry{
					Key:         fmt.Sprintf("battle:%s:refund:%d", id, p.UserID),
					UserID:      p.UserID,
					Amount:      b.EntryCost,
					Type:        ledgerrepo.TypeRefund,
					GameType:    "battle",
					GameID:      &battleID,
					Description: "case battle expired",
				})
				if err != nil {
					return err
				}
			}

			return nil
		})
		if err != nil {
			if errors.Is(err, games.ErrStateConflict) {
				// Filled up and went active first.
				continue
			}

			slog.Error("battle sweep: refund failed", "battle_id", id, "error", err)

			continue
		}

		swept++
	}

	return swept, nil
}
