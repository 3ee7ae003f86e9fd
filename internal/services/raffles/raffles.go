// Package raffles exchanges inventory items for raffle tickets. Items
// are valued from the price cache at exchange time; every staked item
// must individually clear the raffle's minimum value.
package raffles

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
	"github.com/callzzzz333/mm2-arena/internal/services/stakes"
)

var (
	ErrNotOpen      = errors.New("raffle is not open")
	ErrItemBelowMin = errors.New("item value below the raffle minimum")
	ErrTooLittle    = errors.New("stake is worth less than one ticket")
)

type Service struct {
	db     *sql.DB
	games  games.Raffles
	ledger *ledgersvc.Service
	mover  *stakes.Mover
}

func New(db *sql.DB, ledger *ledgersvc.Service, mover *stakes.Mover) *Service {
	return &Service{
		db:     db,
		games:  pggames.NewRaffles(db),
		ledger: ledger,
		mover:  mover,
	}
}

// Get returns one raffle.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*games.Raffle, error) {
	return s.games.Get(ctx, id)
}

// ExchangeResult reports one settled exchange.
type ExchangeResult struct {
	Tickets    int64
	TotalValue int64
}

// Exchange removes the staked items and credits tickets at the raffle's
// price. Tickets round down; an exchange worth less than one ticket is
// rejected before anything moves.
func (s *Service) Exchange(ctx context.Context, userID int64, raffleID uuid.UUID, lines []stakes.Line) (*ExchangeResult, error) {
	r, err := s.games.Get(ctx, raffleID)
	if err != nil {
		return nil, err
	}

	if r.Status != games.StatusActive {
		return nil, ErrNotOpen
	}

	stake, err := s.mover.Price(ctx, lines)
	if err != nil {
		return nil, err
	}

	for _, it := range stake {
		if it.Value < r.MinItemValue {
			return nil, fmt.Errorf("%w: %s", ErrItemBelowMin, it.Name)
		}
	}

	totalValue := games.StakeValue(stake)

	tickets := totalValue / r.TicketPrice
	if tickets < 1 {
		return nil, ErrTooLittle
	}

	// Each exchange is its own operation, so the audit key carries a
	// fresh id rather than a replayable one.
	exchangeID := uuid.New()

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := s.mover.Debit(tx, userID, stake)
		if err != nil {
			return err
		}

		err = s.games.AddTickets(tx, raffleID, userID, tickets, totalValue)
		if err != nil {
			return err
		}

		return s.ledger.Apply(tx, ledgerrepo.Entry{
			Key:         fmt.Sprintf("raffle:%s:exchange:%s", raffleID, exchangeID),
			UserID:      userID,
			Amount:      0,
			Type:        ledgerrepo.TypeBet,
			GameType:    "raffle",
			GameID:      &raffleID,
			Description: fmt.Sprintf("%d raffle tickets for items worth %d", tickets, totalValue),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("raffle exchange: %w", err)
	}

	return &ExchangeResult{Tickets: tickets, TotalValue: totalValue}, nil
}
