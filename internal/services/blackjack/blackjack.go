// Package blackjack runs multi-seat tables against an infinite-deck
// dealer. Every turn-based write locks the table row first, so hits,
// stands and the dealer's finish are fully serialized per table.
package blackjack

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
	ErrBadAmount     = errors.New("amount must be positive")
	ErrNotJoinable   = errors.New("table is not joinable")
	ErrAlreadySeated = errors.New("already seated at this table")
	ErrNoPlayers     = errors.New("table has no players")
	ErrNotInProgress = errors.New("table is not in progress")
	ErrNotYourTurn   = errors.New("not your turn")
)

type Service struct {
	db     *sql.DB
	games  games.Blackjacks
	ledger *ledgersvc.Service
	src    outcome.Source
}

func New(db *sql.DB, ledger *ledgersvc.Service, src outcome.Source) *Service {
	return &Service{
		db:     db,
		games:  pggames.NewBlackjacks(db),
		ledger: ledger,
		src:    src,
	}
}

// Create opens an empty table in waiting.
func (s *Service) Create(ctx context.Context) (*games.BlackjackTable, error) {
	t := &games.BlackjackTable{
		ID:     uuid.New(),
		Status: games.StatusWaiting,
	}

	err := s.games.CreateTable(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create blackjack table: %w", err)
	}

	return t, nil
}

// Get returns the table with its players.
func (s *Service) Get(ctx context.Context, tableID uuid.UUID) (*games.BlackjackTable, []games.BlackjackPlayer, error) {
	t, err := s.games.GetTable(ctx, tableID)
	if err != nil {
		return nil, nil, err
	}

	var players []games.BlackjackPlayer

	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		players, err = s.games.ListPlayers(tx, tableID)

		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("list blackjack players: %w", err)
	}

	return t, players, nil
}

// Join seats the user at the next free position and debits the bet.
func (s *Service) Join(ctx context.Context, userID int64, tableID uuid.UUID, bet int64) (*games.BlackjackPlayer, error) {
	if bet <= 0 {
		return nil, ErrBadAmount
	}

	p := &games.BlackjackPlayer{
		TableID: tableID,
		UserID:  userID,
		Status:  games.StatusPlaying,
		Bet:     bet,
	}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.games.LockTable(tx, tableID)
		if err != nil {
			return err
		}

		if t.Status != games.StatusWaiting {
			return ErrNotJoinable
		}

		players, err := s.games.ListPlayers(tx, tableID)
		if err != nil {
			return err
		}

		for _, existing := range players {
			if existing.UserID == userID {
				return ErrAlreadySeated
			}
		}

		p.Seat = len(players)

		err = s.games.InsertPlayer(tx, p)
		if err != nil {
			return err
		}

		return s.ledger.Apply(tx, ledgerrepo.Entry{
			Key:         fmt.Sprintf("blackjack:%s:bet:%d", tableID, userID),
			UserID:      userID,
			Amount:      -bet,
			Type:        ledgerrepo.TypeBet,
			GameType:    "blackjack",
			GameID:      &tableID,
			Description: "blackjack bet",
		})
	})
	if err != nil {
		return nil, fmt.Errorf("join blackjack table: %w", err)
	}

	return p, nil
}

// Deal starts the hand: two cards to every seat and to the dealer, turn
// to seat 0.
func (s *Service) Deal(ctx context.Context, tableID uuid.UUID) (*games.BlackjackTable, []games.BlackjackPlayer, error) {
	var (
		table   *games.BlackjackTable
		players []games.BlackjackPlayer
	)

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.games.LockTable(tx, tableID)
		if err != nil {
			return err
		}

		players, err = s.games.ListPlayers(tx, tableID)
		if err != nil {
			return err
		}

		if len(players) == 0 {
			return ErrNoPlayers
		}

		err = s.games.ClaimInProgress(tx, tableID)
		if err != nil {
			if errors.Is(err, games.ErrStateConflict) {
				return ErrNotJoinable
			}

			return err
		}

		for i := range players {
			p := &players[i]
			p.Hand = []outcome.Card{outcome.DrawCard(s.src), outcome.DrawCard(s.src)}

			err = s.games.SetPlayerHand(tx, tableID, p.UserID, p.Hand, games.StatusPlaying)
			if err != nil {
				return err
			}
		}

		t.DealerHand = []outcome.Card{outcome.DrawCard(s.src), outcome.DrawCard(s.src)}
		t.Status = games.StatusInProgress
		t.TurnSeat = 0

		err = s.games.SetDealerHand(tx, tableID, t.DealerHand)
		if err != nil {
			return err
		}

		table = t

		return s.games.SetTurn(tx, tableID, 0)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("deal blackjack: %w", err)
	}

	return table, players, nil
}

// Hit draws one card for the turn-holder. Going over 21 busts the seat
// and advances the turn; the last terminal seat triggers the dealer.
func (s *Service) Hit(ctx context.Context, userID int64, tableID uuid.UUID) (*games.BlackjackPlayer, error) {
	return s.turn(ctx, userID, tableID, func(p *games.BlackjackPlayer) {
		p.Hand = append(p.Hand, outcome.DrawCard(s.src))
		if outcome.HandScore(p.Hand) > 21 {
			p.Status = games.StatusBust
		}
	})
}

// Stand ends the turn-holder's hand and advances the turn.
func (s *Service) Stand(ctx context.Context, userID int64, tableID uuid.UUID) (*games.BlackjackPlayer, error) {
	return s.turn(ctx, userID, tableID, func(p *games.BlackjackPlayer) {
		p.Status = games.StatusStanding
	})
}

func (s *Service) turn(ctx context.Context, userID int64, tableID uuid.UUID, act func(*games.BlackjackPlayer)) (*games.BlackjackPlayer, error) {
	var acted *games.BlackjackPlayer

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		t, err := s.games.LockTable(tx, tableID)
		if err != nil {
			return err
		}

		if t.Status != games.StatusInProgress {
			return ErrNotInProgress
		}

		players, err := s.games.ListPlayers(tx, tableID)
		if err != nil {
			return err
		}

		var p *games.BlackjackPlayer

		for i := range players {
			if players[i].UserID == userID {
				p = &players[i]

				break
			}
		}

		if p == nil || p.Seat != t.TurnSeat || p.Status != games.StatusPlaying {
			return ErrNotYourTurn
		}

		act(p)

		err = s.games.SetPlayerHand(tx, tableID, p.UserID, p.Hand, p.Status)
		if err != nil {
			return err
		}

		acted = p

		if p.Status == games.StatusPlaying {
			return nil
		}

		return s.advance(tx, t, players)
	})
	if err != nil {
		return nil, fmt.Errorf("blackjack turn: %w", err)
	}

	return acted, nil
}

// advance moves the turn to the next playing seat, or finishes the hand
// when none is left.
func (s *Service) advance(tx *sql.Tx, t *games.BlackjackTable, players []games.BlackjackPlayer) error {
	for _, p := range players {
		if p.Seat > t.TurnSeat && p.Status == games.StatusPlaying {
			return s.games.SetTurn(tx, t.ID, p.Seat)
		}
	}

	return s.finish(tx, t, players)
}

// finish plays the dealer to 17 and settles every seat.
func (s *Service) finish(tx *sql.Tx, t *games.BlackjackTable, players []games.BlackjackPlayer) error {
	hand := t.DealerHand
	for outcome.HandScore(hand) < outcome.DealerStandScore {
		hand = append(hand, outcome.DrawCard(s.src))
	}

	err := s.games.SetDealerHand(tx, t.ID, hand)
	if err != nil {
		return err
	}

	err = s.games.ClaimCompleted(tx, t.ID)
	if err != nil {
		return err
	}

	for _, o := range Settle(players, outcome.HandScore(hand)) {
		err = s.games.SetPlayerOutcome(tx, t.ID, o.UserID, o.Payout, o.Won)
		if err != nil {
			return err
		}

		tableID := t.ID

		entry := ledgerrepo.Entry{
			UserID:   o.UserID,
			GameType: "blackjack",
			GameID:   &tableID,
		}

		switch {
		case o.Won:
			entry.Key = fmt.Sprintf("blackjack:%s:win:%d", t.ID, o.UserID)
			entry.Amount = o.Payout
			entry.Type = ledgerrepo.TypeWin
			entry.Description = "blackjack win"
		case o.Push:
			entry.Key = fmt.Sprintf("blackjack:%s:push:%d", t.ID, o.UserID)
			entry.Amount = o.Payout
			entry.Type = ledgerrepo.TypePush
			entry.Description = "blackjack push"
		default:
			entry.Key = fmt.Sprintf("blackjack:%s:loss:%d", t.ID, o.UserID)
			entry.Amount = 0
			entry.Type = ledgerrepo.TypeLoss
			entry.Description = "blackjack loss"
		}

		err = s.ledger.Apply(tx, entry)
		if err != nil {
			return err
		}
	}

	return nil
}

// Outcome is one seat's settled result.
type Outcome struct {
	UserID int64
	Seat   int
	Payout int64
	Won    bool
	Push   bool
}

// Settle resolves every seat against the dealer's final score.
//
// A seat beats the dealer when the dealer busts or its score is higher;
// matching the dealer is a push and the stake comes straight back. The
// pot is every non-pushed bet; only the seats at the highest winning
// score share it, split evenly with the remainder going to the lowest
// of those seats.
func Settle(players []games.BlackjackPlayer, dealerScore int) []Outcome {
	dealerBust := dealerScore > 21

	outcomes := make([]Outcome, len(players))

	var (
		pot      int64
		maxScore int
		winners  int
	)

	scores := make([]int, len(players))

	for i, p := range players {
		outcomes[i] = Outcome{UserID: p.UserID, Seat: p.Seat}
		scores[i] = outcome.HandScore(p.Hand)

		if p.Status != games.StatusBust && !dealerBust && scores[i] == dealerScore {
			outcomes[i].Push = true
			outcomes[i].Payout = p.Bet

			continue
		}

		pot += p.Bet

		if p.Status == games.StatusBust {
			continue
		}

		if dealerBust || scores[i] > dealerScore {
			if scores[i] > maxScore {
				maxScore = scores[i]
				winners = 0
			}

			if scores[i] == maxScore {
				winners++
			}
		}
	}

	if winners == 0 {
		return outcomes
	}

	share := pot / int64(winners)
	remainder := pot - share*int64(winners)

	for i := range players {
		if outcomes[i].Push || players[i].Status == games.StatusBust {
			continue
		}

		if (dealerBust || scores[i] > dealerScore) && scores[i] == maxScore {
			outcomes[i].Won = true
			outcomes[i].Payout = share + remainder

			remainder = 0
		}
	}

	return outcomes
}
