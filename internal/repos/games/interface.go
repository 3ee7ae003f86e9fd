// Package games declares the session rows and repository contracts for
// every wagering game. All status transitions are conditional updates:
// an implementation must report ErrStateConflict when the expected status
// no longer matches, and callers must treat that as "another request
// already progressed this session", not as a retryable fault.
package games

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/callzzzz333/mm2-arena/internal/services/outcome"
)

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrStateConflict  = errors.New("game state conflict")
	ErrAlreadyEntered = errors.New("already entered")
)

const (
	StatusWaiting    = "waiting"
	StatusCompleted  = "completed"
	StatusExpired    = "expired"
	StatusActive     = "active"
	StatusFlying     = "flying"
	StatusCrashed    = "crashed"
	StatusInProgress = "in_progress"

	// Per-player blackjack states.
	StatusPlaying  = "playing"
	StatusStanding = "standing"
	StatusBust     = "bust"

	// Chamber game terminal states.
	StatusCashed = "cashed"
	StatusDead   = "dead"
)

// StakedItem is a snapshot of one inventory line at stake time. Value is
// the per-unit item value in cents when the stake was taken; settlement
// pays out against the snapshot, not against live prices.
type StakedItem struct {
	ItemID   int64  `json:"item_id"`
	Name     string `json:"name"`
	Value    int64  `json:"value"`
	Quantity int    `json:"quantity"`
}

// StakeValue sums a stake snapshot.
func StakeValue(stake []StakedItem) int64 {
	var total int64
	for _, s := range stake {
		total += s.Value * int64(s.Quantity)
	}

	return total
}

// --- Coinflip ---

type CoinflipGame struct {
	ID           uuid.UUID
	CreatorID    int64
	CreatorSide  string
	CreatorStake []StakedItem
	StakeValue   int64
	Status       string
	JoinerID     *int64
	JoinerStake  []StakedItem
	ResultSide   *string
	WinnerID     *int64
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

type Coinflips interface {
	Create(tx *sql.Tx, g *CoinflipGame) error
	Get(ctx context.Context, id uuid.UUID) (*CoinflipGame, error)
	// SettleJoin is the claiming write of the join path: it moves the game
	// waiting -> completed and records the result in one statement.
	SettleJoin(tx *sql.Tx, id uuid.UUID, joinerID int64, joinerStake []StakedItem, resultSide string, winnerID int64) error
	ClaimExpired(tx *sql.Tx, id uuid.UUID) error
	ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]CoinflipGame, error)
	Delete(tx *sql.Tx, id uuid.UUID) error
}

// --- Roulette ---

type RouletteGame struct {
	ID           uuid.UUID
	Status       string
	ResultColor  *string
	ResultNumber *int
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

type RouletteBet struct {
	ID     int64
	GameID uuid.UUID
	UserID int64
	Color  string
	Amount int64
	Payout int64
	Won    *bool
}

type Roulettes interface {
	Create(ctx context.Context, g *RouletteGame) error
	Get(ctx context.Context, id uuid.UUID) (*RouletteGame, error)
	InsertBet(tx *sql.Tx, b *RouletteBet) error
	ListBets(tx *sql.Tx, gameID uuid.UUID) ([]RouletteBet, error)
	SettleSpin(tx *sql.Tx, id uuid.UUID, color string, number int) error
	SetBetOutcome(tx *sql.Tx, betID int64, payout int64, won bool) error
}

// --- Crash ---

type CrashGame struct {
	ID          uuid.UUID
	Status      string
	CrashPoint  *int64 // multiplier in hundredths
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type CrashBet struct {
	ID      int64
	GameID  uuid.UUID
	UserID  int64
	Amount  int64
	Cashout *int64 // multiplier in hundredths
	Payout  int64
	Won     *bool
}

type Crashes interface {
	Create(ctx context.Context, g *CrashGame) error
	Get(ctx context.Context, id uuid.UUID) (*CrashGame, error)
	InsertBet(tx *sql.Tx, b *CrashBet) error
	ListBets(tx *sql.Tx, gameID uuid.UUID) ([]CrashBet, error)
	ClaimFlying(tx *sql.Tx, id uuid.UUID) error
	SettleCrashed(tx *sql.Tx, id uuid.UUID, crashPoint int64) error
	// RecordCashout succeeds at most once per bet and only while the game
	// is flying.
	RecordCashout(tx *sql.Tx, gameID uuid.UUID, userID int64, multiplier int64) error
	SetBetOutcome(tx *sql.Tx, betID int64, payout int64, won bool) error
	ListIdleWaitingBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	ClaimExpired(tx *sql.Tx, id uuid.UUID) error
	Delete(tx *sql.Tx, id uuid.UUID) error
}

// --- Blackjack ---

type BlackjackTable struct {
	ID          uuid.UUID
	Status      string
	DealerHand  []outcome.Card
	TurnSeat    int
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type BlackjackPlayer struct {
	TableID uuid.UUID
	UserID  int64
	Seat    int
	Hand    []outcome.Card
	Status  string
	Bet     int64
	Payout  int64
	Won     *bool
}

type Blackjacks interface {
	CreateTable(ctx context.Context, t *BlackjackTable) error
	GetTable(ctx context.Context, id uuid.UUID) (*BlackjackTable, error)
	// LockTable serializes all turn-based writes on one table.
	LockTable(tx *sql.Tx, id uuid.UUID) (*BlackjackTable, error)
	InsertPlayer(tx *sql.Tx, p *BlackjackPlayer) error
	ListPlayers(tx *sql.Tx, tableID uuid.UUID) ([]BlackjackPlayer, error)
	ClaimInProgress(tx *sql.Tx, id uuid.UUID) error
	ClaimCompleted(tx *sql.Tx, id uuid.UUID) error
	SetTurn(tx *sql.Tx, id uuid.UUID, seat int) error
	SetDealerHand(tx *sql.Tx, id uuid.UUID, hand []outcome.Card) error
	SetPlayerHand(tx *sql.Tx, tableID uuid.UUID, userID int64, hand []outcome.Card, status string) error
	SetPlayerOutcome(tx *sql.Tx, tableID uuid.UUID, userID int64, payout int64, won bool) error
}

// --- Case battles ---

type CaseBattle struct {
	ID            uuid.UUID
	Status        string
	MaxPlayers    int
	Rounds        int
	CasesPerRound int
	EntryCost     int64
	CurrentRound  int
	WinnerID      *int64
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

type CaseBattleParticipant struct {
	BattleID   uuid.UUID
	UserID     int64
	Position   int
	TotalValue int64
	Drops      []StakedItem
}

type CaseBattles interface {
	Create(tx *sql.Tx, b *CaseBattle) error
	Get(ctx context.Context, id uuid.UUID) (*CaseBattle, error)
	InsertParticipant(tx *sql.Tx, p *CaseBattleParticipant) error
	ListParticipants(tx *sql.Tx, battleID uuid.UUID) ([]CaseBattleParticipant, error)
	ClaimActive(tx *sql.Tx, id uuid.UUID) error
	// AdvanceRound moves current_round from round-1 to round; a conflict
	// means a concurrent call already played this round.
	AdvanceRound(tx *sql.Tx, id uuid.UUID, round int) error
	UpdateParticipant(tx *sql.Tx, battleID uuid.UUID, userID int64, totalValue int64, drops []StakedItem) error
	SettleWinner(tx *sql.Tx, id uuid.UUID, winnerID int64) error
	ClaimExpired(tx *sql.Tx, id uuid.UUID) error
	ListWaitingBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
}

// --- Chamber ---

type ChamberGame struct {
	ID           uuid.UUID
	UserID       int64
	Bet          int64
	ChambersLeft int
	Multiplier   int64 // hundredths
	Status       string
	Payout       int64
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

type Chambers interface {
	Create(tx *sql.Tx, g *ChamberGame) error
	Lock(tx *sql.Tx, id uuid.UUID) (*ChamberGame, error)
	RecordPull(tx *sql.Tx, id uuid.UUID, chambersLeft int, multiplier int64) error
	SettleDead(tx *sql.Tx, id uuid.UUID) error
	SettleCashed(tx *sql.Tx, id uuid.UUID, payout int64) error
}

// --- Giveaways ---

type Giveaway struct {
	ID          uuid.UUID
	CreatorID   int64
	PrizeAmount int64
	Status      string
	EndsAt      time.Time
	WinnerID    *int64
	CreatedAt   time.Time
	CompletedAt *time.Time
}

type GiveawayEntry struct {
	GiveawayID uuid.UUID
	UserID     int64
	Tickets    int
}

type Giveaways interface {
	Create(tx *sql.Tx, g *Giveaway) error
	Get(ctx context.Context, id uuid.UUID) (*Giveaway, error)
	InsertEntry(ctx context.Context, e *GiveawayEntry) error
	ListEntries(tx *sql.Tx, giveawayID uuid.UUID) ([]GiveawayEntry, error)
	SettleWinner(tx *sql.Tx, id uuid.UUID, winnerID int64) error
	ListActiveEndedBefore(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	// Purge removes entries first, then the parent, to avoid dangling rows.
	DeleteEntries(tx *sql.Tx, giveawayID uuid.UUID) error
	Delete(tx *sql.Tx, id uuid.UUID) error
}

// --- Raffles ---

type Raffle struct {
	ID           uuid.UUID
	Name         string
	TicketPrice  int64
	MinItemValue int64
	Status       string
	CreatedAt    time.Time
}

type Raffles interface {
	Get(ctx context.Context, id uuid.UUID) (*Raffle, error)
	AddTickets(tx *sql.Tx, raffleID uuid.UUID, userID int64, tickets int64, totalValue int64) error
}
