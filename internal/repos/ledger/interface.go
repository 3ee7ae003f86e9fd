package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateEntry means an entry with the same idempotency key was already
// recorded, i.e. this settlement step has run before.
var ErrDuplicateEntry = errors.New("duplicate ledger entry")

// Entry is one append-only audit row. Amount is signed: negative for
// debits, positive for credits, zero for audit-only loss records.
type Entry struct {
	ID          int64
	Key         string
	UserID      int64
	Amount      int64
	Type        string
	GameType    string
	GameID      *uuid.UUID
	Description string
	CreatedAt   time.Time
}

const (
	TypeDeposit = "deposit"
	TypeBet     = "bet"
	TypeWin     = "win"
	TypeLoss    = "loss"
	TypePush    = "push"
	TypeRefund  = "refund"
	TypePrize   = "prize"
	TypeEscrow  = "escrow"
)

type Ledger interface {
	Insert(tx *sql.Tx, e Entry) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]Entry, error)
}
