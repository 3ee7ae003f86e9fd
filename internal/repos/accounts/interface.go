package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrInsufficientFunds = errors.New("insufficient funds")
var ErrAccountNotFound = errors.New("account not found")

type Account struct {
	ID           int64
	Balance      int64
	TotalWagered int64
	TotalProfits int64
	Level        int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Accounts interface {
	Exists(tx *sql.Tx, userID int64) error
	Get(ctx context.Context, userID int64) (*Account, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
	LockAndGetBalance(tx *sql.Tx, userID int64) (int64, error)
	Credit(tx *sql.Tx, userID int64, amount int64) error
	Debit(tx *sql.Tx, userID int64, amount int64) error
	AddWagered(tx *sql.Tx, userID int64, amount int64) error
	AddProfit(tx *sql.Tx, userID int64, amount int64) error
	Ensure(ctx context.Context, userID int64) error
}
