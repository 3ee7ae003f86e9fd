// Package ledger posts balance-affecting entries. Every mutation of an
// account balance goes through Apply so the balance change and its audit
// row always commit together.
package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/callzzzz333/mm2-arena/internal/infra/pgutils"
	"github.com/callzzzz333/mm2-arena/internal/repos/accounts"
	pgaccounts "github.com/callzzzz333/mm2-arena/internal/repos/accounts/postgres"
	ledgerrepo "github.com/callzzzz333/mm2-arena/internal/repos/ledger"
	pgledger "github.com/callzzzz333/mm2-arena/internal/repos/ledger/postgres"
)

type Service struct {
	db       *sql.DB
	accounts accounts.Accounts
	entries  ledgerrepo.Ledger
}

func New(db *sql.DB) *Service {
	return &Service{
		db:       db,
		accounts: pgaccounts.New(db),
		entries:  pgledger.New(db),
	}
}

// Apply posts one entry inside the caller's transaction:
//
// 1) Ensure the account exists.
// 2) Lock the account row (FOR UPDATE).
// 3) Apply the signed amount; debits pre-check the locked balance.
// 4) Insert the audit row (unique key violation -> ErrDuplicateEntry,
//    meaning this settlement step already ran).
//
// Zero-amount entries skip the balance write and only leave the audit row;
// losses are recorded that way.
func (s *Service) Apply(tx *sql.Tx, e ledgerrepo.Entry) error {
	err := s.accounts.Exists(tx, e.UserID)
	if err != nil {
		return fmt.Errorf("check account exists: %w", err)
	}

	balance, err := s.accounts.LockAndGetBalance(tx, e.UserID)
	if err != nil {
		return fmt.Errorf("lock and get balance: %w", err)
	}

	switch {
	case e.Amount > 0:
		err = s.accounts.Credit(tx, e.UserID, e.Amount)
		if err != nil {
			return fmt.Errorf("credit balance: %w", err)
		}

	case e.Amount < 0:
		debit := -e.Amount

		// pre-check against locked balance
		if balance < debit {
			return fmt.Errorf("pre-check debit: %w", accounts.ErrInsufficientFunds)
		}

		err = s.accounts.Debit(tx, e.UserID, debit)
		if err != nil {
			return fmt.Errorf("debit balance: %w", err)
		}
	}

	err = s.entries.Insert(tx, e)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	err = s.bookkeep(tx, e)
	if err != nil {
		return err
	}

	return nil
}

// bookkeep maintains the wager and profit counters that drive account
// levels.
func (s *Service) bookkeep(tx *sql.Tx, e ledgerrepo.Entry) error {
	switch e.Type {
	case ledgerrepo.TypeBet:
		err := s.accounts.AddWagered(tx, e.UserID, -e.Amount)
		if err != nil {
			return fmt.Errorf("add wagered: %w", err)
		}
	case ledgerrepo.TypeWin, ledgerrepo.TypePrize:
		err := s.accounts.AddProfit(tx, e.UserID, e.Amount)
		if err != nil {
			return fmt.Errorf("add profit: %w", err)
		}
	}

	return nil
}

// Deposit credits an account outside any game, e.g. from the payment
// bridge. The key makes retries safe.
func (s *Service) Deposit(ctx context.Context, userID int64, amount int64, key string) error {
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive")
	}

	err := pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.Apply(tx, ledgerrepo.Entry{
			Key:         key,
			UserID:      userID,
			Amount:      amount,
			Type:        ledgerrepo.TypeDeposit,
			Description: "account deposit",
		})
	})
	if err != nil {
		return fmt.Errorf("deposit: %w", err)
	}

	return nil
}

// Balance returns the current balance (no locks; suitable for reads).
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	balance, err := s.accounts.GetBalance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}

// Account returns the full account row.
func (s *Service) Account(ctx context.Context, userID int64) (*accounts.Account, error) {
	a, err := s.accounts.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	return a, nil
}

// Ensure creates the account if the identity provider has not mapped it yet.
func (s *Service) Ensure(ctx context.Context, userID int64) error {
	return s.accounts.Ensure(ctx, userID)
}

// History returns the most recent ledger entries for a user.
func (s *Service) History(ctx context.Context, userID int64, limit int) ([]ledgerrepo.Entry, error) {
	return s.entries.ListByUser(ctx, userID, limit)
}
