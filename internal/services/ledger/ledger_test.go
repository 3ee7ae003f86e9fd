package ledger

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/callzzzz333/mm2-arena/internal/infra/pgtestutil"
	"github.com/callzzzz333/mm2-arena/internal/infra/pgutils"
	"github.com/callzzzz333/mm2-arena/internal/repos/accounts"
	ledgerrepo "github.com/callzzzz333/mm2-arena/internal/repos/ledger"
)

func apply(ctx context.Context, db *sql.DB, svc *Service, e ledgerrepo.Entry) error {
	return pgutils.WithTx(ctx, db, func(tx *sql.Tx) error {
		return svc.Apply(tx, e)
	})
}

func TestApply_DebitAndCredit(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 1000)

	svc := New(db)
	ctx := context.Background()

	err := apply(ctx, db, svc, ledgerrepo.Entry{
		Key: "test:debit", UserID: 1, Amount: -400, Type: ledgerrepo.TypeBet,
	})
	if err != nil {
		t.Fatalf("debit: %v", err)
	}

	if bal := pgtestutil.Balance(t, db, 1); bal != 600 {
		t.Fatalf("balance after debit = %d, want 600", bal)
	}

	err = apply(ctx, db, svc, ledgerrepo.Entry{
		Key: "test:credit", UserID: 1, Amount: 900, Type: ledgerrepo.TypeWin,
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}

	if bal := pgtestutil.Balance(t, db, 1); bal != 1500 {
		t.Fatalf("balance after credit = %d, want 1500", bal)
	}
}

func TestApply_DuplicateKey(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 1000)

	svc := New(db)
	ctx := context.Background()

	entry := ledgerrepo.Entry{
		Key: "test:once", UserID: 1, Amount: -500, Type: ledgerrepo.TypeBet,
	}

	if err := apply(ctx, db, svc, entry); err != nil {
		t.Fatalf("first apply: %v", err)
	}

	err := apply(ctx, db, svc, entry)
	if !errors.Is(err, ledgerrepo.ErrDuplicateEntry) {
		t.Fatalf("second apply err = %v, want ErrDuplicateEntry", err)
	}

	// The replay rolled back: only the first debit landed.
	if bal := pgtestutil.Balance(t, db, 1); bal != 500 {
		t.Fatalf("balance = %d, want 500", bal)
	}
}

func TestApply_InsufficientFunds_NoSideEffects(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 100)

	svc := New(db)
	ctx := context.Background()

	err := apply(ctx, db, svc, ledgerrepo.Entry{
		Key: "test:overdraw", UserID: 1, Amount: -500, Type: ledgerrepo.TypeBet,
	})
	if !errors.Is(err, accounts.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}

	if bal := pgtestutil.Balance(t, db, 1); bal != 100 {
		t.Fatalf("balance = %d, want 100", bal)
	}

	var n int
	if qerr := db.QueryRow(`SELECT COUNT(*) FROM ledger_entries`).Scan(&n); qerr != nil {
		t.Fatalf("count entries: %v", qerr)
	}
	if n != 0 {
		t.Fatalf("ledger rows after failed debit = %d, want 0", n)
	}
}

func TestApply_ZeroAmount_AuditOnly(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 100)

	svc := New(db)
	ctx := context.Background()

	err := apply(ctx, db, svc, ledgerrepo.Entry{
		Key: "test:loss", UserID: 1, Amount: 0, Type: ledgerrepo.TypeLoss,
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	if bal := pgtestutil.Balance(t, db, 1); bal != 100 {
		t.Fatalf("balance = %d, want 100", bal)
	}

	hist, err := svc.History(ctx, 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 1 || hist[0].Type != ledgerrepo.TypeLoss {
		t.Fatalf("history = %+v, want one loss entry", hist)
	}
}

func TestApply_Bookkeeping(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 1_000_000)

	svc := New(db)
	ctx := context.Background()

	err := apply(ctx, db, svc, ledgerrepo.Entry{
		Key: "test:bet", UserID: 1, Amount: -250_000, Type: ledgerrepo.TypeBet,
	})
	if err != nil {
		t.Fatalf("bet: %v", err)
	}

	err = apply(ctx, db, svc, ledgerrepo.Entry{
		Key: "test:win", UserID: 1, Amount: 600_000, Type: ledgerrepo.TypeWin,
	})
	if err != nil {
		t.Fatalf("win: %v", err)
	}

	err = apply(ctx, db, svc, ledgerrepo.Entry{
		Key: "test:refund", UserID: 1, Amount: 100, Type: ledgerrepo.TypeRefund,
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}

	a, err := svc.Account(ctx, 1)
	if err != nil {
		t.Fatalf("account: %v", err)
	}

	if a.TotalWagered != 250_000 {
		t.Fatalf("total wagered = %d, want 250000", a.TotalWagered)
	}
	if a.TotalProfits != 600_000 {
		t.Fatalf("total profits = %d, want 600000", a.TotalProfits)
	}
	// 250000 cents wagered at 100000 per level.
	if a.Level != 3 {
		t.Fatalf("level = %d, want 3", a.Level)
	}
}

func TestDeposit_Idempotent(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()

	svc := New(db)
	ctx := context.Background()

	if err := svc.Ensure(ctx, 42); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if err := svc.Deposit(ctx, 42, 5000, "deposit:abc"); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	err := svc.Deposit(ctx, 42, 5000, "deposit:abc")
	if !errors.Is(err, ledgerrepo.ErrDuplicateEntry) {
		t.Fatalf("replay err = %v, want ErrDuplicateEntry", err)
	}

	bal, err := svc.Balance(ctx, 42)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal != 5000 {
		t.Fatalf("balance = %d, want 5000", bal)
	}
}
