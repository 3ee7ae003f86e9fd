package chamber

import (
	"context"
	"errors"
	"testing"

	"github.com/callzzzz333/mm2-arena/internal/infra/pgtestutil"
	"github.com/callzzzz333/mm2-arena/internal/repos/games"
	ledgersvc "github.com/callzzzz333/mm2-arena/internal/services/ledger"
)

// fixedSource always returns the same draw reduced modulo the bound.
type fixedSource struct {
	v int
}

func (s fixedSource) Intn(n int) int {
	return s.v % n
}

func TestChamber_SurviveAndCashout(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 1000)

	svc := New(db, ledgersvc.New(db), fixedSource{v: 1}, 6)
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, 400)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if bal := pgtestutil.Balance(t, db, 1); bal != 600 {
		t.Fatalf("balance after bet = %d, want 600", bal)
	}

	for pull := 1; pull <= 2; pull++ {
		g, err = svc.Pull(ctx, 1, g.ID)
		if err != nil {
			t.Fatalf("pull %d: %v", pull, err)
		}

		if g.Status != games.StatusPlaying {
			t.Fatalf("pull %d status = %q, want %q", pull, g.Status, games.StatusPlaying)
		}
		if g.ChambersLeft != 6-pull {
			t.Fatalf("pull %d chambers = %d, want %d", pull, g.ChambersLeft, 6-pull)
		}
		if want := int64(100 + 50*pull); g.Multiplier != want {
			t.Fatalf("pull %d multiplier = %d, want %d", pull, g.Multiplier, want)
		}
	}

	g, err = svc.Cashout(ctx, 1, g.ID)
	if err != nil {
		t.Fatalf("cashout: %v", err)
	}
	if g.Status != games.StatusCashed {
		t.Fatalf("status = %q, want %q", g.Status, games.StatusCashed)
	}
	if g.Payout != 800 {
		t.Fatalf("payout = %d, want 800", g.Payout)
	}
	if bal := pgtestutil.Balance(t, db, 1); bal != 1400 {
		t.Fatalf("balance after cashout = %d, want 1400", bal)
	}

	// The game is settled; no more pulls or cashouts.
	_, err = svc.Pull(ctx, 1, g.ID)
	if !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("pull after cashout err = %v, want ErrNotPlaying", err)
	}
	_, err = svc.Cashout(ctx, 1, g.ID)
	if !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("double cashout err = %v, want ErrNotPlaying", err)
	}
}

func TestChamber_FatalPull(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 1000)

	svc := New(db, ledgersvc.New(db), fixedSource{v: 0}, 6)
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, 400)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	g, err = svc.Pull(ctx, 1, g.ID)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if g.Status != games.StatusDead {
		t.Fatalf("status = %q, want %q", g.Status, games.StatusDead)
	}
	if bal := pgtestutil.Balance(t, db, 1); bal != 600 {
		t.Fatalf("balance after loss = %d, want 600", bal)
	}

	_, err = svc.Cashout(ctx, 1, g.ID)
	if !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("cashout after death err = %v, want ErrNotPlaying", err)
	}
}

func TestChamber_LastChamberAlwaysFatal(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 1000)

	// Any draw reduces to zero with one chamber left.
	svc := New(db, ledgersvc.New(db), fixedSource{v: 5}, 1)
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	g, err = svc.Pull(ctx, 1, g.ID)
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if g.Status != games.StatusDead {
		t.Fatalf("status = %q, want %q", g.Status, games.StatusDead)
	}
}

func TestChamber_OwnershipAndValidation(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 1000)

	svc := New(db, ledgersvc.New(db), fixedSource{v: 1}, 6)
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, 0); !errors.Is(err, ErrBadAmount) {
		t.Fatalf("zero bet err = %v, want ErrBadAmount", err)
	}
	if _, err := svc.Create(ctx, 1, -50); !errors.Is(err, ErrBadAmount) {
		t.Fatalf("negative bet err = %v, want ErrBadAmount", err)
	}

	g, err := svc.Create(ctx, 1, 100)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Pull(ctx, 2, g.ID)
	if !errors.Is(err, ErrNotYours) {
		t.Fatalf("foreign pull err = %v, want ErrNotYours", err)
	}
	_, err = svc.Cashout(ctx, 2, g.ID)
	if !errors.Is(err, ErrNotYours) {
		t.Fatalf("foreign cashout err = %v, want ErrNotYours", err)
	}
}
