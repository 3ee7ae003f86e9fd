package giveaways

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

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

func entry(userID int64, tickets int) games.GiveawayEntry {
	return games.GiveawayEntry{UserID: userID, Tickets: tickets}
}

func TestDrawWinner(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries []games.GiveawayEntry
		draw    int
		want    int64
	}{
		{
			name:    "single_entry",
			entries: []games.GiveawayEntry{entry(7, 1)},
			draw:    0,
			want:    7,
		},
		{
			// Cumulative tickets are [1, 4]; draw 0 hits the first
			// entry, draws 1 through 3 the second.
			name:    "weighted_low_draw",
			entries: []games.GiveawayEntry{entry(1, 1), entry(2, 3)},
			draw:    0,
			want:    1,
		},
		{
			name:    "weighted_high_draw",
			entries: []games.GiveawayEntry{entry(1, 1), entry(2, 3)},
			draw:    3,
			want:    2,
		},
		{
			name:    "zero_tickets_falls_back_to_first",
			entries: []games.GiveawayEntry{entry(1, 0), entry(2, 0)},
			draw:    5,
			want:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := DrawWinner(fixedSource{v: tt.draw}, tt.entries); got != tt.want {
				t.Fatalf("DrawWinner = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCreate_EscrowsPrize(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 1000)

	svc := New(db, ledgersvc.New(db), fixedSource{v: 0}, time.Hour)
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, 600, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if bal := pgtestutil.Balance(t, db, 1); bal != 400 {
		t.Fatalf("balance after escrow = %d, want 400", bal)
	}

	got, err := svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != games.StatusActive || got.PrizeAmount != 600 {
		t.Fatalf("giveaway = %+v, want active with prize 600", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 1000)

	svc := New(db, ledgersvc.New(db), fixedSource{v: 0}, time.Hour)
	ctx := context.Background()

	if _, err := svc.Create(ctx, 1, 0, time.Now().Add(time.Hour)); !errors.Is(err, ErrBadAmount) {
		t.Fatalf("zero prize err = %v, want ErrBadAmount", err)
	}
	if _, err := svc.Create(ctx, 1, 100, time.Now().Add(-time.Minute)); !errors.Is(err, ErrBadDeadline) {
		t.Fatalf("past deadline err = %v, want ErrBadDeadline", err)
	}

	// Escrow exceeding the balance rolls the whole create back.
	_, err := svc.Create(ctx, 1, 5000, time.Now().Add(time.Hour))
	if err == nil {
		t.Fatal("create beyond balance succeeded")
	}
	if bal := pgtestutil.Balance(t, db, 1); bal != 1000 {
		t.Fatalf("balance after failed create = %d, want 1000", bal)
	}
}

func TestJoin_Rules(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 1000)
	pgtestutil.SeedAccount(t, db, 2, 0)
	pgtestutil.SeedAccount(t, db, 3, 0)

	svc := New(db, ledgersvc.New(db), fixedSource{v: 0}, time.Hour)
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, 500, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Join(ctx, 1, g.ID); !errors.Is(err, ErrOwnGiveaway) {
		t.Fatalf("self join err = %v, want ErrOwnGiveaway", err)
	}

	if err := svc.Join(ctx, 2, g.ID); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := svc.Join(ctx, 2, g.ID); !errors.Is(err, games.ErrAlreadyEntered) {
		t.Fatalf("repeat join err = %v, want ErrAlreadyEntered", err)
	}

	// Every entry weighs exactly one ticket; callers cannot buy weight.
	var tickets int

	err = db.QueryRow(`
		SELECT tickets FROM giveaway_entries WHERE giveaway_id = $1 AND user_id = $2
	`, g.ID, 2).Scan(&tickets)
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if tickets != 1 {
		t.Fatalf("entry tickets = %d, want 1", tickets)
	}

	backdateDeadline(t, db, g.ID)

	if err := svc.Join(ctx, 3, g.ID); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("late join err = %v, want ErrNotOpen", err)
	}
}

func TestSweepDue_PaysWinner(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 1000)
	pgtestutil.SeedAccount(t, db, 2, 0)

	svc := New(db, ledgersvc.New(db), fixedSource{v: 0}, time.Hour)
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, 500, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Join(ctx, 2, g.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	backdateDeadline(t, db, g.ID)

	settled, err := svc.SweepDue(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if settled != 1 {
		t.Fatalf("settled = %d, want 1", settled)
	}

	if bal := pgtestutil.Balance(t, db, 2); bal != 500 {
		t.Fatalf("winner balance = %d, want 500", bal)
	}

	got, err := svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != games.StatusCompleted {
		t.Fatalf("status = %q, want %q", got.Status, games.StatusCompleted)
	}
	if got.WinnerID == nil || *got.WinnerID != 2 {
		t.Fatalf("winner = %v, want 2", got.WinnerID)
	}

	// A second sweep finds nothing to draw.
	settled, err = svc.SweepDue(ctx)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if settled != 0 {
		t.Fatalf("second sweep settled = %d, want 0", settled)
	}
}

func TestSweepDue_NoEntriesRefundsCreator(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 1000)

	svc := New(db, ledgersvc.New(db), fixedSource{v: 0}, time.Hour)
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, 700, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	backdateDeadline(t, db, g.ID)

	settled, err := svc.SweepDue(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if settled != 1 {
		t.Fatalf("settled = %d, want 1", settled)
	}

	if bal := pgtestutil.Balance(t, db, 1); bal != 1000 {
		t.Fatalf("refunded balance = %d, want 1000", bal)
	}
}

func TestSweepCompleted_PurgesAfterGrace(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	pgtestutil.SeedAccount(t, db, 1, 1000)
	pgtestutil.SeedAccount(t, db, 2, 0)

	svc := New(db, ledgersvc.New(db), fixedSource{v: 0}, time.Hour)
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, 500, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Join(ctx, 2, g.ID); err != nil {
		t.Fatalf("join: %v", err)
	}

	backdateDeadline(t, db, g.ID)

	if _, err := svc.SweepDue(ctx); err != nil {
		t.Fatalf("sweep due: %v", err)
	}

	// Inside the grace period nothing is purged.
	purged, err := svc.SweepCompleted(ctx)
	if err != nil {
		t.Fatalf("sweep completed: %v", err)
	}
	if purged != 0 {
		t.Fatalf("purged = %d, want 0", purged)
	}

	_, err = db.Exec(`UPDATE giveaways SET completed_at = NOW() - INTERVAL '2 hours' WHERE id = $1`, g.ID)
	if err != nil {
		t.Fatalf("backdate completion: %v", err)
	}

	purged, err = svc.SweepCompleted(ctx)
	if err != nil {
		t.Fatalf("sweep completed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("purged = %d, want 1", purged)
	}

	if _, err := svc.Get(ctx, g.ID); !errors.Is(err, games.ErrGameNotFound) {
		t.Fatalf("get after purge err = %v, want ErrGameNotFound", err)
	}
}

func backdateDeadline(t *testing.T, db *sql.DB, id uuid.UUID) {
	t.Helper()

	_, err := db.Exec(`UPDATE giveaways SET ends_at = NOW() - INTERVAL '1 minute' WHERE id = $1`, id)
	if err != nil {
		t.Fatalf("backdate deadline: %v", err)
	}
}
