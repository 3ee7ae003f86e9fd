package coinflip

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/callzzzz333/mm2-arena/internal/infra/pgtestutil"
	"github.com/callzzzz333/mm2-arena/internal/repos/games"
	"github.com/callzzzz333/mm2-arena/internal/repos/inventory"
	pginventory "github.com/callzzzz333/mm2-arena/internal/repos/inventory/postgres"
	pgitems "github.com/callzzzz333/mm2-arena/internal/repos/items/postgres"
	ledgersvc "github.com/callzzzz333/mm2-arena/internal/services/ledger"
	"github.com/callzzzz333/mm2-arena/internal/services/pricing"
	"github.com/callzzzz333/mm2-arena/internal/services/stakes"
)

// fixedSource always draws the same value, reduced modulo the bound.
type fixedSource struct{ v int }

func (s fixedSource) Intn(n int) int { return s.v % n }

func TestWithinTolerance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		creatorValue int64
		joinerValue  int64
		pct          int64
		want         bool
	}{
		{name: "equal_values", creatorValue: 1000, joinerValue: 1000, pct: 10, want: true},
		{name: "lower_boundary_inside", creatorValue: 1000, joinerValue: 900, pct: 10, want: true},
		{name: "one_below_lower_boundary", creatorValue: 1000, joinerValue: 899, pct: 10, want: false},
		{name: "upper_boundary_inside", creatorValue: 1000, joinerValue: 1100, pct: 10, want: true},
		{name: "one_above_upper_boundary", creatorValue: 1000, joinerValue: 1101, pct: 10, want: false},
		{name: "zero_pct_exact_only", creatorValue: 500, joinerValue: 501, pct: 0, want: false},
		{name: "zero_pct_exact_match", creatorValue: 500, joinerValue: 500, pct: 0, want: true},
		{name: "odd_values_no_rounding_loss", creatorValue: 333, joinerValue: 300, pct: 10, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := WithinTolerance(tt.creatorValue, tt.joinerValue, tt.pct)
			if got != tt.want {
				t.Fatalf("WithinTolerance(%d, %d, %d) = %v, want %v",
					tt.creatorValue, tt.joinerValue, tt.pct, got, tt.want)
			}
		})
	}
}

func TestClampWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		window time.Duration
		want   time.Duration
	}{
		{name: "below_minimum", window: time.Second, want: time.Minute},
		{name: "at_minimum", window: time.Minute, want: time.Minute},
		{name: "in_range", window: 5 * time.Minute, want: 5 * time.Minute},
		{name: "at_maximum", window: 30 * time.Minute, want: 30 * time.Minute},
		{name: "above_maximum", window: 2 * time.Hour, want: 30 * time.Minute},
		{name: "zero", window: 0, want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ClampWindow(tt.window); got != tt.want {
				t.Fatalf("ClampWindow(%v) = %v, want %v", tt.window, got, tt.want)
			}
		})
	}
}

func newTestService(t *testing.T, db *sql.DB, src fixedSource) *Service {
	t.Helper()

	prices := pricing.NewCache(pgitems.New(db), time.Minute)
	mover := stakes.NewMover(pginventory.New(db), prices)

	return New(db, ledgersvc.New(db), mover, src, 10)
}

// auditEntries counts the game's zero-amount ledger records.
func auditEntries(t *testing.T, db *sql.DB, gameID string) int {
	t.Helper()

	var n int

	err := db.QueryRow(`
		SELECT COUNT(*) FROM ledger_entries WHERE game_type = 'coinflip' AND game_id = $1
	`, gameID).Scan(&n)
	if err != nil {
		t.Fatalf("count ledger entries: %v", err)
	}

	return n
}

func seedFlipFixtures(t *testing.T, db *sql.DB) {
	t.Helper()

	pgtestutil.SeedAccount(t, db, 1, 0)
	pgtestutil.SeedAccount(t, db, 2, 0)
	pgtestutil.SeedItem(t, db, 10, "Chroma Luger", "godly", 500)
	pgtestutil.SeedItem(t, db, 11, "Seer", "godly", 450)
	pgtestutil.SeedInventory(t, db, 1, 10, 2)
	pgtestutil.SeedInventory(t, db, 2, 11, 2)
}

func TestCreate_TakesStake(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	seedFlipFixtures(t, db)

	svc := newTestService(t, db, fixedSource{v: 0})
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, "heads", []stakes.Line{{ItemID: 10, Quantity: 1}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if g.Status != games.StatusWaiting {
		t.Fatalf("status = %q, want %q", g.Status, games.StatusWaiting)
	}
	if g.StakeValue != 500 {
		t.Fatalf("stake value = %d, want 500", g.StakeValue)
	}
	if qty := pgtestutil.Quantity(t, db, 1, 10); qty != 1 {
		t.Fatalf("creator inventory after stake = %d, want 1", qty)
	}

	// The item stake leaves a zero-amount audit record.
	if n := auditEntries(t, db, g.ID.String()); n != 1 {
		t.Fatalf("ledger entries after create = %d, want 1", n)
	}
}

func TestCreate_BadSide(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	seedFlipFixtures(t, db)

	svc := newTestService(t, db, fixedSource{v: 0})

	_, err := svc.Create(context.Background(), 1, "edge", []stakes.Line{{ItemID: 10, Quantity: 1}})
	if !errors.Is(err, ErrBadSide) {
		t.Fatalf("err = %v, want ErrBadSide", err)
	}
}

func TestCreate_InsufficientItems_NoGameRow(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	seedFlipFixtures(t, db)

	svc := newTestService(t, db, fixedSource{v: 0})

	_, err := svc.Create(context.Background(), 1, "heads", []stakes.Line{{ItemID: 10, Quantity: 5}})
	if err == nil {
		t.Fatal("expected error staking more than owned")
	}

	var n int
	if qerr := db.QueryRow(`SELECT COUNT(*) FROM coinflip_games`).Scan(&n); qerr != nil {
		t.Fatalf("count games: %v", qerr)
	}
	if n != 0 {
		t.Fatalf("game rows after failed create = %d, want 0", n)
	}
	if qty := pgtestutil.Quantity(t, db, 1, 10); qty != 2 {
		t.Fatalf("inventory after rollback = %d, want 2", qty)
	}
}

func TestJoin_CreatorWins(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	seedFlipFixtures(t, db)

	// Draw 0 lands heads, the creator's side.
	svc := newTestService(t, db, fixedSource{v: 0})
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, "heads", []stakes.Line{{ItemID: 10, Quantity: 1}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := svc.Join(ctx, 2, g.ID, []stakes.Line{{ItemID: 11, Quantity: 1}})
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if res.ResultSide != "heads" {
		t.Fatalf("result side = %q, want heads", res.ResultSide)
	}
	if res.WinnerID != 1 {
		t.Fatalf("winner = %d, want 1", res.WinnerID)
	}

	// Winner holds the remainder of their own items plus both stakes.
	if qty := pgtestutil.Quantity(t, db, 1, 10); qty != 2 {
		t.Fatalf("winner item 10 = %d, want 2", qty)
	}
	if qty := pgtestutil.Quantity(t, db, 1, 11); qty != 1 {
		t.Fatalf("winner item 11 = %d, want 1", qty)
	}
	if qty := pgtestutil.Quantity(t, db, 2, 11); qty != 1 {
		t.Fatalf("loser item 11 = %d, want 1", qty)
	}

	stored, err := svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != games.StatusCompleted {
		t.Fatalf("status = %q, want %q", stored.Status, games.StatusCompleted)
	}
	if stored.WinnerID == nil || *stored.WinnerID != 1 {
		t.Fatalf("stored winner = %v, want 1", stored.WinnerID)
	}

	// Both stakes plus the payout are audited: three zero-amount rows.
	if n := auditEntries(t, db, g.ID.String()); n != 3 {
		t.Fatalf("ledger entries after settle = %d, want 3", n)
	}
}

func TestJoin_JoinerWins(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	seedFlipFixtures(t, db)

	// Draw 1 lands tails against a heads creator.
	svc := newTestService(t, db, fixedSource{v: 1})
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, "heads", []stakes.Line{{ItemID: 10, Quantity: 1}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	res, err := svc.Join(ctx, 2, g.ID, []stakes.Line{{ItemID: 11, Quantity: 1}})
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if res.WinnerID != 2 {
		t.Fatalf("winner = %d, want 2", res.WinnerID)
	}
	if qty := pgtestutil.Quantity(t, db, 2, 10); qty != 1 {
		t.Fatalf("winner item 10 = %d, want 1", qty)
	}
	if qty := pgtestutil.Quantity(t, db, 2, 11); qty != 2 {
		t.Fatalf("winner item 11 = %d, want 2", qty)
	}
	if qty := pgtestutil.Quantity(t, db, 1, 10); qty != 1 {
		t.Fatalf("loser item 10 = %d, want 1", qty)
	}
}

func TestJoin_Replay_NoSecondPayout(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	seedFlipFixtures(t, db)
	pgtestutil.SeedAccount(t, db, 3, 0)
	pgtestutil.SeedInventory(t, db, 3, 11, 2)

	svc := newTestService(t, db, fixedSource{v: 0})
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, "heads", []stakes.Line{{ItemID: 10, Quantity: 1}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Join(ctx, 2, g.ID, []stakes.Line{{ItemID: 11, Quantity: 1}}); err != nil {
		t.Fatalf("first join: %v", err)
	}

	_, err = svc.Join(ctx, 3, g.ID, []stakes.Line{{ItemID: 11, Quantity: 1}})
	if !errors.Is(err, ErrNotJoinable) {
		t.Fatalf("second join err = %v, want ErrNotJoinable", err)
	}

	// The late joiner keeps everything.
	if qty := pgtestutil.Quantity(t, db, 3, 11); qty != 2 {
		t.Fatalf("late joiner item 11 = %d, want 2", qty)
	}
	// Winner is not paid twice.
	if qty := pgtestutil.Quantity(t, db, 1, 11); qty != 1 {
		t.Fatalf("winner item 11 = %d, want 1", qty)
	}
}

func TestJoin_SelfJoin(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	seedFlipFixtures(t, db)

	svc := newTestService(t, db, fixedSource{v: 0})
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, "heads", []stakes.Line{{ItemID: 10, Quantity: 1}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Join(ctx, 1, g.ID, []stakes.Line{{ItemID: 10, Quantity: 1}})
	if !errors.Is(err, ErrSelfJoin) {
		t.Fatalf("err = %v, want ErrSelfJoin", err)
	}
}

func TestJoin_OutOfTolerance(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	seedFlipFixtures(t, db)

	svc := newTestService(t, db, fixedSource{v: 0})
	ctx := context.Background()

	// Creator stakes 1000, joiner offers 450. The 10% band is [900, 1100].
	g, err := svc.Create(ctx, 1, "heads", []stakes.Line{{ItemID: 10, Quantity: 2}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Join(ctx, 2, g.ID, []stakes.Line{{ItemID: 11, Quantity: 1}})
	if !errors.Is(err, ErrOutOfTolerance) {
		t.Fatalf("err = %v, want ErrOutOfTolerance", err)
	}

	// Rejected before any write: joiner's items untouched.
	if qty := pgtestutil.Quantity(t, db, 2, 11); qty != 2 {
		t.Fatalf("joiner item 11 = %d, want 2", qty)
	}
}

func TestJoin_ShortfallReportedBeforeTolerance(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	seedFlipFixtures(t, db)

	svc := newTestService(t, db, fixedSource{v: 0})
	ctx := context.Background()

	// Creator stakes 1000. The joiner offers one item 10 (500, outside
	// the band) and owns none of them; the shortfall is the error.
	g, err := svc.Create(ctx, 1, "heads", []stakes.Line{{ItemID: 10, Quantity: 2}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = svc.Join(ctx, 2, g.ID, []stakes.Line{{ItemID: 10, Quantity: 1}})
	if !errors.Is(err, inventory.ErrInsufficientItems) {
		t.Fatalf("err = %v, want ErrInsufficientItems", err)
	}
}

func TestSweepExpired_RefundsAndDeletes(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	seedFlipFixtures(t, db)

	svc := newTestService(t, db, fixedSource{v: 0})
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, "heads", []stakes.Line{{ItemID: 10, Quantity: 2}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = db.Exec(`UPDATE coinflip_games SET created_at = NOW() - INTERVAL '2 hours' WHERE id = $1`, g.ID)
	if err != nil {
		t.Fatalf("backdate game: %v", err)
	}

	swept, err := svc.SweepExpired(ctx, 30*time.Minute)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	if qty := pgtestutil.Quantity(t, db, 1, 10); qty != 2 {
		t.Fatalf("refunded inventory = %d, want 2", qty)
	}

	_, err = svc.Get(ctx, g.ID)
	if !errors.Is(err, games.ErrGameNotFound) {
		t.Fatalf("get after sweep err = %v, want ErrGameNotFound", err)
	}

	// The audit trail outlives the deleted row: stake plus refund.
	if n := auditEntries(t, db, g.ID.String()); n != 2 {
		t.Fatalf("ledger entries after sweep = %d, want 2", n)
	}
}

func TestSweepExpired_LeavesFreshGames(t *testing.T) {
	t.Parallel()

	db, cleanup := pgtestutil.NewTestDB(t)
	defer cleanup()
	seedFlipFixtures(t, db)

	svc := newTestService(t, db, fixedSource{v: 0})
	ctx := context.Background()

	g, err := svc.Create(ctx, 1, "heads", []stakes.Line{{ItemID: 10, Quantity: 1}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	swept, err := svc.SweepExpired(ctx, 30*time.Minute)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 0 {
		t.Fatalf("swept = %d, want 0", swept)
	}

	stored, err := svc.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != games.StatusWaiting {
		t.Fatalf("status = %q, want %q", stored.Status, games.StatusWaiting)
	}
}
