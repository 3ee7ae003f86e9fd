package outcome

import (
	"math"
	"testing"
)

// seqSource replays a fixed sequence of draws, reducing each value
// modulo n so the sequence never panics.
type seqSource struct {
	vals []int
	i    int
}

func (s *seqSource) Intn(n int) int {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v % n
}

// lcgSource is a tiny deterministic PRNG for distribution tests.
type lcgSource struct{ state uint64 }

func (s *lcgSource) Intn(n int) int {
	s.state = s.state*6364136223846793005 + 1442695040888963407
	return int((s.state >> 33) % uint64(n))
}

func TestFlipCoin(t *testing.T) {
	t.Parallel()

	if got := FlipCoin(&seqSource{vals: []int{0}}); got != SideHeads {
		t.Fatalf("draw 0: want %s, got %s", SideHeads, got)
	}
	if got := FlipCoin(&seqSource{vals: []int{1}}); got != SideTails {
		t.Fatalf("draw 1: want %s, got %s", SideTails, got)
	}
}

func TestSlotColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		slot int
		want string
	}{
		{0, ColorGreen},
		{1, ColorRed},
		{7, ColorRed},
		{8, ColorBlack},
		{14, ColorBlack},
	}

	for _, tt := range tests {
		if got := SlotColor(tt.slot); got != tt.want {
			t.Fatalf("slot %d: want %s, got %s", tt.slot, tt.want, got)
		}
	}
}

func TestSpinWheel_Distribution(t *testing.T) {
	t.Parallel()

	const draws = 15_000

	src := &lcgSource{state: 42}
	counts := map[string]int{}

	for range draws {
		_, color := SpinWheel(src)
		counts[color]++
	}

	// Expected: green 1/15, red 7/15, black 7/15. Allow 20% relative
	// tolerance; with 15k draws that is far beyond normal deviation.
	check := func(color string, p float64) {
		want := p * draws
		got := float64(counts[color])
		if math.Abs(got-want) > want*0.20 {
			t.Fatalf("%s: want about %.0f, got %.0f", color, want, got)
		}
	}

	check(ColorGreen, 1.0/15)
	check(ColorRed, 7.0/15)
	check(ColorBlack, 7.0/15)
}

func TestHandScore(t *testing.T) {
	t.Parallel()

	card := func(rank string) Card { return Card{Rank: rank, Suit: "S"} }

	tests := []struct {
		name string
		hand []Card
		want int
	}{
		{"empty", nil, 0},
		{"simple", []Card{card("2"), card("9")}, 11},
		{"faces_count_ten", []Card{card("J"), card("Q"), card("K")}, 30},
		{"soft_ace_high", []Card{card("A"), card("6")}, 17},
		{"blackjack", []Card{card("A"), card("K")}, 21},
		{"ace_reduces_once", []Card{card("A"), card("9"), card("5")}, 15},
		{"two_aces_one_reduced", []Card{card("A"), card("A")}, 12},
		{"two_aces_both_reduced", []Card{card("A"), card("A"), card("K")}, 12},
		{"bust_no_ace_left", []Card{card("K"), card("Q"), card("5")}, 25},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := HandScore(tt.hand)
			if got != tt.want {
				t.Fatalf("want %d, got %d", tt.want, got)
			}

			// Scoring reads the hand, never mutates it.
			if again := HandScore(tt.hand); again != got {
				t.Fatalf("second score differs: %d then %d", got, again)
			}
		})
	}
}

func TestWeightedPicker(t *testing.T) {
	t.Parallel()

	t.Run("deterministic_boundaries", func(t *testing.T) {
		t.Parallel()

		p := NewWeightedPicker([]int{5, 3, 2})
		if p.Total() != 10 {
			t.Fatalf("total: want 10, got %d", p.Total())
		}

		tests := []struct {
			draw int
			want int
		}{
			{0, 0}, {4, 0},
			{5, 1}, {7, 1},
			{8, 2}, {9, 2},
		}

		for _, tt := range tests {
			got := p.Pick(&seqSource{vals: []int{tt.draw}})
			if got != tt.want {
				t.Fatalf("draw %d: want index %d, got %d", tt.draw, tt.want, got)
			}
		}
	})

	t.Run("zero_weights_skipped", func(t *testing.T) {
		t.Parallel()

		p := NewWeightedPicker([]int{0, 1, 0})
		for draw := range 1 {
			if got := p.Pick(&seqSource{vals: []int{draw}}); got != 1 {
				t.Fatalf("draw %d: want index 1, got %d", draw, got)
			}
		}
	})

	t.Run("no_positive_weight", func(t *testing.T) {
		t.Parallel()

		if p := NewWeightedPicker([]int{0, 0}); p != nil {
			t.Fatal("want nil picker for all-zero weights")
		}
	})

	t.Run("distribution", func(t *testing.T) {
		t.Parallel()

		const draws = 20_000

		p := NewWeightedPicker([]int{40, 25, 15, 10, 6, 3, 1})
		src := &lcgSource{state: 7}
		counts := make([]int, 7)

		for range draws {
			counts[p.Pick(src)]++
		}

		total := float64(p.Total())
		for i, w := range []int{40, 25, 15, 10, 6, 3, 1} {
			want := float64(w) / total * draws
			got := float64(counts[i])
			// Loose band; the rarest tier still expects ~200 hits.
			if math.Abs(got-want) > want*0.35 {
				t.Fatalf("index %d: want about %.0f, got %.0f", i, want, got)
			}
		}
	})
}

func TestCrashPoint(t *testing.T) {
	t.Parallel()

	t.Run("floor_is_one_x", func(t *testing.T) {
		t.Parallel()

		// The largest draw gives the lowest multiplier, clamped to 1.00x.
		src := &seqSource{vals: []int{999_999}}
		if got := CrashPoint(src); got != 100 {
			t.Fatalf("want floor 100, got %d", got)
		}
	})

	t.Run("never_below_floor", func(t *testing.T) {
		t.Parallel()

		src := &lcgSource{state: 99}
		for range 10_000 {
			if got := CrashPoint(src); got < 100 {
				t.Fatalf("crash point %d below 1.00x", got)
			}
		}
	})

	t.Run("small_draws_give_large_multipliers", func(t *testing.T) {
		t.Parallel()

		low := CrashPoint(&seqSource{vals: []int{1}})
		high := CrashPoint(&seqSource{vals: []int{500_000}})
		if low <= high {
			t.Fatalf("want inverse relation, got low-draw=%d high-draw=%d", low, high)
		}
	})
}

func TestPullTrigger(t *testing.T) {
	t.Parallel()

	// One chamber left is always fatal.
	if !PullTrigger(&seqSource{vals: []int{0}}, 1) {
		t.Fatal("single chamber must fire")
	}

	// With six chambers only draw 0 fires.
	if !PullTrigger(&seqSource{vals: []int{0}}, 6) {
		t.Fatal("draw 0 of 6 must fire")
	}
	if PullTrigger(&seqSource{vals: []int{3}}, 6) {
		t.Fatal("draw 3 of 6 must not fire")
	}
}

func TestDrawCard_ValidRanks(t *testing.T) {
	t.Parallel()

	src := &lcgSource{state: 11}
	for range 1_000 {
		c := DrawCard(src)
		v := rankValue(c.Rank)
		if v < 2 || v > 11 {
			t.Fatalf("rank %q has value %d outside [2,11]", c.Rank, v)
		}
	}
}
