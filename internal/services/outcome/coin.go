package outcome

const (
	SideHeads = "heads"
	SideTails = "tails"
)

// FlipCoin returns one fair bit. The coin is never biased; any house take
// has to come from payout fees, not from the odds.
func FlipCoin(src Source) string {
	if src.Intn(2) == 0 {
		return SideHeads
	}

	return SideTails
}
