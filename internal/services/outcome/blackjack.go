package outcome

// Card is one playing card. The deck model is infinite: cards are drawn
// independently with replacement from a 13-rank, 4-suit distribution, not
// from a depleting shoe.
type Card struct {
	Rank string `json:"rank"`
	Suit string `json:"suit"`
}

var ranks = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

var suits = []string{"S", "H", "D", "C"}

// DealerStandScore is the score at which the dealer stops hitting.
const DealerStandScore = 17

// DrawCard deals one card.
func DrawCard(src Source) Card {
	return Card{
		Rank: ranks[src.Intn(len(ranks))],
		Suit: suits[src.Intn(len(suits))],
	}
}

// HandScore values a hand: 2-10 at face value, J/Q/K at 10, aces at 11
// softened to 1 one at a time while the total exceeds 21. Pure function of
// the hand, so scoring the same hand twice gives the same answer.
func HandScore(hand []Card) int {
	score := 0
	aces := 0

	for _, c := range hand {
		v := rankValue(c.Rank)
		if c.Rank == "A" {
			aces++
		}

		score += v
	}

	for score > 21 && aces > 0 {
		score -= 10
		aces--
	}

	return score
}

func rankValue(rank string) int {
	switch rank {
	case "A":
		return 11
	case "K", "Q", "J", "10":
		return 10
	default:
		// Single digit ranks 2-9.
		return int(rank[0] - '0')
	}
}
