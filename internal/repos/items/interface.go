package items

import (
	"context"
	"errors"
)

var ErrItemNotFound = errors.New("item not found")

// Rarity tiers and their draw weights, strictly decreasing. Unknown tiers
// fall back to DefaultWeight.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityVintage   = "vintage"
	RarityLegendary = "legendary"
	RarityAncient   = "ancient"
	RarityGodly     = "godly"
	RarityChroma    = "chroma"

	DefaultWeight = 10
)

var RarityWeights = map[string]int{
	RarityCommon:    40,
	RarityRare:      25,
	RarityVintage:   15,
	RarityLegendary: 10,
	RarityAncient:   6,
	RarityGodly:     3,
	RarityChroma:    1,
}

// Weight returns the draw weight for a rarity tier.
func Weight(rarity string) int {
	w, ok := RarityWeights[rarity]
	if !ok {
		return DefaultWeight
	}

	return w
}

type Item struct {
	ID       int64
	Name     string
	Rarity   string
	Value    int64
	ImageURL string
}

type Items interface {
	Get(ctx context.Context, itemID int64) (*Item, error)
	ListAll(ctx context.Context) ([]Item, error)
}
