package outcome

import "sort"

// WeightedPicker draws indexes with probability weight/sum(weights).
// It keeps a cumulative weight table and binary-searches it, so picking
// stays cheap even over a large item catalog.
type WeightedPicker struct {
	cum   []int
	total int
}

// NewWeightedPicker builds a picker over the given weights. Non-positive
// weights are treated as zero and can never be drawn. Returns nil if no
// weight is positive.
func NewWeightedPicker(weights []int) *WeightedPicker {
	cum := make([]int, len(weights))
	total := 0

	for i, w := range weights {
		if w > 0 {
			total += w
		}

		cum[i] = total
	}

	if total == 0 {
		return nil
	}

	return &WeightedPicker{cum: cum, total: total}
}

// Pick draws one index.
func (p *WeightedPicker) Pick(src Source) int {
	n := src.Intn(p.total)

	// First index whose cumulative weight exceeds n.
	return sort.SearchInts(p.cum, n+1)
}

// Total is the sum of positive weights.
func (p *WeightedPicker) Total() int {
	return p.total
}
