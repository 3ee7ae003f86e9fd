package outcome

// ChamberStep is the multiplier growth per survived pull, in hundredths
// (+0.50x per round).
const ChamberStep = 50

// PullTrigger draws uniformly over the remaining chambers and reports
// whether the loaded one fired. Surviving removes one chamber, so the odds
// shorten with every pull.
func PullTrigger(src Source, chambersLeft int) bool {
	return src.Intn(chambersLeft) == 0
}
