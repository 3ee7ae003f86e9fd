package outcome

// crashScale and crashEdge define the crash point distribution:
// point = (1 - edge) / U for uniform U in (0, 1], floored at 1.00x.
// With a 3% edge, about 3% of rounds crash instantly at 1.00x and the
// expected return of a bet cashed out at multiplier m is (1-edge)/1.
const (
	crashDraws = 1_000_000
	crashEdge  = 3 // percent
)

// CrashPoint generates a crash multiplier in hundredths (194 = 1.94x).
// Generation happens inside the settlement boundary so the point can be
// audited against the recorded draw, never supplied by a caller.
func CrashPoint(src Source) int64 {
	// r is uniform over 1..crashDraws.
	r := src.Intn(crashDraws) + 1

	point := int64(crashDraws) * (100 - crashEdge) / int64(r)
	if point < 100 {
		point = 100
	}

	return point
}
