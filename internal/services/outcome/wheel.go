package outcome

const (
	ColorGreen = "green"
	ColorRed   = "red"
	ColorBlack = "black"

	// WheelSlots is the number of labeled outcomes: slot 0 is green,
	// 1-7 red, 8-14 black. P(green) = 1/15, P(red) = P(black) = 7/15.
	WheelSlots = 15

	// Payout multipliers in hundredths of the bet.
	GreenMultiplier = 1400
	ColorMultiplier = 200
)

// SpinWheel draws one slot and returns its number and color.
func SpinWheel(src Source) (int, string) {
	n := src.Intn(WheelSlots)

	return n, SlotColor(n)
}

// SlotColor maps a slot number to its color.
func SlotColor(n int) string {
	switch {
	case n == 0:
		return ColorGreen
	case n <= 7:
		return ColorRed
	default:
		return ColorBlack
	}
}

// WheelMultiplier returns the payout multiplier for a winning bet on color,
// in hundredths.
func WheelMultiplier(color string) int64 {
	if color == ColorGreen {
		return GreenMultiplier
	}

	return ColorMultiplier
}
