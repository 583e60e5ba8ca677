package utils

import "math"

// AmountTolerance is the absolute tolerance used when reconciling a claimed
// amount against an amount extracted from a confirmation email.
const AmountTolerance = 0.01

// Round2 rounds x to 2 decimal places (banking-style simple round).
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// AmountsMatch reports whether a and b agree within AmountTolerance.
// A difference of exactly 0.01 does NOT match. The comparison backs the
// tolerance off slightly: a one-paisa difference computed in float64 lands
// a few ulps below 0.01 (500.01-500.00 ≈ 0.009999999999990905) and a bare
// `< AmountTolerance` would accept it.
func AmountsMatch(a, b float64) bool {
	return math.Abs(a-b) < AmountTolerance-1e-9
}
