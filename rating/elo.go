// Package rating computes ELO deltas for a finished battle.
package rating

import "math"

// K is the ELO K-factor.
const K = 32

type Outcome int

const (
	AWins Outcome = iota
	BWins
	Draw
)

func (o Outcome) String() string {
	switch o {
	case AWins:
		return "a_wins"
	case BWins:
		return "b_wins"
	default:
		return "draw"
	}
}

// OutcomeFor decides the outcome from click counts. Equal counts are a draw.
func OutcomeFor(clicksA, clicksB int) Outcome {
	switch {
	case clicksA > clicksB:
		return AWins
	case clicksB > clicksA:
		return BWins
	default:
		return Draw
	}
}

// Expected is the expected score of a player rated rA against rB.
func Expected(rA, rB int) float64 {
	return 1 / (1 + math.Pow(10, float64(rB-rA)/400))
}

// Compute returns the rating deltas for A and B. Each delta is rounded on its own,
// half away from zero, so the two need not sum to zero.
func Compute(rA, rB int, o Outcome) (deltaA, deltaB int) {
	var actualA, actualB float64
	switch o {
	case AWins:
		actualA, actualB = 1, 0
	case BWins:
		actualA, actualB = 0, 1
	default:
		actualA, actualB = 0.5, 0.5
	}

	deltaA = int(math.Round(K * (actualA - Expected(rA, rB))))
	deltaB = int(math.Round(K * (actualB - Expected(rB, rA))))
	return deltaA, deltaB
}
