package rating

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name         string
		rA, rB       int
		outcome      Outcome
		wantA, wantB int
	}{
		{"equal ratings, A wins", 1000, 1000, AWins, 16, -16},
		{"equal ratings, B wins", 1000, 1000, BWins, -16, 16},
		{"equal ratings, draw", 1000, 1000, Draw, 0, 0},
		{"favourite wins", 1200, 1000, AWins, 8, -8},
		{"underdog wins", 1000, 1200, AWins, 24, -24},
		{"favourite draws", 1200, 1000, Draw, -8, 8},
		{"huge gap, favourite wins", 2400, 1000, AWins, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dA, dB := Compute(tt.rA, tt.rB, tt.outcome)
			assert.Equal(t, tt.wantA, dA)
			assert.Equal(t, tt.wantB, dB)
		})
	}
}

func TestOutcomeFor(t *testing.T) {
	assert.Equal(t, AWins, OutcomeFor(12, 9))
	assert.Equal(t, BWins, OutcomeFor(3, 4))
	assert.Equal(t, Draw, OutcomeFor(7, 7))
	assert.Equal(t, Draw, OutcomeFor(0, 0))
}

func TestExpected(t *testing.T) {
	assert.InDelta(t, 0.5, Expected(1500, 1500), 1e-9)
	assert.InDelta(t, 1.0, Expected(1400, 1000)+Expected(1000, 1400), 1e-9)
	assert.Greater(t, Expected(1400, 1000), 0.9)
}

func TestComputeProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	ratings := gen.IntRange(100, 3000)

	properties.Property("winner never loses points and loser never gains", prop.ForAll(
		func(rA, rB int) bool {
			dA, dB := Compute(rA, rB, AWins)
			return dA >= 0 && dB <= 0
		},
		ratings, ratings,
	))

	properties.Property("deltas stay within K", prop.ForAll(
		func(rA, rB int, o int) bool {
			dA, dB := Compute(rA, rB, Outcome(o))
			return dA >= -K && dA <= K && dB >= -K && dB <= K
		},
		ratings, ratings, gen.IntRange(0, 2),
	))

	properties.Property("swapping players mirrors the result", prop.ForAll(
		func(rA, rB int) bool {
			dA, dB := Compute(rA, rB, AWins)
			sB, sA := Compute(rB, rA, BWins)
			return dA == sA && dB == sB
		},
		ratings, ratings,
	))

	properties.Property("equal ratings: decisive is +16/-16, draw is 0/0", prop.ForAll(
		func(r int) bool {
			wA, wB := Compute(r, r, AWins)
			dA, dB := Compute(r, r, Draw)
			return wA == 16 && wB == -16 && dA == 0 && dB == 0
		},
		ratings,
	))

	properties.Property("deltas nearly cancel out", prop.ForAll(
		func(rA, rB int, o int) bool {
			dA, dB := Compute(rA, rB, Outcome(o))
			sum := dA + dB
			return sum >= -1 && sum <= 1
		},
		ratings, ratings, gen.IntRange(0, 2),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
