package assignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeEfficiencyBounds(t *testing.T) {
	// A member with no history sits at the base score.
	assert.InDelta(t, 50.0, ComputeEfficiency(0, 0, 0), 0.001)

	// Best case: many instant clean resolutions, no reopens.
	assert.InDelta(t, 100.0, ComputeEfficiency(15, 0, 0), 0.001)

	// Scores never leave [0, 100] no matter how extreme the inputs.
	assert.GreaterOrEqual(t, ComputeEfficiency(0, 500, 100), 0.0)
	assert.LessOrEqual(t, ComputeEfficiency(1000, 0, 0), 100.0)
}

func TestComputeEfficiencyMonotonicInResolutions(t *testing.T) {
	prev := ComputeEfficiency(0, 24, 1)
	for n := 1; n <= 20; n++ {
		cur := ComputeEfficiency(n, 24, 1)
		assert.GreaterOrEqual(t, cur, prev, "more clean resolutions must never lower the score (n=%d)", n)
		prev = cur
	}
}

func TestComputeEfficiencyMonotonicInSpeed(t *testing.T) {
	slower := ComputeEfficiency(5, 60, 0)
	faster := ComputeEfficiency(5, 6, 0)
	assert.Greater(t, faster, slower)

	// Beyond 72h the speed bonus is exhausted; even slower does not go lower.
	verySlow := ComputeEfficiency(5, 100, 0)
	glacial := ComputeEfficiency(5, 400, 0)
	assert.InDelta(t, verySlow, glacial, 0.001)
}

func TestComputeEfficiencyReopenPenalty(t *testing.T) {
	clean := ComputeEfficiency(10, 24, 0)
	oneReopen := ComputeEfficiency(10, 24, 1)
	manyReopens := ComputeEfficiency(10, 24, 10)

	assert.Greater(t, clean, oneReopen)
	assert.Greater(t, oneReopen, manyReopens)

	// The penalty is capped, so chronic reopeners still get resolution credit.
	assert.InDelta(t, manyReopens, ComputeEfficiency(10, 24, 50), 0.001)
}
