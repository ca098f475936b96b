package assignment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func candidate(id string, expertise int, efficiency float64, workload int, idleHours float64) Candidate {
	return Candidate{
		ID:         id,
		Name:       "Member " + id,
		Category:   "Canteen",
		Expertise:  map[string]int{"Canteen": expertise},
		Efficiency: efficiency,
		Workload:   workload,
		LastActive: now.Add(-time.Duration(idleHours * float64(time.Hour))),
	}
}

func TestScoreComponents(t *testing.T) {
	// Perfect candidate: full expertise, full efficiency, idle worker just active.
	c := candidate("a", 100, 100, 0, 0)
	assert.InDelta(t, 100.0, Score(c, "Canteen", 5, now), 0.001)

	// No expertise entry for the category contributes zero.
	c = candidate("b", 0, 100, 0, 0)
	assert.InDelta(t, 60.0, Score(c, "Canteen", 5, now), 0.001)

	// Workload component scales down linearly with open assignments.
	c = candidate("c", 100, 100, 4, 0)
	// 40 + 30 + (20 - 4/5*20=16) + 10 = 84
	assert.InDelta(t, 84.0, Score(c, "Canteen", 5, now), 0.001)

	// Availability decays to zero at 240 hours and floors there.
	c = candidate("d", 100, 100, 0, 240)
	assert.InDelta(t, 90.0, Score(c, "Canteen", 5, now), 0.001)
	c = candidate("e", 100, 100, 0, 1000)
	assert.InDelta(t, 90.0, Score(c, "Canteen", 5, now), 0.001)
}

func TestScoreWorkloadFloorsAtZero(t *testing.T) {
	// Workload beyond the cap must not go negative (manual overrides can
	// push a member past the cap).
	over := candidate("a", 50, 50, 12, 0)
	under := candidate("b", 50, 50, 4, 0)
	assert.Less(t, Score(over, "Canteen", 5, now), Score(under, "Canteen", 5, now))
	assert.GreaterOrEqual(t, Score(over, "Canteen", 5, now), 0.0)
}

func TestScoreMonotonicity(t *testing.T) {
	base := candidate("x", 60, 70, 2, 24)

	// Raising workload strictly decreases (or holds) the score.
	busier := base
	busier.Workload = 3
	assert.Less(t, Score(busier, "Canteen", 5, now), Score(base, "Canteen", 5, now))

	// Raising efficiency strictly increases (or holds) the score.
	sharper := base
	sharper.Efficiency = 80
	assert.Greater(t, Score(sharper, "Canteen", 5, now), Score(base, "Canteen", 5, now))

	// Raising expertise increases the score.
	expert := base
	expert.Expertise = map[string]int{"Canteen": 90}
	assert.Greater(t, Score(expert, "Canteen", 5, now), Score(base, "Canteen", 5, now))

	// Longer idle time lowers the score.
	idle := base
	idle.LastActive = now.Add(-200 * time.Hour)
	assert.Less(t, Score(idle, "Canteen", 5, now), Score(base, "Canteen", 5, now))
}

func TestSelectBestExcludesCapped(t *testing.T) {
	capped := candidate("a", 100, 100, 5, 0)
	free := candidate("b", 10, 10, 0, 100)

	best, ok := SelectBest([]Candidate{capped, free}, "Canteen", 5, now)
	require.True(t, ok)
	assert.Equal(t, "b", best.ID, "capped member must be ineligible despite the higher score")
}

func TestSelectBestNoEligibleCandidates(t *testing.T) {
	_, ok := SelectBest(nil, "Canteen", 5, now)
	assert.False(t, ok)

	all := []Candidate{
		candidate("a", 100, 100, 5, 0),
		candidate("b", 100, 100, 7, 0),
	}
	_, ok = SelectBest(all, "Canteen", 5, now)
	assert.False(t, ok, "everyone at or over the cap means no candidate")
}

func TestSelectBestPicksHighestScore(t *testing.T) {
	weak := candidate("a", 20, 30, 3, 100)
	strong := candidate("b", 90, 80, 1, 2)

	best, ok := SelectBest([]Candidate{weak, strong}, "Canteen", 5, now)
	require.True(t, ok)
	assert.Equal(t, "b", best.ID)
}

func TestSelectBestTieBreaks(t *testing.T) {
	// Identical scores: lower workload wins. Build the tie by trading
	// 8 workload points (2/5 of cap) for 8 expertise points at weight 40.
	a := candidate("a", 70, 50, 2, 240)
	b := candidate("b", 90, 50, 4, 240)
	require.InDelta(t, Score(a, "Canteen", 5, now), Score(b, "Canteen", 5, now), 0.001)

	best, ok := SelectBest([]Candidate{b, a}, "Canteen", 5, now)
	require.True(t, ok)
	assert.Equal(t, "a", best.ID, "tie must break toward the lower workload")

	// Fully identical candidates: earlier lastActive wins.
	c := candidate("c", 50, 50, 1, 300)
	d := candidate("d", 50, 50, 1, 400)
	best, ok = SelectBest([]Candidate{c, d}, "Canteen", 5, now)
	require.True(t, ok)
	assert.Equal(t, "d", best.ID, "tie must break toward the earlier lastActive")
}
