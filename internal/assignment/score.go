// Package assignment selects the best-available staff member for a complaint
// and keeps workload counters honest. Scoring is pure; everything touching
// the database lives in engine.go.
package assignment

import (
	"sort"
	"time"
)

// Component weights. The total score caps at 100.
const (
	expertiseWeight    = 40.0
	efficiencyWeight   = 30.0
	workloadWeight     = 20.0
	availabilityWeight = 10.0

	// availabilityWindow is how long after last activity the availability
	// component decays to zero: 240 hours (10 days).
	availabilityWindow = 240.0
)

// Candidate is a staff member considered for assignment, with the workload
// counter already refreshed from open assignments.
type Candidate struct {
	ID         string
	Name       string
	Category   string
	Expertise  map[string]int
	Efficiency float64
	Workload   int
	LastActive time.Time
}

// Score ranks a candidate for a complaint in the given category.
//
//	expertise    0-40: categoryExpertise[category] / 100 * 40
//	efficiency   0-30: efficiencyScore / 100 * 30
//	workload     0-20: fewer open assignments score higher, floored at 0
//	availability 0-10: linear decay from 10 to 0 over 240h since last activity
func Score(c Candidate, category string, maxWorkload int, now time.Time) float64 {
	expertise := float64(c.Expertise[category]) / 100 * expertiseWeight

	efficiency := c.Efficiency / 100 * efficiencyWeight

	workload := workloadWeight - float64(c.Workload)/float64(maxWorkload)*workloadWeight
	if workload < 0 {
		workload = 0
	}

	hoursIdle := now.Sub(c.LastActive).Hours()
	if hoursIdle < 0 {
		hoursIdle = 0
	}
	availability := availabilityWeight - hoursIdle/availabilityWindow*availabilityWeight
	if availability < 0 {
		availability = 0
	}

	return expertise + efficiency + workload + availability
}

// SelectBest filters out candidates at or over the workload cap, scores the
// rest and returns the winner. Ties break on lower workload, then earlier
// lastActive. Returns false when nobody is eligible.
func SelectBest(candidates []Candidate, category string, maxWorkload int, now time.Time) (Candidate, bool) {
	eligible := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Workload >= maxWorkload {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return Candidate{}, false
	}

	scores := make(map[string]float64, len(eligible))
	for _, c := range eligible {
		scores[c.ID] = Score(c, category, maxWorkload, now)
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		si, sj := scores[eligible[i].ID], scores[eligible[j].ID]
		if si != sj {
			return si > sj
		}
		if eligible[i].Workload != eligible[j].Workload {
			return eligible[i].Workload < eligible[j].Workload
		}
		return eligible[i].LastActive.Before(eligible[j].LastActive)
	})

	return eligible[0], true
}
