package assignment

// ComputeEfficiency derives a staff member's efficiency score from their
// resolution history. The contract is monotonic: more clean resolutions and
// faster average resolution never lower the score, more reopens never raise
// it. The result is clamped to [0, 100].
//
//	base            50
//	resolution bonus up to +30: 2 points per clean resolution
//	speed bonus      up to +20: full bonus at instant resolution, none at 72h+
//	reopen penalty   up to -20: 5 points per reopened complaint
func ComputeEfficiency(cleanResolutions int, avgResolutionHours float64, reopened int) float64 {
	score := 50.0

	resolutionBonus := 2.0 * float64(cleanResolutions)
	if resolutionBonus > 30 {
		resolutionBonus = 30
	}
	score += resolutionBonus

	if cleanResolutions > 0 {
		speedFraction := avgResolutionHours / 72.0
		if speedFraction > 1 {
			speedFraction = 1
		}
		if speedFraction < 0 {
			speedFraction = 0
		}
		score += 20.0 * (1 - speedFraction)
	}

	penalty := 5.0 * float64(reopened)
	if penalty > 20 {
		penalty = 20
	}
	score -= penalty

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
