package scoring

import "math"

// Version tags every score written by this build of the scoring logic. Bump it
// whenever a dimension rule or weight changes so stale reports can be found
// and selectively reprocessed.
const Version = "qs-2026.08.1"

// Grade bands, inclusive lower bounds.
const (
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
	GradeD = "D"
	GradeF = "F"
)

// Aggregate combines the weighted sub-scores into the final 0-100 score and
// its letter grade: round(Σ raw·w / Σ w).
func Aggregate(dims []DimensionScore) (int, string) {
	var weightedSum, weightTotal float64
	for _, d := range dims {
		weightedSum += clampRaw(d.Raw) * d.Weight
		weightTotal += d.Weight
	}
	if weightTotal <= 0 {
		return 0, GradeF
	}

	score := int(math.Round(weightedSum / weightTotal))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, GradeFor(score)
}

// GradeFor maps a score to its letter grade. Bands are fixed and
// non-overlapping: A [80,100], B [65,79], C [50,64], D [35,49], F [0,34].
func GradeFor(score int) string {
	switch {
	case score >= 80:
		return GradeA
	case score >= 65:
		return GradeB
	case score >= 50:
		return GradeC
	case score >= 35:
		return GradeD
	default:
		return GradeF
	}
}

// TotalWeight returns the sum of all dimension weights.
func TotalWeight() float64 {
	var total float64
	for _, w := range dimensionWeights {
		total += w
	}
	return total
}
