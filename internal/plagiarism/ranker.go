package plagiarism

import (
	"fmt"
	"math"
	"sort"
)

// RankedReport holds scores at or above a threshold, best first.
type RankedReport []Score

// ValidateThreshold rejects thresholds outside [0,1].
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %v", threshold)
	}
	return nil
}

// Rank keeps scores >= threshold and orders them by descending value, ties
// broken by the pair's identities in lexicographic order. The result does
// not depend on the order of scores, so it is identical for any worker count.
func Rank(scores []Score, threshold float64) RankedReport {
	report := make(RankedReport, 0, len(scores))
	for _, score := range scores {
		if score.Value >= threshold {
			report = append(report, score)
		}
	}

	sort.Slice(report, func(i, j int) bool {
		return rankedBefore(report[i], report[j])
	})
	return report
}

func rankedBefore(x, y Score) bool {
	if x.Value != y.Value {
		return x.Value > y.Value
	}
	x1, x2 := x.Pair.Canonical()
	y1, y2 := y.Pair.Canonical()
	if x1 != y1 {
		return x1 < y1
	}
	return x2 < y2
}
