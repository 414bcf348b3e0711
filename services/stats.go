package services

import "math"

// ComputeRating returns the mean of ratings rounded to two decimals, and
// their count.
func ComputeRating(ratings []int) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	mean := float64(sum) / float64(len(ratings))
	return roundMoney(mean), len(ratings)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
