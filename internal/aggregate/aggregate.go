// Package aggregate reduces a city's establishment set to summary metrics.
package aggregate

import (
	"github.com/sells-group/forks-fortunes/internal/model"
)

const (
	highRatedThreshold    = 4.0
	lowRatedThreshold     = 3.0
	wellReviewedThreshold = 50
)

// Summarize reduces a deduplicated, scored establishment set into a
// CitySummary. Means and the high-rated fraction are computed only over
// establishments with a defined rating/score; density ratios are nil when
// the denominator is zero or absent, never NaN or Inf. Pure and
// deterministic.
func Summarize(city string, center model.Coordinate, ests []model.Establishment, wealth model.CityWealth) model.CitySummary {
	s := model.CitySummary{
		City:            city,
		Center:          center,
		Count:           len(ests),
		PriceTierCounts: map[int]int{},
		RatingBuckets:   map[string]int{},
		Population:      wealth.Population,
		MedianIncome:    wealth.MedianIncome,
		PropertyValue:   wealth.PropertyValue,
	}

	var (
		ratedCount  int
		ratingSum   float64
		scoredCount int
		scoreSum    float64
	)

	for _, e := range ests {
		if e.PriceTier != nil {
			tier := *e.PriceTier
			s.PriceTierCounts[tier]++
			switch {
			case tier >= 3:
				s.ExpensiveCount++
			case tier >= 1:
				s.BudgetCount++
			}
		}
		if e.RatingCount >= wellReviewedThreshold {
			s.WellReviewedCount++
		}

		if e.Rating == nil {
			continue
		}
		rating := *e.Rating
		ratedCount++
		ratingSum += rating
		s.RatingBuckets[bucket(rating)]++
		if rating >= highRatedThreshold {
			s.HighRatedCount++
		}
		if rating < lowRatedThreshold {
			s.LowRatedCount++
		}

		if e.QualityScore != nil {
			scoredCount++
			scoreSum += *e.QualityScore
		}
	}

	if ratedCount > 0 {
		mean := ratingSum / float64(ratedCount)
		s.MeanRating = &mean
		frac := float64(s.HighRatedCount) / float64(ratedCount)
		s.HighRatedFraction = &frac
	}
	if scoredCount > 0 {
		mean := scoreSum / float64(scoredCount)
		s.MeanQualityScore = &mean
	}

	if wealth.Population != nil && *wealth.Population > 0 {
		density := float64(s.Count) / (float64(*wealth.Population) / 1000)
		s.PerThousandResidents = &density
	}
	if wealth.PropertyValue != nil && *wealth.PropertyValue > 0 {
		density := float64(s.Count) / (*wealth.PropertyValue / 1e9)
		s.PerBillionValue = &density
	}

	return s
}

func bucket(rating float64) string {
	switch {
	case rating >= 4.5:
		return model.BucketExcellent
	case rating >= 4.0:
		return model.BucketVeryGood
	case rating >= 3.5:
		return model.BucketGood
	case rating >= 3.0:
		return model.BucketAverage
	default:
		return model.BucketBelowAverage
	}
}
