// Package scorer computes the composite quality score for establishments.
package scorer

import (
	"math"

	"github.com/sells-group/forks-fortunes/internal/model"
)

// Credibility constants: an unreviewed rating keeps a 0.7 weight; the weight
// rises linearly with review count and saturates at 1.0 once the count
// reaches credibilitySaturation.
const (
	credibilityFloor      = 0.7
	credibilitySpan       = 0.3
	credibilitySaturation = 100
)

// Score computes the quality score for one rating/count/tier triple. A nil
// rating yields nil: unrated establishments are excluded from aggregates
// rather than scored as zero. The result is rounded to two decimals so
// checkpointed and recomputed scores compare equal.
func Score(rating *float64, ratingCount int, priceTier *int) *float64 {
	if rating == nil {
		return nil
	}

	s := *rating * credibility(ratingCount) * priceAdjustment(priceTier)
	s = math.Round(s*100) / 100
	return &s
}

// Annotate returns a copy of the establishment with its quality score set.
func Annotate(e model.Establishment) model.Establishment {
	e.QualityScore = Score(e.Rating, e.RatingCount, e.PriceTier)
	return e
}

// AnnotateAll scores a slice of establishments in place-order.
func AnnotateAll(ests []model.Establishment) []model.Establishment {
	out := make([]model.Establishment, len(ests))
	for i, e := range ests {
		out[i] = Annotate(e)
	}
	return out
}

// credibility is monotone non-decreasing in count: more reviews never lower
// the weight, so a low-count establishment can never out-credential a
// high-count one at equal rating.
func credibility(count int) float64 {
	if count <= 0 {
		return credibilityFloor
	}
	factor := float64(count) / credibilitySaturation
	if factor > 1 {
		factor = 1
	}
	return credibilityFloor + credibilitySpan*factor
}

// priceAdjustment models value rather than raw price: mid-range tiers get
// the peak multiplier, the most expensive tier a smaller one, and the cheap
// extreme (or an absent tier) stays neutral.
func priceAdjustment(tier *int) float64 {
	if tier == nil {
		return 1.0
	}
	switch *tier {
	case 2, 3:
		return 1.05
	case 4:
		return 1.02
	default:
		return 1.0
	}
}
