package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/forks-fortunes/internal/model"
)

func fptr(v float64) *float64 { return &v }
func iptr(v int) *int         { return &v }

func est(id string, rating *float64, count int, tier *int, score *float64) model.Establishment {
	return model.Establishment{
		PlaceResult: model.PlaceResult{
			PlaceID:     id,
			Name:        "Place " + id,
			Rating:      rating,
			RatingCount: count,
			PriceTier:   tier,
		},
		QualityScore: score,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize("Palo Alto", model.Coordinate{Lat: 37.44, Lng: -122.14}, nil, model.CityWealth{})

	assert.Equal(t, "Palo Alto", s.City)
	assert.Equal(t, 0, s.Count)
	assert.Nil(t, s.MeanRating)
	assert.Nil(t, s.MeanQualityScore)
	assert.Nil(t, s.HighRatedFraction)
	assert.Nil(t, s.PerThousandResidents)
	assert.Nil(t, s.PerBillionValue)
	assert.Empty(t, s.PriceTierCounts)
	assert.Empty(t, s.RatingBuckets)
}

func TestSummarizeMetrics(t *testing.T) {
	ests := []model.Establishment{
		est("a", fptr(4.6), 120, iptr(3), fptr(4.83)),
		est("b", fptr(4.0), 80, iptr(2), fptr(3.95)),
		est("c", fptr(3.2), 40, iptr(1), fptr(2.63)),
		est("d", fptr(2.8), 10, iptr(4), fptr(2.08)),
		est("e", nil, 0, nil, nil), // unrated: excluded from means and buckets
	}
	wealth := model.CityWealth{
		Population:    iptr(50000),
		MedianIncome:  fptr(150000),
		PropertyValue: fptr(2.5e9),
	}

	s := Summarize("Los Altos", model.Coordinate{}, ests, wealth)

	assert.Equal(t, 5, s.Count)

	require.NotNil(t, s.MeanRating)
	assert.InDelta(t, (4.6+4.0+3.2+2.8)/4, *s.MeanRating, 1e-9)
	require.NotNil(t, s.MeanQualityScore)
	assert.InDelta(t, (4.83+3.95+2.63+2.08)/4, *s.MeanQualityScore, 1e-9)

	// High-rated fraction is over rated establishments, not the full count.
	assert.Equal(t, 2, s.HighRatedCount)
	require.NotNil(t, s.HighRatedFraction)
	assert.InDelta(t, 0.5, *s.HighRatedFraction, 1e-9)
	assert.Equal(t, 1, s.LowRatedCount)

	assert.Equal(t, 2, s.ExpensiveCount) // tiers 3 and 4
	assert.Equal(t, 2, s.BudgetCount)    // tiers 1 and 2
	assert.Equal(t, 3, s.WellReviewedCount)

	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1, 4: 1}, s.PriceTierCounts)
	assert.Equal(t, map[string]int{
		model.BucketExcellent:    1,
		model.BucketVeryGood:     1,
		model.BucketAverage:      1,
		model.BucketBelowAverage: 1,
	}, s.RatingBuckets)

	require.NotNil(t, s.PerThousandResidents)
	assert.InDelta(t, 5.0/50.0, *s.PerThousandResidents, 1e-9)
	require.NotNil(t, s.PerBillionValue)
	assert.InDelta(t, 5.0/2.5, *s.PerBillionValue, 1e-9)
	assert.Equal(t, wealth.MedianIncome, s.MedianIncome)
}

func TestSummarizeNilDenominators(t *testing.T) {
	ests := []model.Establishment{est("a", fptr(4.0), 10, nil, fptr(3.10))}

	cases := []struct {
		name   string
		wealth model.CityWealth
	}{
		{"absent", model.CityWealth{}},
		{"zero", model.CityWealth{Population: iptr(0), PropertyValue: fptr(0)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Summarize("Colma", model.Coordinate{}, ests, tc.wealth)
			assert.Nil(t, s.PerThousandResidents)
			assert.Nil(t, s.PerBillionValue)
		})
	}
}

func TestSummarizeBucketBoundaries(t *testing.T) {
	cases := []struct {
		rating float64
		want   string
	}{
		{4.5, model.BucketExcellent},
		{4.4, model.BucketVeryGood},
		{4.0, model.BucketVeryGood},
		{3.9, model.BucketGood},
		{3.5, model.BucketGood},
		{3.4, model.BucketAverage},
		{3.0, model.BucketAverage},
		{2.9, model.BucketBelowAverage},
	}
	for _, tc := range cases {
		s := Summarize("x", model.Coordinate{}, []model.Establishment{
			est("a", fptr(tc.rating), 1, nil, nil),
		}, model.CityWealth{})
		assert.Equal(t, map[string]int{tc.want: 1}, s.RatingBuckets, "rating %.1f", tc.rating)
	}
}

func TestSummarizeDeterministic(t *testing.T) {
	ests := []model.Establishment{
		est("a", fptr(4.6), 120, iptr(3), fptr(4.83)),
		est("b", fptr(4.0), 80, iptr(2), fptr(3.95)),
	}
	first := Summarize("Sunnyvale", model.Coordinate{}, ests, model.CityWealth{Population: iptr(1000)})
	second := Summarize("Sunnyvale", model.Coordinate{}, ests, model.CityWealth{Population: iptr(1000)})
	assert.Equal(t, first, second)
}
