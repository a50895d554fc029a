package model

import "time"

// Rating bucket labels used in CitySummary.RatingBuckets.
const (
	BucketExcellent    = "excellent"     // 4.5+
	BucketVeryGood     = "very_good"     // 4.0–4.4
	BucketGood         = "good"          // 3.5–3.9
	BucketAverage      = "average"       // 3.0–3.4
	BucketBelowAverage = "below_average" // <3.0
)

// BucketNames lists the rating buckets from best to worst.
var BucketNames = []string{
	BucketExcellent,
	BucketVeryGood,
	BucketGood,
	BucketAverage,
	BucketBelowAverage,
}

// CitySummary is the per-city reduction of a deduplicated establishment set.
// Derived and recomputed each run; never mutated incrementally. Pointer
// fields are nil when the underlying data is absent (no rated
// establishments, unknown population), never zero or NaN.
type CitySummary struct {
	City   string     `json:"city"`
	Center Coordinate `json:"center"`

	Count             int      `json:"count"`
	MeanRating        *float64 `json:"mean_rating,omitempty"`
	MeanQualityScore  *float64 `json:"mean_quality_score,omitempty"`
	HighRatedCount    int      `json:"high_rated_count"`
	HighRatedFraction *float64 `json:"high_rated_fraction,omitempty"`
	LowRatedCount     int      `json:"low_rated_count"`
	ExpensiveCount    int      `json:"expensive_count"`
	BudgetCount       int      `json:"budget_count"`
	WellReviewedCount int      `json:"well_reviewed_count"`

	PriceTierCounts map[int]int    `json:"price_tier_counts,omitempty"`
	RatingBuckets   map[string]int `json:"rating_buckets,omitempty"`

	Population    *int     `json:"population,omitempty"`
	MedianIncome  *float64 `json:"median_income,omitempty"`
	PropertyValue *float64 `json:"property_value,omitempty"`

	PerThousandResidents *float64 `json:"per_thousand_residents,omitempty"`
	PerBillionValue      *float64 `json:"per_billion_value,omitempty"`
}

// CityCheckpoint marks a city's analysis as complete in the store.
type CityCheckpoint struct {
	City        string      `json:"city"`
	Summary     CitySummary `json:"summary"`
	CompletedAt time.Time   `json:"completed_at"`
}

// CityWealth is the demographic and property-value input joined to a city
// before aggregation. Fields are nil when the loaders had no data.
type CityWealth struct {
	Population    *int
	MedianIncome  *float64
	PropertyValue *float64
}

// Coverage accounts for how completely a city's grid was searched.
type Coverage struct {
	TotalPoints    int `json:"total_points"`
	SearchedPoints int `json:"searched_points"`
	SkippedPoints  int `json:"skipped_points"`
	CachedPages    int `json:"cached_pages"`
	FetchedPages   int `json:"fetched_pages"`
}

// CityOutcome is the per-city result line in a run report.
type CityOutcome struct {
	City     string   `json:"city"`
	Resumed  bool     `json:"resumed"`
	Coverage Coverage `json:"coverage"`
	Count    int      `json:"count"`
	Err      string   `json:"error,omitempty"`
}

// RunReport summarizes a full analyze invocation. Skipped units are counted
// here rather than swallowed.
type RunReport struct {
	RunID     string        `json:"run_id"`
	Outcomes  []CityOutcome `json:"outcomes"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Failed returns the outcomes that carry an error.
func (r *RunReport) Failed() []CityOutcome {
	var failed []CityOutcome
	for _, o := range r.Outcomes {
		if o.Err != "" {
			failed = append(failed, o)
		}
	}
	return failed
}
