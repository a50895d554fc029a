package model

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// GridPoint is one sample coordinate in a city's search grid. Points are
// ephemeral: regenerated each run, never persisted. Index is the point's
// position in the deterministic sweep order and keys the page cache.
type GridPoint struct {
	Index   int     `json:"index"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	RadiusM int     `json:"radius_m"`
}

// PlaceResult is one raw establishment record as returned by the places
// catalog. The same physical place may appear in many PlaceResults, once per
// overlapping grid point that found it.
type PlaceResult struct {
	PlaceID     string   `json:"place_id"`
	Name        string   `json:"name"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Rating      *float64 `json:"rating,omitempty"`
	RatingCount int      `json:"rating_count"`
	PriceTier   *int     `json:"price_tier,omitempty"`
	Types       []string `json:"types,omitempty"`
	Vicinity    string   `json:"vicinity,omitempty"`
}

// Establishment is the deduplicated canonical record for one physical place:
// the representative PlaceResult plus its derived quality score. Exactly one
// Establishment exists per place ID per run.
type Establishment struct {
	PlaceResult
	QualityScore *float64 `json:"quality_score,omitempty"`
}

// Rated reports whether the establishment has a base rating.
func (e Establishment) Rated() bool { return e.Rating != nil }
