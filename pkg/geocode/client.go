// Package geocode resolves city centers via Census Geocoder (primary) and
// Google (fallback).
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/forks-fortunes/internal/model"
)

// Client resolves a city name to a center coordinate.
type Client interface {
	CityCenter(ctx context.Context, city, state string) (*Result, error)
}

// Result holds the geocoding output for a city.
type Result struct {
	Center  model.Coordinate
	Source  string // "census" or "google"
	Matched bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithGoogleAPIKey enables the Google Geocoding API as a fallback.
func WithGoogleAPIKey(key string) Option {
	return func(g *geocoder) {
		g.googleKey = key
	}
}

// WithHTTPClient sets a custom HTTP client for both providers.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit across both providers.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

// WithCensusBaseURL overrides the Census Geocoder endpoint.
func WithCensusBaseURL(url string) Option {
	return func(g *geocoder) {
		g.censusURL = url
	}
}

// WithGoogleBaseURL overrides the Google Geocoding endpoint.
func WithGoogleBaseURL(url string) Option {
	return func(g *geocoder) {
		g.googleURL = url
	}
}

type geocoder struct {
	httpClient *http.Client
	googleKey  string
	limiter    *rate.Limiter
	censusURL  string
	googleURL  string
}

// NewClient creates a geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		censusURL:  censusOneLineURL,
		googleURL:  googleGeocodeURL,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CityCenter resolves a city center, trying Census first, then Google when a
// key is configured. An unmatched city is not an error.
func (g *geocoder) CityCenter(ctx context.Context, city, state string) (*Result, error) {
	result, censusErr := g.censusCityCenter(ctx, city, state)
	if censusErr == nil && result.Matched {
		return result, nil
	}

	if g.googleKey != "" {
		googleResult, googleErr := g.googleCityCenter(ctx, city, state)
		if googleErr == nil && googleResult.Matched {
			return googleResult, nil
		}
	}
	if censusErr != nil {
		return nil, censusErr
	}

	return &Result{Matched: false}, nil
}
