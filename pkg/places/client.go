// Package places provides a client for the Google Places Nearby Search API.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/forks-fortunes/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// Catalog status codes returned in the response body.
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
	StatusOverDailyLimit = "OVER_DAILY_LIMIT"
	StatusRequestDenied  = "REQUEST_DENIED"
	StatusInvalidRequest = "INVALID_REQUEST"
)

// Client performs Places API operations.
type Client interface {
	NearbySearch(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error)
}

// NearbySearchRequest is one bounded-radius query. When PageToken is set the
// other fields are ignored, matching the API's pagination contract.
type NearbySearchRequest struct {
	Lat       float64
	Lng       float64
	RadiusM   int
	PlaceType string
	PageToken string
}

// NearbySearchResponse is one page of nearby-search results.
type NearbySearchResponse struct {
	Status        string  `json:"status"`
	Results       []Place `json:"results"`
	NextPageToken string  `json:"next_page_token"`
}

// Place represents one establishment returned by the API. Rating and
// PriceLevel are pointers because the catalog omits them for unrated and
// unpriced places.
type Place struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Geometry         Geometry `json:"geometry"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	PriceLevel       *int     `json:"price_level,omitempty"`
	Types            []string `json:"types,omitempty"`
	Vicinity         string   `json:"vicinity,omitempty"`
}

// Geometry holds the place's location.
type Geometry struct {
	Location LatLng `json:"location"`
}

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NearbySearch issues one nearby-search page. Errors are classified for the
// retry layer: HTTP 429/5xx and body-level rate limiting come back as
// throttled, REQUEST_DENIED as resilience.ErrAuthDenied, OVER_DAILY_LIMIT as
// resilience.ErrQuotaExhausted.
func (c *httpClient) NearbySearch(ctx context.Context, sreq NearbySearchRequest) (*NearbySearchResponse, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	if sreq.PageToken != "" {
		q.Set("pagetoken", sreq.PageToken)
	} else {
		q.Set("location", fmt.Sprintf("%f,%f", sreq.Lat, sreq.Lng))
		q.Set("radius", fmt.Sprintf("%d", sreq.RadiusM))
		if sreq.PlaceType != "" {
			q.Set("type", sreq.PlaceType)
		}
	}

	reqURL := c.baseURL + "/nearbysearch/json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("places: unexpected http status %d", resp.StatusCode)
		if resilience.IsRetryableHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewThrottledError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	var result NearbySearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal response")
	}

	switch result.Status {
	case StatusOK, StatusZeroResults:
		return &result, nil
	case StatusOverQueryLimit:
		return nil, resilience.NewThrottledError(eris.New("places: over query limit"), http.StatusTooManyRequests)
	case StatusOverDailyLimit:
		return nil, eris.Wrap(resilience.ErrQuotaExhausted, "places: nearby search")
	case StatusRequestDenied:
		return nil, eris.Wrap(resilience.ErrAuthDenied, "places: nearby search")
	case StatusInvalidRequest:
		if sreq.PageToken != "" {
			// A next_page_token takes a moment to become valid; the catalog
			// answers INVALID_REQUEST until then.
			return nil, resilience.NewThrottledError(eris.New("places: page token not ready"), 0)
		}
		return nil, eris.New("places: invalid request")
	default:
		return nil, eris.Errorf("places: unexpected status %s", result.Status)
	}
}
