// Package census fetches ZIP-level demographics from the Census ACS 5-year API.
package census

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/forks-fortunes/internal/resilience"
)

const defaultBaseURL = "https://api.census.gov/data/2021/acs/acs5"

// ACS variable codes queried per ZCTA.
const (
	varPopulation   = "B01003_001E"
	varMedianIncome = "B19013_001E"
	varHomeValue    = "B25077_001E"
	varHousingUnits = "B25001_001E"
)

// Demographics is one ZIP's ACS estimate set. Pointer fields are nil when
// the ACS has no estimate (or publishes a negative sentinel) for the ZCTA.
type Demographics struct {
	Zip          string
	Population   *int
	MedianIncome *float64
	HomeValue    *float64
	HousingUnits *int
}

// Client performs Census API operations.
type Client interface {
	ZCTADemographics(ctx context.Context, zip string) (*Demographics, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default ACS endpoint (year and survey are part
// of the path).
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

// NewClient creates a Census API client. The API key is optional for low
// request volumes.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ZCTADemographics fetches one ZIP's estimates. Returns (nil, nil) when the
// API knows nothing about the ZCTA.
func (c *httpClient) ZCTADemographics(ctx context.Context, zip string) (*Demographics, error) {
	q := url.Values{}
	q.Set("get", strings.Join([]string{varPopulation, varMedianIncome, varHomeValue, varHousingUnits}, ","))
	q.Set("for", "zip code tabulation area:"+zip)
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	reqURL := c.baseURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "census: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "census: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "census: read response")
	}

	// The API answers 404 for ZCTAs it has no rows for.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("census: unexpected http status %d", resp.StatusCode)
		if resilience.IsRetryableHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewThrottledError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}

	// Row-oriented response: first row is the header, one row per ZCTA.
	var rows [][]*string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, eris.Wrap(err, "census: unmarshal response")
	}
	if len(rows) < 2 {
		return nil, nil
	}

	idx := map[string]int{}
	for i, col := range rows[0] {
		if col != nil {
			idx[*col] = i
		}
	}
	row := rows[1]

	d := &Demographics{Zip: zip}
	d.Population = parseCount(row, idx, varPopulation)
	d.MedianIncome = parseEstimate(row, idx, varMedianIncome)
	d.HomeValue = parseEstimate(row, idx, varHomeValue)
	d.HousingUnits = parseCount(row, idx, varHousingUnits)
	return d, nil
}

// parseEstimate reads one float cell. ACS publishes large negative sentinels
// for suppressed estimates; those come back as nil.
func parseEstimate(row []*string, idx map[string]int, name string) *float64 {
	i, ok := idx[name]
	if !ok || i >= len(row) || row[i] == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*row[i]), 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

func parseCount(row []*string, idx map[string]int, name string) *int {
	f := parseEstimate(row, idx, name)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// FetchAll pulls demographics for every ZIP through the shared limiter with
// retries. Failed ZIPs are logged and skipped; partial data beats no data.
func FetchAll(ctx context.Context, client Client, zips []string, limiter *rate.Limiter, retry resilience.RetryConfig) (map[string]Demographics, error) {
	log := zap.L().With(zap.String("component", "census"))

	sorted := append([]string(nil), zips...)
	sort.Strings(sorted)

	out := map[string]Demographics{}
	var failed []string
	for _, zip := range sorted {
		if err := limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "census: rate limit wait")
		}

		d, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*Demographics, error) {
			return client.ZCTADemographics(ctx, zip)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			failed = append(failed, zip)
			log.Warn("zip demographics failed", zap.String("zip", zip), zap.Error(err))
			continue
		}
		if d == nil {
			continue
		}
		out[zip] = *d
	}

	log.Info("demographics fetched", zap.Int("zips", len(out)), zap.Int("failed", len(failed)))
	return out, nil
}
