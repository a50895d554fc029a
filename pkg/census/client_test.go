package census

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/forks-fortunes/internal/resilience"
)

func TestZCTADemographics_ParsesEstimates(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[
			["B01003_001E","B19013_001E","B25077_001E","B25001_001E","zip code tabulation area"],
			["33399","250001","2000001","26000","94301"]
		]`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	d, err := c.ZCTADemographics(context.Background(), "94301")
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.Equal(t, "94301", d.Zip)
	require.NotNil(t, d.Population)
	assert.Equal(t, 33399, *d.Population)
	require.NotNil(t, d.MedianIncome)
	assert.Equal(t, 250001.0, *d.MedianIncome)
	require.NotNil(t, d.HomeValue)
	assert.Equal(t, 2000001.0, *d.HomeValue)
	require.NotNil(t, d.HousingUnits)
	assert.Equal(t, 26000, *d.HousingUnits)

	assert.Contains(t, gotQuery, "key=test-key")
	assert.Contains(t, gotQuery, "zip+code+tabulation+area%3A94301")
}

func TestZCTADemographics_SuppressedEstimatesAreNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// -666666666 is the ACS suppression sentinel; null happens too.
		w.Write([]byte(`[
			["B01003_001E","B19013_001E","B25077_001E","B25001_001E","zip code tabulation area"],
			["120","-666666666",null,"55","94027"]
		]`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL))
	d, err := c.ZCTADemographics(context.Background(), "94027")
	require.NoError(t, err)
	require.NotNil(t, d)

	assert.NotNil(t, d.Population)
	assert.Nil(t, d.MedianIncome)
	assert.Nil(t, d.HomeValue)
	assert.NotNil(t, d.HousingUnits)
}

func TestZCTADemographics_UnknownZCTAIsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL))
	d, err := c.ZCTADemographics(context.Background(), "00000")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestZCTADemographics_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL))
	_, err := c.ZCTADemographics(context.Background(), "94301")
	require.Error(t, err)
	assert.True(t, resilience.IsRetryable(err))
}

func TestFetchAll_SkipsFailedZips(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("for") == "zip code tabulation area:94002" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[
			["B01003_001E","B19013_001E","B25077_001E","B25001_001E","zip code tabulation area"],
			["1000","90000","800000","400","94301"]
		]`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL))
	retry := resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}

	out, err := FetchAll(context.Background(), c, []string{"94301", "94002"}, rate.NewLimiter(rate.Inf, 1), retry)
	require.NoError(t, err)

	assert.Contains(t, out, "94301")
	assert.NotContains(t, out, "94002")
	// 94002 burned its retry budget: one call for 94301, two for 94002.
	assert.Equal(t, int64(3), calls.Load())
}

func TestCacheRoundTrip(t *testing.T) {
	pop := 1000
	income := 90000.0
	data := map[string]Demographics{
		"94301": {Zip: "94301", Population: &pop, MedianIncome: &income},
		"94025": {Zip: "94025"},
	}

	path := t.TempDir() + "/census.csv"
	require.NoError(t, SaveCache(path, data))

	got, err := LoadCache(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestLoadCache_MissingFileIsNil(t *testing.T) {
	got, err := LoadCache(t.TempDir() + "/absent.csv")
	require.NoError(t, err)
	assert.Nil(t, got)
}
