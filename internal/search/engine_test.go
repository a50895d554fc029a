package search

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/forks-fortunes/internal/model"
	"github.com/sells-group/forks-fortunes/internal/resilience"
	"github.com/sells-group/forks-fortunes/internal/store"
	"github.com/sells-group/forks-fortunes/pkg/places"
	"github.com/sells-group/forks-fortunes/pkg/places/mocks"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func newTestEngine(t *testing.T, client places.Client, st store.Store, maxPages int) *Engine {
	t.Helper()
	return New(client, st, rate.NewLimiter(rate.Inf, 1), Config{
		MaxPages:       maxPages,
		PageTokenDelay: time.Millisecond,
		Retry: resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
		},
	})
}

func fullPage(prefix string) []places.Place {
	pl := make([]places.Place, pageSize)
	for i := range pl {
		pl[i] = places.Place{
			PlaceID: fmt.Sprintf("%s-%02d", prefix, i),
			Name:    fmt.Sprintf("Restaurant %s %d", prefix, i),
		}
	}
	return pl
}

func isPageTokenReq(token string) any {
	return mock.MatchedBy(func(req places.NearbySearchRequest) bool {
		return req.PageToken == token
	})
}

func isPointReq(lat, lng float64) any {
	return mock.MatchedBy(func(req places.NearbySearchRequest) bool {
		return req.PageToken == "" && req.Lat == lat && req.Lng == lng
	})
}

func TestSearchCity_PaginatesAndCaches(t *testing.T) {
	client := mocks.NewMockClient(t)
	st := newTestStore(t)
	eng := newTestEngine(t, client, st, 10)

	point := model.GridPoint{Index: 0, Lat: 37.44, Lng: -122.14, RadiusM: 1000}

	client.On("NearbySearch", mock.Anything, isPointReq(37.44, -122.14)).
		Return(&places.NearbySearchResponse{
			Status:        places.StatusOK,
			Results:       fullPage("p0"),
			NextPageToken: "token-1",
		}, nil).Once()
	client.On("NearbySearch", mock.Anything, isPageTokenReq("token-1")).
		Return(&places.NearbySearchResponse{
			Status:  places.StatusOK,
			Results: []places.Place{{PlaceID: "p1-00", Name: "Last One"}},
		}, nil).Once()

	res, err := eng.SearchCity(context.Background(), "Palo Alto", []model.GridPoint{point})
	require.NoError(t, err)

	assert.Len(t, res.Results, pageSize+1)
	assert.Equal(t, "p0-00", res.Results[0].PlaceID)
	assert.Equal(t, "p1-00", res.Results[pageSize].PlaceID)
	assert.Equal(t, model.Coverage{
		TotalPoints:    1,
		SearchedPoints: 1,
		FetchedPages:   2,
	}, res.Coverage)

	// Both pages landed in the cache.
	_, ok, err := st.GetCachedPage(context.Background(), "Palo Alto", 0, 0)
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = st.GetCachedPage(context.Background(), "Palo Alto", 0, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSearchCity_ReplaysCompleteCache(t *testing.T) {
	client := mocks.NewMockClient(t) // no calls expected
	st := newTestStore(t)
	eng := newTestEngine(t, client, st, 10)

	cached := []model.PlaceResult{{PlaceID: "cached-a"}, {PlaceID: "cached-b"}}
	require.NoError(t, st.PutCachedPage(context.Background(), "Palo Alto", 0, 0, cached))

	res, err := eng.SearchCity(context.Background(), "Palo Alto", []model.GridPoint{{Index: 0}})
	require.NoError(t, err)

	assert.Equal(t, cached, res.Results)
	assert.Equal(t, model.Coverage{
		TotalPoints:    1,
		SearchedPoints: 1,
		CachedPages:    1,
	}, res.Coverage)
}

func TestSearchCity_RestartsPointWithTruncatedCache(t *testing.T) {
	client := mocks.NewMockClient(t)
	st := newTestStore(t)
	eng := newTestEngine(t, client, st, 3)

	// A cached full page with no successor means the run died mid-point and
	// the pagination token is gone.
	truncated := convertPage(fullPage("stale"))
	require.NoError(t, st.PutCachedPage(context.Background(), "Palo Alto", 4, 0, truncated))

	client.On("NearbySearch", mock.Anything, isPointReq(37.44, -122.14)).
		Return(&places.NearbySearchResponse{
			Status:  places.StatusOK,
			Results: []places.Place{{PlaceID: "fresh-00"}},
		}, nil).Once()

	res, err := eng.SearchCity(context.Background(), "Palo Alto",
		[]model.GridPoint{{Index: 4, Lat: 37.44, Lng: -122.14, RadiusM: 1000}})
	require.NoError(t, err)

	require.Len(t, res.Results, 1)
	assert.Equal(t, "fresh-00", res.Results[0].PlaceID)
	assert.Equal(t, 0, res.Coverage.CachedPages)
	assert.Equal(t, 1, res.Coverage.FetchedPages)
}

func TestSearchCity_TransientExhaustionDegradesPoint(t *testing.T) {
	client := mocks.NewMockClient(t)
	st := newTestStore(t)
	eng := newTestEngine(t, client, st, 10)

	throttled := resilience.NewThrottledError(assert.AnError, 429)
	client.On("NearbySearch", mock.Anything, mock.Anything).Return(nil, throttled)

	res, err := eng.SearchCity(context.Background(), "Palo Alto",
		[]model.GridPoint{{Index: 0, Lat: 1, Lng: 2, RadiusM: 1000}, {Index: 1, Lat: 3, Lng: 4, RadiusM: 1000}})
	require.NoError(t, err)

	assert.Empty(t, res.Results)
	assert.Equal(t, model.Coverage{
		TotalPoints:   2,
		SkippedPoints: 2,
	}, res.Coverage)
}

func TestSearchCity_FatalAbortsCity(t *testing.T) {
	client := mocks.NewMockClient(t)
	st := newTestStore(t)
	eng := newTestEngine(t, client, st, 10)

	client.On("NearbySearch", mock.Anything, mock.Anything).
		Return(nil, resilience.ErrAuthDenied)

	_, err := eng.SearchCity(context.Background(), "Palo Alto",
		[]model.GridPoint{{Index: 0, Lat: 1, Lng: 2, RadiusM: 1000}})
	require.Error(t, err)
	assert.True(t, resilience.IsFatal(err))
}

func TestSearchCity_EmptyPage(t *testing.T) {
	client := mocks.NewMockClient(t)
	st := newTestStore(t)
	eng := newTestEngine(t, client, st, 10)

	client.On("NearbySearch", mock.Anything, mock.Anything).
		Return(&places.NearbySearchResponse{Status: places.StatusZeroResults}, nil).Once()

	res, err := eng.SearchCity(context.Background(), "Colma",
		[]model.GridPoint{{Index: 0, Lat: 1, Lng: 2, RadiusM: 1000}})
	require.NoError(t, err)

	assert.Empty(t, res.Results)
	assert.Equal(t, 1, res.Coverage.FetchedPages)
	assert.Equal(t, 1, res.Coverage.SearchedPoints)
}
