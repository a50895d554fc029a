// Package search sweeps a city's grid through the places catalog, paginating
// each point and caching pages for resumable runs.
package search

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/forks-fortunes/internal/model"
	"github.com/sells-group/forks-fortunes/internal/resilience"
	"github.com/sells-group/forks-fortunes/internal/store"
	"github.com/sells-group/forks-fortunes/pkg/places"
)

const (
	placeType = "restaurant"

	// pageSize is the catalog's fixed page length. A page shorter than this
	// has no follow-up token, which is how replayed cache runs detect the
	// end of pagination.
	pageSize = 20
)

// Config controls one engine instance.
type Config struct {
	// MaxPages bounds pagination per grid point. Default: 10.
	MaxPages int

	// PageTokenDelay is how long a next_page_token needs before it becomes
	// valid on the catalog side. Default: 2s.
	PageTokenDelay time.Duration

	// Concurrency is the number of grid points searched in parallel. All
	// workers share the engine's rate limiter. Default: 1.
	Concurrency int

	Retry resilience.RetryConfig
}

// Engine drives the grid sweep for one city at a time.
type Engine struct {
	client  places.Client
	store   store.Store
	limiter *rate.Limiter
	cfg     Config
}

// New creates an Engine. The limiter is shared with the caller so every
// catalog lookup in a run counts against one budget.
func New(client places.Client, st store.Store, limiter *rate.Limiter, cfg Config) *Engine {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 10
	}
	if cfg.PageTokenDelay <= 0 {
		cfg.PageTokenDelay = 2 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Engine{client: client, store: st, limiter: limiter, cfg: cfg}
}

// Result is the outcome of one city sweep. Results keeps grid order: all
// pages of point 0, then point 1, and so on, so downstream dedup tie-breaks
// stay deterministic.
type Result struct {
	Results  []model.PlaceResult
	Coverage model.Coverage
}

type pointOutcome struct {
	results      []model.PlaceResult
	cachedPages  int
	fetchedPages int
	skipped      bool
}

// SearchCity sweeps every grid point. Transient failures that survive the
// retry budget degrade the point to a coverage warning; auth and quota
// failures abort the whole city.
func (e *Engine) SearchCity(ctx context.Context, city string, points []model.GridPoint) (*Result, error) {
	log := zap.L().With(zap.String("component", "search"), zap.String("city", city))

	outcomes := make([]pointOutcome, len(points))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, pt := range points {
		g.Go(func() error {
			out, err := e.searchPoint(gctx, log, city, pt)
			if err != nil {
				return err
			}
			outcomes[i] = *out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrapf(err, "search: sweep %s", city)
	}

	res := &Result{Coverage: model.Coverage{TotalPoints: len(points)}}
	for _, out := range outcomes {
		res.Results = append(res.Results, out.results...)
		res.Coverage.CachedPages += out.cachedPages
		res.Coverage.FetchedPages += out.fetchedPages
		if out.skipped {
			res.Coverage.SkippedPoints++
		} else {
			res.Coverage.SearchedPoints++
		}
	}

	log.Info("sweep complete",
		zap.Int("points", res.Coverage.TotalPoints),
		zap.Int("skipped_points", res.Coverage.SkippedPoints),
		zap.Int("cached_pages", res.Coverage.CachedPages),
		zap.Int("fetched_pages", res.Coverage.FetchedPages),
		zap.Int("results", len(res.Results)),
	)
	return res, nil
}

func (e *Engine) searchPoint(ctx context.Context, log *zap.Logger, city string, pt model.GridPoint) (*pointOutcome, error) {
	out := &pointOutcome{}

	// Replay cached pages first. A full-length cached page had a follow-up
	// token we did not persist, so an unfinished cache run (last page full,
	// more pages allowed) restarts the point from scratch.
	page := 0
	for page < e.cfg.MaxPages {
		results, ok, err := e.store.GetCachedPage(ctx, city, pt.Index, page)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out.results = append(out.results, results...)
		out.cachedPages++
		page++
		if len(results) < pageSize {
			return out, nil
		}
	}
	if page >= e.cfg.MaxPages {
		return out, nil
	}
	if page > 0 {
		out.results = out.results[:0]
		out.cachedPages = 0
		page = 0
	}

	token := ""
	for ; page < e.cfg.MaxPages; page++ {
		if token != "" {
			// The catalog rejects a fresh token until it settles.
			timer := time.NewTimer(e.cfg.PageTokenDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		if err := e.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "search: rate limit wait")
		}

		req := places.NearbySearchRequest{PageToken: token}
		if token == "" {
			req = places.NearbySearchRequest{
				Lat:       pt.Lat,
				Lng:       pt.Lng,
				RadiusM:   pt.RadiusM,
				PlaceType: placeType,
			}
		}

		resp, err := resilience.DoVal(ctx, e.cfg.Retry, func(ctx context.Context) (*places.NearbySearchResponse, error) {
			return e.client.NearbySearch(ctx, req)
		})
		if err != nil {
			if resilience.IsFatal(err) || ctx.Err() != nil {
				return nil, err
			}
			log.Warn("grid point degraded after retries",
				zap.Int("point", pt.Index),
				zap.Int("page", page),
				zap.Error(err),
			)
			out.skipped = true
			return out, nil
		}

		pageResults := convertPage(resp.Results)
		if err := e.store.PutCachedPage(ctx, city, pt.Index, page, pageResults); err != nil {
			// A cache write failure costs a refetch on resume, not the run.
			log.Warn("page cache write failed",
				zap.Int("point", pt.Index),
				zap.Int("page", page),
				zap.Error(err),
			)
		}
		out.fetchedPages++
		out.results = append(out.results, pageResults...)

		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}

	return out, nil
}

func convertPage(pl []places.Place) []model.PlaceResult {
	results := make([]model.PlaceResult, 0, len(pl))
	for _, p := range pl {
		results = append(results, model.PlaceResult{
			PlaceID:     p.PlaceID,
			Name:        p.Name,
			Lat:         p.Geometry.Location.Lat,
			Lng:         p.Geometry.Location.Lng,
			Rating:      p.Rating,
			RatingCount: p.UserRatingsTotal,
			PriceTier:   p.PriceLevel,
			Types:       p.Types,
			Vicinity:    p.Vicinity,
		})
	}
	return results
}
