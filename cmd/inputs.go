package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/forks-fortunes/internal/citygeo"
	"github.com/sells-group/forks-fortunes/internal/cityzip"
	"github.com/sells-group/forks-fortunes/internal/model"
	"github.com/sells-group/forks-fortunes/internal/pipeline"
	"github.com/sells-group/forks-fortunes/internal/resilience"
	"github.com/sells-group/forks-fortunes/internal/zillow"
	"github.com/sells-group/forks-fortunes/pkg/census"
)

// loadInputs assembles the wealth join and optional shapefile centroids. A
// missing ZHVI export degrades to summaries without density metrics rather
// than failing the run; a configured-but-broken shapefile is an error.
func loadInputs(ctx context.Context, registry *model.CityRegistry) (pipeline.Inputs, error) {
	var inputs pipeline.Inputs

	entries, err := zillow.LoadZHVI(cfg.Zillow.File, registry.State, registry.SortedZips())
	if err != nil {
		zap.L().Warn("home values unavailable, densities will be absent",
			zap.String("file", cfg.Zillow.File), zap.Error(err))
		entries = map[string]zillow.Entry{}
	}

	grouping := cityzip.New(zillow.CityByZip(entries))
	propertyByCity := grouping.MaxByCity(zillow.Values(entries))

	demographics, err := loadDemographics(ctx, registry)
	if err != nil {
		return inputs, err
	}
	popByZip := map[string]int{}
	incomeByZip := map[string]float64{}
	for zip, d := range demographics {
		if d.Population != nil {
			popByZip[zip] = *d.Population
		}
		if d.MedianIncome != nil {
			incomeByZip[zip] = *d.MedianIncome
		}
	}
	popByCity := grouping.SumByCity(popByZip)
	incomeByCity := grouping.MeanByCity(incomeByZip)

	inputs.Wealth = map[string]model.CityWealth{}
	for _, city := range grouping.Cities() {
		var w model.CityWealth
		if v, ok := propertyByCity[city]; ok {
			value := v
			w.PropertyValue = &value
		}
		if p, ok := popByCity[city]; ok {
			pop := p
			w.Population = &pop
		}
		if inc, ok := incomeByCity[city]; ok {
			income := inc
			w.MedianIncome = &income
		}
		inputs.Wealth[city] = w
	}

	if cfg.Geocode.PlacesShapefile != "" {
		centroids, err := citygeo.LoadCentroids(cfg.Geocode.PlacesShapefile, registry.AllCities())
		if err != nil {
			return inputs, eris.Wrap(err, "load place centroids")
		}
		inputs.Centroids = centroids
	}

	return inputs, nil
}

// loadDemographics serves ACS data from the local cache when present, and
// refreshes the cache after a live fetch.
func loadDemographics(ctx context.Context, registry *model.CityRegistry) (map[string]census.Demographics, error) {
	cached, err := census.LoadCache(cfg.Census.CacheFile)
	if err != nil {
		return nil, eris.Wrap(err, "read census cache")
	}
	if cached != nil {
		zap.L().Info("using cached demographics",
			zap.String("file", cfg.Census.CacheFile),
			zap.Int("zips", len(cached)),
		)
		return cached, nil
	}

	opts := []census.Option{}
	if cfg.Census.BaseURL != "" {
		opts = append(opts, census.WithBaseURL(cfg.Census.BaseURL))
	}
	client := census.NewClient(cfg.Census.Key, opts...)
	limiter := rate.NewLimiter(rate.Limit(cfg.Census.RateLimit), 1)

	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("census", "zcta_demographics")

	data, err := census.FetchAll(ctx, client, registry.SortedZips(), limiter, retry)
	if err != nil {
		return nil, eris.Wrap(err, "fetch demographics")
	}

	if err := census.SaveCache(cfg.Census.CacheFile, data); err != nil {
		zap.L().Warn("census cache write failed", zap.Error(err))
	}
	return data, nil
}
