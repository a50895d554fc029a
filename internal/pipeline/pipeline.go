// Package pipeline orchestrates the per-city analysis: center resolution,
// grid sweep, dedup, scoring, aggregation, checkpoint.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/forks-fortunes/internal/aggregate"
	"github.com/sells-group/forks-fortunes/internal/config"
	"github.com/sells-group/forks-fortunes/internal/dedupe"
	"github.com/sells-group/forks-fortunes/internal/grid"
	"github.com/sells-group/forks-fortunes/internal/model"
	"github.com/sells-group/forks-fortunes/internal/resilience"
	"github.com/sells-group/forks-fortunes/internal/scorer"
	"github.com/sells-group/forks-fortunes/internal/search"
	"github.com/sells-group/forks-fortunes/internal/store"
	"github.com/sells-group/forks-fortunes/pkg/geocode"
)

// Inputs carries the joined external datasets a run needs per city. Either
// map may be sparse; cities without entries get nil-guarded summaries.
type Inputs struct {
	// Centroids overrides network geocoding for cities present in the map
	// (loaded from a TIGER PLACE shapefile when configured).
	Centroids map[string]model.Coordinate

	// Wealth is the per-city demographic and property-value join.
	Wealth map[string]model.CityWealth
}

// Pipeline runs the analysis for one or more cities against a shared store
// and search engine.
type Pipeline struct {
	cfg      *config.Config
	registry *model.CityRegistry
	store    store.Store
	engine   *search.Engine
	geocoder geocode.Client
	inputs   Inputs
}

// New creates a Pipeline with all dependencies.
func New(
	cfg *config.Config,
	registry *model.CityRegistry,
	st store.Store,
	engine *search.Engine,
	geocoder geocode.Client,
	inputs Inputs,
) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		registry: registry,
		store:    st,
		engine:   engine,
		geocoder: geocoder,
		inputs:   inputs,
	}
}

// RunCity analyzes one city. A checkpointed city short-circuits without any
// catalog traffic; an interrupted city resumes through the page cache and
// lands the same summary an uninterrupted run would have produced.
func (p *Pipeline) RunCity(ctx context.Context, city string) (model.CityOutcome, error) {
	log := zap.L().With(zap.String("city", city))
	outcome := model.CityOutcome{City: city}

	cp, err := p.store.GetCompletion(ctx, city)
	if err != nil {
		return outcome, eris.Wrapf(err, "pipeline: read checkpoint %s", city)
	}
	if cp != nil {
		log.Info("city already complete, skipping",
			zap.Time("completed_at", cp.CompletedAt),
			zap.Int("establishments", cp.Summary.Count),
		)
		outcome.Resumed = true
		outcome.Count = cp.Summary.Count
		return outcome, nil
	}

	center, err := p.resolveCenter(ctx, city)
	if err != nil {
		return outcome, err
	}

	points, err := grid.Generate(center, p.cfg.Analysis.SearchRadiusKM, p.cfg.Analysis.StepKM, p.cfg.Places.SearchRadiusM)
	if err != nil {
		return outcome, eris.Wrapf(err, "pipeline: grid %s", city)
	}
	log.Info("grid generated",
		zap.Int("points", len(points)),
		zap.Float64("lat", center.Lat),
		zap.Float64("lng", center.Lng),
	)

	res, err := p.engine.SearchCity(ctx, city, points)
	if err != nil {
		return outcome, err
	}
	outcome.Coverage = res.Coverage

	ests := scorer.AnnotateAll(dedupe.Sorted(dedupe.Dedupe(res.Results)))
	summary := aggregate.Summarize(city, center, ests, p.inputs.Wealth[city])

	if err := p.store.WriteCompletion(ctx, city, ests, summary); err != nil {
		return outcome, eris.Wrapf(err, "pipeline: write checkpoint %s", city)
	}

	outcome.Count = len(ests)
	log.Info("city complete",
		zap.Int("establishments", outcome.Count),
		zap.Int("searched_points", res.Coverage.SearchedPoints),
		zap.Int("skipped_points", res.Coverage.SkippedPoints),
	)
	return outcome, nil
}

// Run analyzes cities sequentially. A city failure is contained so the rest
// of the batch still runs, except fatal auth/quota errors, which would fail
// every remaining city the same way.
func (p *Pipeline) Run(ctx context.Context, cities []string) (*model.RunReport, error) {
	report := &model.RunReport{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
	}
	log := zap.L().With(zap.String("run_id", report.RunID))
	log.Info("run starting", zap.Int("cities", len(cities)))

	for _, city := range cities {
		outcome, err := p.RunCity(ctx, city)
		if err != nil {
			outcome.Err = err.Error()
			report.Outcomes = append(report.Outcomes, outcome)

			if resilience.IsFatal(err) || ctx.Err() != nil {
				report.Duration = time.Since(report.StartedAt)
				return report, eris.Wrapf(err, "pipeline: run aborted at %s", city)
			}
			log.Warn("city failed, continuing", zap.String("city", city), zap.Error(err))
			continue
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.Duration = time.Since(report.StartedAt)
	log.Info("run complete",
		zap.Int("cities", len(report.Outcomes)),
		zap.Int("failed", len(report.Failed())),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// resolveCenter prefers a shapefile centroid and falls back to geocoding.
func (p *Pipeline) resolveCenter(ctx context.Context, city string) (model.Coordinate, error) {
	if center, ok := p.inputs.Centroids[city]; ok {
		return center, nil
	}

	res, err := p.geocoder.CityCenter(ctx, city, p.registry.State)
	if err != nil {
		return model.Coordinate{}, eris.Wrapf(err, "pipeline: geocode %s", city)
	}
	if !res.Matched {
		return model.Coordinate{}, eris.Errorf("pipeline: no center found for %s", city)
	}
	return res.Center, nil
}
