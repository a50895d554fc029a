// Package store persists city checkpoints and the nearby-search page cache.
package store

import (
	"context"

	"github.com/sells-group/forks-fortunes/internal/model"
)

// Store defines the persistence interface for the analysis pipeline.
// Implementations are injected; callers never hardwire a database path.
type Store interface {
	// Completions
	//
	// GetCompletion returns nil when the city has no completion marker.
	// WriteCompletion lands establishments, summary, and the completion
	// marker in a single transaction: a crash mid-write leaves no marker,
	// so the next run redoes the city instead of trusting partial rows.
	GetCompletion(ctx context.Context, city string) (*model.CityCheckpoint, error)
	WriteCompletion(ctx context.Context, city string, ests []model.Establishment, summary model.CitySummary) error
	ListCompletions(ctx context.Context) ([]model.CityCheckpoint, error)
	GetEstablishments(ctx context.Context, city string) ([]model.Establishment, error)

	// Page cache, keyed by (city, grid point index, page index). Lets a
	// resumed run skip pages it already paid API quota for.
	GetCachedPage(ctx context.Context, city string, pointIdx, pageIdx int) ([]model.PlaceResult, bool, error)
	PutCachedPage(ctx context.Context, city string, pointIdx, pageIdx int, results []model.PlaceResult) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
