// Package dedupe folds per-point search batches into one set of unique
// establishments.
package dedupe

import (
	"sort"

	"github.com/sells-group/forks-fortunes/internal/model"
)

// Dedupe groups raw results by catalog place ID and selects one
// representative per group: the record with the highest rating count, ties
// broken by first-seen input order. The rule is fixed so re-runs over the
// same input produce identical output. Every input place ID appears in the
// result exactly once.
func Dedupe(results []model.PlaceResult) map[string]model.Establishment {
	type candidate struct {
		result    model.PlaceResult
		firstSeen int
	}

	best := make(map[string]candidate)
	for i, r := range results {
		cur, ok := best[r.PlaceID]
		if !ok {
			best[r.PlaceID] = candidate{result: r, firstSeen: i}
			continue
		}
		if r.RatingCount > cur.result.RatingCount {
			// Keep the original first-seen position for stable ordering.
			best[r.PlaceID] = candidate{result: r, firstSeen: cur.firstSeen}
		}
	}

	out := make(map[string]model.Establishment, len(best))
	for id, c := range best {
		out[id] = model.Establishment{PlaceResult: c.result}
	}
	return out
}

// Sorted returns establishments ordered by place ID, for deterministic
// persistence and reporting.
func Sorted(ests map[string]model.Establishment) []model.Establishment {
	ids := make([]string, 0, len(ests))
	for id := range ests {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]model.Establishment, 0, len(ids))
	for _, id := range ids {
		out = append(out, ests[id])
	}
	return out
}
