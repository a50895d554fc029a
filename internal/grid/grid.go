// Package grid generates the covering set of sample points used to sweep a
// city with fixed-radius nearby searches.
package grid

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/forks-fortunes/internal/model"
)

// kmPerDegree is the rough conversion used to lay out the lattice. The
// sweep is clipped by true haversine distance, so the approximation only
// affects point spacing, not coverage.
const kmPerDegree = 111.0

const earthRadiusKM = 6371.0

// Generate lays out a square lattice of grid points centered on center,
// spaced stepKM apart and clipped to cityRadiusKM by haversine distance.
// Point order is deterministic: dx sweeps west to east, dy south to north
// within each column, so indices are stable across runs with identical
// inputs. stepKM must not exceed the per-point search radius, otherwise
// adjacent circles would leave coverage gaps.
func Generate(center model.Coordinate, cityRadiusKM, stepKM float64, searchRadiusM int) ([]model.GridPoint, error) {
	if cityRadiusKM <= 0 {
		return nil, eris.New("grid: city radius must be > 0")
	}
	if stepKM <= 0 {
		return nil, eris.New("grid: step must be > 0")
	}
	if searchRadiusM <= 0 {
		return nil, eris.New("grid: search radius must be > 0")
	}
	if stepKM*1000 > float64(searchRadiusM) {
		return nil, eris.Errorf("grid: step %.2f km exceeds search radius %d m", stepKM, searchRadiusM)
	}

	deltaDeg := stepKM / kmPerDegree
	steps := int(cityRadiusKM / stepKM)

	var points []model.GridPoint
	for dx := -steps; dx <= steps; dx++ {
		for dy := -steps; dy <= steps; dy++ {
			lat := center.Lat + float64(dy)*deltaDeg
			lng := center.Lng + float64(dx)*deltaDeg
			if HaversineKM(center.Lat, center.Lng, lat, lng) > cityRadiusKM {
				continue
			}
			points = append(points, model.GridPoint{
				Index:   len(points),
				Lat:     lat,
				Lng:     lng,
				RadiusM: searchRadiusM,
			})
		}
	}
	return points, nil
}

// HaversineKM returns the great-circle distance between two coordinates in
// kilometers.
func HaversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
