// Package citygeo derives city centers from a Census TIGER PLACE shapefile,
// replacing network geocoding when a local extract is available.
package citygeo

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/forks-fortunes/internal/model"
)

// LoadCentroids reads a TIGER PLACE shapefile and returns place name ->
// polygon centroid. When cities is non-empty only those names are kept.
func LoadCentroids(shpPath string, cities []string) (map[string]model.Coordinate, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "citygeo: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, "NAME") {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 {
		return nil, eris.New("citygeo: shapefile has no NAME field")
	}

	wanted := map[string]bool{}
	for _, c := range cities {
		wanted[c] = true
	}

	centroids := map[string]model.Coordinate{}
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if name == "" || (len(wanted) > 0 && !wanted[name]) {
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		center, err := polygonCentroid(poly)
		if err != nil {
			skipped++
			continue
		}
		centroids[name] = *center
	}

	if skipped > 0 {
		zap.L().Debug("citygeo: skipped shapefile records", zap.Int("skipped", skipped))
	}
	zap.L().Info("loaded place centroids",
		zap.String("path", shpPath),
		zap.Int("places", len(centroids)),
	)
	return centroids, nil
}

// polygonCentroid converts a shapefile Polygon to a MultiPolygon and takes
// its area centroid.
func polygonCentroid(p *shp.Polygon) (*model.Coordinate, error) {
	mp := polygonToMultiPolygon(p)
	if mp == nil {
		return nil, eris.New("citygeo: empty polygon")
	}

	c, err := xy.Centroid(mp)
	if err != nil {
		return nil, eris.Wrap(err, "citygeo: centroid")
	}
	return &model.Coordinate{Lat: c[1], Lng: c[0]}, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("citygeo: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		if err := mp.Push(poly); err != nil {
			zap.L().Debug("citygeo: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
