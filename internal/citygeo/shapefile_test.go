package citygeo

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// squarePolygon builds a closed 1x1 degree ring around the given corner.
func squarePolygon(x, y float64) *shp.Polygon {
	return &shp.Polygon{
		NumParts:  1,
		NumPoints: 5,
		Parts:     []int32{0},
		Points: []shp.Point{
			{X: x, Y: y},
			{X: x, Y: y + 1},
			{X: x + 1, Y: y + 1},
			{X: x + 1, Y: y},
			{X: x, Y: y},
		},
	}
}

func writePlaceShapefile(t *testing.T, names []string, polys []*shp.Polygon) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "places.shp")

	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	require.NoError(t, w.SetFields([]shp.Field{shp.StringField("NAME", 50)}))
	for i, poly := range polys {
		w.Write(poly)
		require.NoError(t, w.WriteAttribute(i, 0, names[i]))
	}
	w.Close()

	return path
}

func TestPolygonCentroid_Square(t *testing.T) {
	c, err := polygonCentroid(squarePolygon(-123.0, 37.0))
	require.NoError(t, err)

	assert.InDelta(t, 37.5, c.Lat, 1e-9)
	assert.InDelta(t, -122.5, c.Lng, 1e-9)
}

func TestPolygonCentroid_Empty(t *testing.T) {
	_, err := polygonCentroid(&shp.Polygon{})
	require.Error(t, err)
}

func TestLoadCentroids(t *testing.T) {
	path := writePlaceShapefile(t,
		[]string{"Palo Alto", "Menlo Park", "Fresno"},
		[]*shp.Polygon{
			squarePolygon(-123.0, 37.0),
			squarePolygon(-123.0, 39.0),
			squarePolygon(-120.0, 36.0),
		},
	)

	centroids, err := LoadCentroids(path, []string{"Palo Alto", "Menlo Park"})
	require.NoError(t, err)

	require.Len(t, centroids, 2)
	assert.InDelta(t, 37.5, centroids["Palo Alto"].Lat, 1e-9)
	assert.InDelta(t, 39.5, centroids["Menlo Park"].Lat, 1e-9)
	assert.NotContains(t, centroids, "Fresno")
}

func TestLoadCentroids_NoFilterKeepsAll(t *testing.T) {
	path := writePlaceShapefile(t,
		[]string{"Palo Alto"},
		[]*shp.Polygon{squarePolygon(-123.0, 37.0)},
	)

	centroids, err := LoadCentroids(path, nil)
	require.NoError(t, err)
	assert.Len(t, centroids, 1)
}

func TestLoadCentroids_MissingFile(t *testing.T) {
	_, err := LoadCentroids(filepath.Join(t.TempDir(), "nope.shp"), nil)
	require.Error(t, err)
}
