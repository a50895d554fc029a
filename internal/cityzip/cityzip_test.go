package cityzip

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testGrouping() *Grouping {
	return New(map[string]string{
		"94301": "Palo Alto",
		"94304": "Palo Alto",
		"94306": "Palo Alto",
		"94025": "Menlo Park",
	})
}

func TestLookups(t *testing.T) {
	g := testGrouping()

	city, ok := g.CityFor("94304")
	assert.True(t, ok)
	assert.Equal(t, "Palo Alto", city)

	_, ok = g.CityFor("00000")
	assert.False(t, ok)

	assert.Equal(t, []string{"94301", "94304", "94306"}, g.ZipsFor("Palo Alto"))
	assert.Empty(t, g.ZipsFor("Atlantis"))
	assert.Equal(t, []string{"Menlo Park", "Palo Alto"}, g.Cities())
}

func TestMaxByCity(t *testing.T) {
	g := testGrouping()

	out := g.MaxByCity(map[string]float64{
		"94301": 3500000,
		"94306": 2900000,
		"94025": 2800000,
		"99999": 1, // unknown zip ignored
	})

	assert.Equal(t, map[string]float64{
		"Palo Alto":  3500000,
		"Menlo Park": 2800000,
	}, out)
}

func TestMaxByCity_NoValuedZipsAbsent(t *testing.T) {
	g := testGrouping()

	out := g.MaxByCity(map[string]float64{"94025": 2800000})
	assert.NotContains(t, out, "Palo Alto")
}

func TestSumByCity(t *testing.T) {
	g := testGrouping()

	out := g.SumByCity(map[string]int{
		"94301": 10000,
		"94304": 5000,
		"94025": 30000,
	})

	assert.Equal(t, map[string]int{
		"Palo Alto":  15000,
		"Menlo Park": 30000,
	}, out)
}

func TestMeanByCity(t *testing.T) {
	g := testGrouping()

	out := g.MeanByCity(map[string]float64{
		"94301": 150000,
		"94306": 250000,
		"94025": 180000,
	})

	assert.InDelta(t, 200000, out["Palo Alto"], 1e-9)
	assert.InDelta(t, 180000, out["Menlo Park"], 1e-9)
}
