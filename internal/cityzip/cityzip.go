// Package cityzip joins ZIP-level datasets up to city level.
package cityzip

import "sort"

// Grouping maps between cities and their ZIP codes. Built from the zip ->
// city relation the home-value export carries, so the same grouping joins
// both property values and demographics.
type Grouping struct {
	cityByZip  map[string]string
	zipsByCity map[string][]string
}

// New builds a Grouping from a zip -> city mapping.
func New(cityByZip map[string]string) *Grouping {
	g := &Grouping{
		cityByZip:  make(map[string]string, len(cityByZip)),
		zipsByCity: map[string][]string{},
	}
	for zip, city := range cityByZip {
		g.cityByZip[zip] = city
		g.zipsByCity[city] = append(g.zipsByCity[city], zip)
	}
	for city := range g.zipsByCity {
		sort.Strings(g.zipsByCity[city])
	}
	return g
}

// CityFor returns the city a ZIP belongs to.
func (g *Grouping) CityFor(zip string) (string, bool) {
	city, ok := g.cityByZip[zip]
	return city, ok
}

// ZipsFor returns a city's ZIPs in ascending order.
func (g *Grouping) ZipsFor(city string) []string {
	return g.zipsByCity[city]
}

// Cities returns the known cities in ascending order.
func (g *Grouping) Cities() []string {
	cities := make([]string, 0, len(g.zipsByCity))
	for city := range g.zipsByCity {
		cities = append(cities, city)
	}
	sort.Strings(cities)
	return cities
}

// MaxByCity reduces a per-ZIP value to the city maximum. Cities with no
// valued ZIPs are absent from the result, never zero.
func (g *Grouping) MaxByCity(values map[string]float64) map[string]float64 {
	out := map[string]float64{}
	for zip, v := range values {
		city, ok := g.cityByZip[zip]
		if !ok {
			continue
		}
		if cur, seen := out[city]; !seen || v > cur {
			out[city] = v
		}
	}
	return out
}

// SumByCity reduces a per-ZIP count to the city total.
func (g *Grouping) SumByCity(counts map[string]int) map[string]int {
	out := map[string]int{}
	for zip, n := range counts {
		city, ok := g.cityByZip[zip]
		if !ok {
			continue
		}
		out[city] += n
	}
	return out
}

// MeanByCity reduces a per-ZIP value to the city mean.
func (g *Grouping) MeanByCity(values map[string]float64) map[string]float64 {
	sums := map[string]float64{}
	counts := map[string]int{}
	for zip, v := range values {
		city, ok := g.cityByZip[zip]
		if !ok {
			continue
		}
		sums[city] += v
		counts[city]++
	}

	out := make(map[string]float64, len(sums))
	for city, sum := range sums {
		out[city] = sum / float64(counts[city])
	}
	return out
}
