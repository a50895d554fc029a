package model

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Tier groups cities by wealth band for subset runs.
type Tier struct {
	Name   string   `yaml:"name"`
	Cities []string `yaml:"cities"`
}

// CityRegistry is the configured set of analyzable cities, loaded from
// cities.yaml. State applies to every city (the study area is a single
// state); Smoke is the quick-test subset.
type CityRegistry struct {
	State string   `yaml:"state"`
	Tiers []Tier   `yaml:"tiers"`
	Smoke []string `yaml:"smoke"`
	Zips  []string `yaml:"zips"`
}

// LoadCityRegistry reads and validates a cities.yaml file.
func LoadCityRegistry(path string) (*CityRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "model: read city registry %s", path)
	}

	var reg CityRegistry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, eris.Wrap(err, "model: unmarshal city registry")
	}

	if len(reg.Tiers) == 0 {
		return nil, eris.New("model: city registry has no tiers")
	}
	seen := map[string]bool{}
	for _, tier := range reg.Tiers {
		if tier.Name == "" {
			return nil, eris.New("model: tier with empty name")
		}
		for _, city := range tier.Cities {
			if seen[city] {
				return nil, eris.Errorf("model: city %q appears in more than one tier", city)
			}
			seen[city] = true
		}
	}
	for _, city := range reg.Smoke {
		if !seen[city] {
			return nil, eris.Errorf("model: smoke city %q is not in any tier", city)
		}
	}
	if reg.State == "" {
		reg.State = "CA"
	}

	return &reg, nil
}

// AllCities returns every city across all tiers in tier order.
func (r *CityRegistry) AllCities() []string {
	var cities []string
	for _, tier := range r.Tiers {
		cities = append(cities, tier.Cities...)
	}
	return cities
}

// TierCities returns the cities of the named tier, or false when the tier
// does not exist.
func (r *CityRegistry) TierCities(name string) ([]string, bool) {
	for _, tier := range r.Tiers {
		if tier.Name == name {
			return tier.Cities, true
		}
	}
	return nil, false
}

// TierNames returns tier names in declaration order.
func (r *CityRegistry) TierNames() []string {
	names := make([]string, 0, len(r.Tiers))
	for _, tier := range r.Tiers {
		names = append(names, tier.Name)
	}
	return names
}

// TierOf returns the tier a city belongs to, or "" when unknown.
func (r *CityRegistry) TierOf(city string) string {
	for _, tier := range r.Tiers {
		for _, c := range tier.Cities {
			if c == city {
				return tier.Name
			}
		}
	}
	return ""
}

// Contains reports whether the city is registered in any tier.
func (r *CityRegistry) Contains(city string) bool {
	return r.TierOf(city) != ""
}

// SortedZips returns the study-area ZIP codes in ascending order.
func (r *CityRegistry) SortedZips() []string {
	zips := append([]string(nil), r.Zips...)
	sort.Strings(zips)
	return zips
}
