package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryYAML = `
state: CA
tiers:
  - name: ultra_wealthy
    cities: [Atherton, Hillsborough]
  - name: high_wealth
    cities: [Palo Alto, Menlo Park]
smoke: [Atherton, Palo Alto]
zips: ["94301", "94027", "94010"]
`

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCityRegistry(t *testing.T) {
	reg, err := LoadCityRegistry(writeRegistry(t, registryYAML))
	require.NoError(t, err)

	assert.Equal(t, "CA", reg.State)
	assert.Equal(t, []string{"Atherton", "Hillsborough", "Palo Alto", "Menlo Park"}, reg.AllCities())
	assert.Equal(t, []string{"ultra_wealthy", "high_wealth"}, reg.TierNames())
	assert.Equal(t, "high_wealth", reg.TierOf("Menlo Park"))
	assert.Equal(t, "", reg.TierOf("Gotham"))
	assert.True(t, reg.Contains("Atherton"))
	assert.False(t, reg.Contains("Gotham"))

	cities, ok := reg.TierCities("ultra_wealthy")
	require.True(t, ok)
	assert.Equal(t, []string{"Atherton", "Hillsborough"}, cities)

	_, ok = reg.TierCities("nonexistent")
	assert.False(t, ok)

	assert.Equal(t, []string{"94010", "94027", "94301"}, reg.SortedZips())
}

func TestLoadCityRegistry_Invalid(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadCityRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("no tiers", func(t *testing.T) {
		_, err := LoadCityRegistry(writeRegistry(t, "state: CA\nsmoke: []\n"))
		assert.Error(t, err)
	})

	t.Run("duplicate city across tiers", func(t *testing.T) {
		_, err := LoadCityRegistry(writeRegistry(t, `
tiers:
  - name: a
    cities: [Atherton]
  - name: b
    cities: [Atherton]
`))
		assert.Error(t, err)
	})

	t.Run("smoke city not in a tier", func(t *testing.T) {
		_, err := LoadCityRegistry(writeRegistry(t, `
tiers:
  - name: a
    cities: [Atherton]
smoke: [Palo Alto]
`))
		assert.Error(t, err)
	})
}
