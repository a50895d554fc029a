package census

import (
	"encoding/csv"
	"os"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var cacheHeader = []string{"zip", "population", "median_income", "median_home_value", "housing_units"}

// SaveCache writes fetched demographics to a CSV so later runs skip the API.
func SaveCache(path string, data map[string]Demographics) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "census: create cache %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(cacheHeader); err != nil {
		return eris.Wrap(err, "census: write cache header")
	}
	for _, zip := range sortedKeys(data) {
		d := data[zip]
		rec := []string{
			d.Zip,
			formatCount(d.Population),
			formatEstimate(d.MedianIncome),
			formatEstimate(d.HomeValue),
			formatCount(d.HousingUnits),
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrap(err, "census: write cache row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "census: flush cache")
}

// LoadCache reads a previously saved demographics CSV. A missing file is not
// an error; it returns (nil, nil) so the caller falls through to the API.
func LoadCache(path string) (map[string]Demographics, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "census: open cache %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "census: read cache")
	}
	if len(rows) < 1 {
		return nil, nil
	}

	out := map[string]Demographics{}
	for _, rec := range rows[1:] {
		if len(rec) != len(cacheHeader) || rec[0] == "" {
			continue
		}
		out[rec[0]] = Demographics{
			Zip:          rec[0],
			Population:   scanCount(rec[1]),
			MedianIncome: scanEstimate(rec[2]),
			HomeValue:    scanEstimate(rec[3]),
			HousingUnits: scanCount(rec[4]),
		}
	}

	zap.L().Info("loaded demographics cache", zap.String("path", path), zap.Int("zips", len(out)))
	return out, nil
}

// sortedKeys keeps cache rows in a stable, diffable order.
func sortedKeys(data map[string]Demographics) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatEstimate(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatCount(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func scanEstimate(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func scanCount(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
