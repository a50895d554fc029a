// Package zillow loads ZIP-level home values from a Zillow ZHVI export.
package zillow

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Entry is one ZIP's latest home value.
type Entry struct {
	Zip   string
	City  string
	Value float64
}

// LoadZHVI parses a Zillow Home Value Index CSV: California rows only, the
// most recent YYYY-MM month column, ZIPs zero-padded to five digits and
// restricted to the study-area set when one is given. Rows whose latest value
// is blank or unparseable are dropped.
func LoadZHVI(path, state string, zips []string) (map[string]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zillow: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "zillow: read header")
	}

	zipIdx, stateIdx, cityIdx := -1, -1, -1
	latestIdx := -1
	latestMonth := ""
	for i, col := range header {
		switch col {
		case "RegionName":
			zipIdx = i
		case "State":
			stateIdx = i
		case "City":
			cityIdx = i
		default:
			if isMonthColumn(col) && col > latestMonth {
				latestMonth = col
				latestIdx = i
			}
		}
	}
	if zipIdx < 0 || stateIdx < 0 || cityIdx < 0 {
		return nil, eris.New("zillow: missing RegionName/State/City columns")
	}
	if latestIdx < 0 {
		return nil, eris.New("zillow: no YYYY-MM value columns")
	}

	wanted := map[string]bool{}
	for _, z := range zips {
		wanted[z] = true
	}

	entries := map[string]Entry{}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "zillow: read row")
		}
		if rec[stateIdx] != state {
			continue
		}

		zip := padZip(rec[zipIdx])
		if len(wanted) > 0 && !wanted[zip] {
			continue
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(rec[latestIdx]), 64)
		if err != nil {
			continue
		}
		entries[zip] = Entry{Zip: zip, City: rec[cityIdx], Value: value}
	}

	zap.L().Info("loaded home values",
		zap.String("month", latestMonth),
		zap.Int("zips", len(entries)),
	)
	return entries, nil
}

// CityByZip extracts the zip -> city mapping carried in the ZHVI rows.
func CityByZip(entries map[string]Entry) map[string]string {
	m := make(map[string]string, len(entries))
	for zip, e := range entries {
		m[zip] = e.City
	}
	return m
}

// Values extracts the zip -> home value mapping.
func Values(entries map[string]Entry) map[string]float64 {
	m := make(map[string]float64, len(entries))
	for zip, e := range entries {
		m[zip] = e.Value
	}
	return m
}

// SortedZips returns the loaded ZIPs in ascending order.
func SortedZips(entries map[string]Entry) []string {
	zips := make([]string, 0, len(entries))
	for zip := range entries {
		zips = append(zips, zip)
	}
	sort.Strings(zips)
	return zips
}

// isMonthColumn matches the Zillow month header format "YYYY-MM".
func isMonthColumn(col string) bool {
	if len(col) != 7 || col[4] != '-' {
		return false
	}
	for i, c := range col {
		if i == 4 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func padZip(zip string) string {
	zip = strings.TrimSpace(zip)
	for len(zip) < 5 {
		zip = "0" + zip
	}
	return zip
}
