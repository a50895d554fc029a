package report

import (
	"context"
	"encoding/json"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/forks-fortunes/internal/model"
)

// mapMarker is the JSON shape each establishment takes in the Leaflet page.
type mapMarker struct {
	Lat    float64  `json:"lat"`
	Lng    float64  `json:"lng"`
	Name   string   `json:"name"`
	Rating *float64 `json:"rating,omitempty"`
	Score  *float64 `json:"score,omitempty"`
}

var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.City}} restaurants</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
const map = L.map('map').setView([{{.Lat}}, {{.Lng}}], 13);
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
  attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
const markers = {{.Markers}};
for (const m of markers) {
  let label = m.name;
  if (m.rating != null) label += ' — ' + m.rating.toFixed(1) + '★';
  if (m.score != null) label += ' (score ' + m.score.toFixed(2) + ')';
  L.circleMarker([m.lat, m.lng], {radius: 6}).addTo(map).bindPopup(label);
}
</script>
</body>
</html>
`))

type mapData struct {
	City    string
	Lat     float64
	Lng     float64
	Markers template.JS
}

// writeMaps renders one Leaflet HTML page per completed city, markers drawn
// from the stored establishment sets.
func (b *Builder) writeMaps(ctx context.Context, rows []Row) ([]string, error) {
	if err := os.MkdirAll(b.mapsDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create maps dir %s", b.mapsDir)
	}

	var paths []string
	for _, r := range rows {
		ests, err := b.store.GetEstablishments(ctx, r.Summary.City)
		if err != nil {
			return nil, eris.Wrapf(err, "report: load establishments %s", r.Summary.City)
		}

		path := filepath.Join(b.mapsDir, citySlug(r.Summary.City)+".html")
		if err := writeCityMap(path, r.Summary, ests); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCityMap(path string, summary model.CitySummary, ests []model.Establishment) error {
	markers := make([]mapMarker, 0, len(ests))
	for _, e := range ests {
		markers = append(markers, mapMarker{
			Lat:    e.Lat,
			Lng:    e.Lng,
			Name:   e.Name,
			Rating: e.Rating,
			Score:  e.QualityScore,
		})
	}
	encoded, err := json.Marshal(markers)
	if err != nil {
		return eris.Wrapf(err, "report: marshal markers %s", summary.City)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	data := mapData{
		City:    summary.City,
		Lat:     summary.Center.Lat,
		Lng:     summary.Center.Lng,
		Markers: template.JS(encoded), //nolint:gosec // marker JSON is locally generated
	}
	if err := mapTemplate.Execute(f, data); err != nil {
		return eris.Wrapf(err, "report: render map %s", summary.City)
	}
	return nil
}

func citySlug(city string) string {
	return strings.ReplaceAll(strings.ToLower(city), " ", "-")
}
