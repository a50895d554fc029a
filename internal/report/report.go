// Package report renders the merged per-city results into the output
// artifacts: a CSV table, an XLSX workbook, an insights markdown file, and
// per-city Leaflet maps.
package report

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/forks-fortunes/internal/model"
	"github.com/sells-group/forks-fortunes/internal/store"
)

// Row is one city's merged record: the checkpointed summary plus its wealth
// tier from the registry.
type Row struct {
	Summary model.CitySummary
	Tier    string
}

// Artifacts lists the files a Build produced.
type Artifacts struct {
	CSV      string
	XLSX     string
	Insights string
	Maps     []string
}

// Builder renders artifacts from whatever cities the store has completed.
type Builder struct {
	store    store.Store
	registry *model.CityRegistry
	dir      string
	mapsDir  string
}

// New creates a Builder writing into dir, with maps under mapsDir.
func New(st store.Store, registry *model.CityRegistry, dir, mapsDir string) *Builder {
	return &Builder{store: st, registry: registry, dir: dir, mapsDir: mapsDir}
}

// Build renders every artifact. It errors when no city has completed yet;
// everything else is best-effort only in the sense that cities missing from
// the store are simply absent from the output.
func (b *Builder) Build(ctx context.Context) (*Artifacts, error) {
	log := zap.L().With(zap.String("component", "report"))

	checkpoints, err := b.store.ListCompletions(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "report: list completions")
	}
	if len(checkpoints) == 0 {
		return nil, eris.New("report: no completed cities in the store")
	}

	rows := make([]Row, 0, len(checkpoints))
	for _, cp := range checkpoints {
		rows = append(rows, Row{Summary: cp.Summary, Tier: b.registry.TierOf(cp.City)})
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create output dir %s", b.dir)
	}

	art := &Artifacts{
		CSV:      filepath.Join(b.dir, "results.csv"),
		XLSX:     filepath.Join(b.dir, "results.xlsx"),
		Insights: filepath.Join(b.dir, "insights.md"),
	}

	if err := writeCSV(art.CSV, rows); err != nil {
		return nil, err
	}
	if err := writeXLSX(art.XLSX, rows); err != nil {
		return nil, err
	}
	if err := writeInsights(art.Insights, rows); err != nil {
		return nil, err
	}

	maps, err := b.writeMaps(ctx, rows)
	if err != nil {
		return nil, err
	}
	art.Maps = maps

	log.Info("report complete",
		zap.Int("cities", len(rows)),
		zap.Int("maps", len(maps)),
		zap.String("dir", b.dir),
	)
	return art, nil
}

var csvHeader = []string{
	"city", "tier", "establishments",
	"mean_rating", "mean_quality_score", "high_rated_fraction",
	"well_reviewed", "expensive", "budget",
	"population", "median_income", "property_value",
	"per_1k_residents", "per_billion_value",
}

func recordFor(r Row) []string {
	s := r.Summary
	return []string{
		s.City,
		r.Tier,
		strconv.Itoa(s.Count),
		fmtFloat(s.MeanRating, 2),
		fmtFloat(s.MeanQualityScore, 2),
		fmtFloat(s.HighRatedFraction, 3),
		strconv.Itoa(s.WellReviewedCount),
		strconv.Itoa(s.ExpensiveCount),
		strconv.Itoa(s.BudgetCount),
		fmtInt(s.Population),
		fmtFloat(s.MedianIncome, 0),
		fmtFloat(s.PropertyValue, 0),
		fmtFloat(s.PerThousandResidents, 2),
		fmtFloat(s.PerBillionValue, 2),
	}
}

func writeCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for _, r := range rows {
		if err := w.Write(recordFor(r)); err != nil {
			return eris.Wrapf(err, "report: write csv row %s", r.Summary.City)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "report: flush csv")
	}
	return nil
}

func writeXLSX(path string, rows []Row) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("Cities")
	if err != nil {
		return eris.Wrap(err, "report: add xlsx sheet")
	}
	header := sheet.AddRow()
	for _, col := range csvHeader {
		header.AddCell().Value = col
	}
	for _, r := range rows {
		xr := sheet.AddRow()
		for _, val := range recordFor(r) {
			xr.AddCell().Value = val
		}
	}

	buckets, err := f.AddSheet("Rating Buckets")
	if err != nil {
		return eris.Wrap(err, "report: add xlsx sheet")
	}
	bh := buckets.AddRow()
	for _, col := range append([]string{"city"}, model.BucketNames...) {
		bh.AddCell().Value = col
	}
	for _, r := range rows {
		br := buckets.AddRow()
		br.AddCell().Value = r.Summary.City
		for _, bucket := range model.BucketNames {
			br.AddCell().SetInt(r.Summary.RatingBuckets[bucket])
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func fmtFloat(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}

func fmtInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// byDensityDesc orders rows for the insights tables: per-$B density first,
// then count as the tie-break, nil densities last.
func byDensityDesc(rows []Row) []Row {
	out := append([]Row(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Summary.PerBillionValue, out[j].Summary.PerBillionValue
		switch {
		case a == nil && b == nil:
			return out[i].Summary.Count > out[j].Summary.Count
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	return out
}

func byQualityDesc(rows []Row) []Row {
	out := append([]Row(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Summary.MeanQualityScore, out[j].Summary.MeanQualityScore
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	return out
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
