package report

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const insightsTop = 10

// writeInsights renders the markdown findings file. Numbers go through an
// English-locale printer so populations and dollar values get thousands
// separators.
func writeInsights(path string, rows []Row) error {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	total := 0
	for _, r := range rows {
		total += r.Summary.Count
	}

	b.WriteString("# Restaurant Density vs Property Value\n\n")
	p.Fprintf(&b, "Generated %s. %d cities analyzed, %d establishments.\n\n",
		time.Now().UTC().Format("2006-01-02"), len(rows), total)

	b.WriteString("## Restaurants per $1B of property value\n\n")
	b.WriteString("| City | Tier | Property value | Establishments | Per $1B |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for i, r := range byDensityDesc(rows) {
		if i >= insightsTop {
			break
		}
		s := r.Summary
		p.Fprintf(&b, "| %s | %s | %s | %d | %s |\n",
			s.City, orDash(r.Tier), dollarOrDash(p, s.PropertyValue), s.Count,
			orDash(fmtFloat(s.PerBillionValue, 1)))
	}

	b.WriteString("\n## Quality leaders\n\n")
	b.WriteString("| City | Mean quality score | Mean rating | High-rated share |\n")
	b.WriteString("|---|---|---|---|\n")
	for i, r := range byQualityDesc(rows) {
		if i >= insightsTop {
			break
		}
		s := r.Summary
		pct := ""
		if s.HighRatedFraction != nil {
			pct = fmt.Sprintf("%.0f%%", *s.HighRatedFraction*100)
		}
		p.Fprintf(&b, "| %s | %s | %s | %s |\n",
			s.City, orDash(fmtFloat(s.MeanQualityScore, 2)),
			orDash(fmtFloat(s.MeanRating, 2)), orDash(pct))
	}

	b.WriteString("\n## Tier rollup\n\n")
	b.WriteString("| Tier | Cities | Establishments | Median income range |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, line := range tierRollup(p, rows) {
		b.WriteString(line)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

func tierRollup(p *message.Printer, rows []Row) []string {
	type agg struct {
		cities    int
		count     int
		minIncome *float64
		maxIncome *float64
	}
	byTier := map[string]*agg{}
	var order []string
	for _, r := range rows {
		tier := r.Tier
		if tier == "" {
			tier = "untiered"
		}
		a, ok := byTier[tier]
		if !ok {
			a = &agg{}
			byTier[tier] = a
			order = append(order, tier)
		}
		a.cities++
		a.count += r.Summary.Count
		if inc := r.Summary.MedianIncome; inc != nil {
			if a.minIncome == nil || *inc < *a.minIncome {
				a.minIncome = inc
			}
			if a.maxIncome == nil || *inc > *a.maxIncome {
				a.maxIncome = inc
			}
		}
	}

	lines := make([]string, 0, len(order))
	for _, tier := range order {
		a := byTier[tier]
		incomes := "—"
		if a.minIncome != nil {
			incomes = p.Sprintf("$%.0f – $%.0f", *a.minIncome, *a.maxIncome)
		}
		lines = append(lines, p.Sprintf("| %s | %d | %d | %s |\n",
			tier, a.cities, a.count, incomes))
	}
	return lines
}

func dollarOrDash(p *message.Printer, v *float64) string {
	if v == nil {
		return "—"
	}
	return p.Sprintf("$%.0f", *v)
}
