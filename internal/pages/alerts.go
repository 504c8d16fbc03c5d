package pages

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

// Alert rule ids
const (
	RuleZeroQuantity      = "zero-quantity"
	RuleUnitValueOutlier  = "unit-value-outlier"
	RuleHSHierarchy       = "hs-hierarchy"
	RuleQuarterMonth      = "quarter-month"
	maxAlertExamples      = 5
	outlierThreshold      = 3.0
	minOutlierObservation = 5
	// madScale makes the median absolute deviation comparable to a standard deviation
	madScale = 1.4826
)

type alertRule struct {
	id       string
	severity string
	title    string
	message  string
	// check returns a detail string when the record violates the rule
	check func(i int, r domain.TradeRecord) (string, bool)
}

// smartAlerts runs the data validation rules over the view
func smartAlerts(v view.FilteredView) (Body, error) {
	outliers := unitValueOutliers(v)

	rules := []alertRule{
		{
			id: RuleZeroQuantity, severity: "warning",
			title:   "Zero quantity with positive value",
			message: "Records report a trade value but no quantity.",
			check: func(_ int, r domain.TradeRecord) (string, bool) {
				if r.Quantity.IsZero() && r.TradeValueUSD.IsPositive() {
					return "value " + view.FormatUSD(r.TradeValueUSD) + " with quantity 0", true
				}
				return "", false
			},
		},
		{
			id: RuleUnitValueOutlier, severity: "danger",
			title:   "Unit value outliers",
			message: "Unit value is more than 3 robust deviations from the median of its HS code.",
			check: func(i int, _ domain.TradeRecord) (string, bool) {
				d, ok := outliers[i]
				return d, ok
			},
		},
		{
			id: RuleHSHierarchy, severity: "warning",
			title:   "HS code hierarchy inconsistencies",
			message: "HS_Code does not start with HS4, or HS4 does not start with HS2.",
			check: func(_ int, r domain.TradeRecord) (string, bool) {
				if !strings.HasPrefix(r.HS4, r.HS2) {
					return fmt.Sprintf("HS4 %s is not under HS2 %s", r.HS4, r.HS2), true
				}
				if !strings.HasPrefix(r.HSCode, r.HS4) {
					return fmt.Sprintf("HS_Code %s is not under HS4 %s", r.HSCode, r.HS4), true
				}
				return "", false
			},
		},
		{
			id: RuleQuarterMonth, severity: "info",
			title:   "Quarter and month mismatch",
			message: "The month does not belong to the recorded quarter.",
			check: func(_ int, r domain.TradeRecord) (string, bool) {
				q, ok := quarterOfMonth(r.Month)
				if ok && q != r.Quarter {
					return fmt.Sprintf("%s is in %s, recorded as %s", r.Month, q, r.Quarter), true
				}
				return "", false
			},
		},
	}

	alerts := make([]DataAlert, len(rules))
	for i, rule := range rules {
		alerts[i] = DataAlert{Rule: rule.id, Severity: rule.severity, Title: rule.title, Message: rule.message}
	}
	v.Each(func(i int, r domain.TradeRecord) {
		for j, rule := range rules {
			detail, hit := rule.check(i, r)
			if !hit {
				continue
			}
			a := &alerts[j]
			a.Count++
			if len(a.Examples) < maxAlertExamples {
				a.Examples = append(a.Examples, AlertExample{
					Row:            i + 1,
					HSCode:         r.HSCode,
					PartnerCountry: r.PartnerCountry,
					Detail:         detail,
				})
			}
		}
	})

	counts := Chart{ID: ChartAlertCounts, Title: "Findings by Rule", Kind: ChartBar, Series: []Series{{Name: "Records"}}}
	kpis := make([]KPI, 0, len(alerts)+1)
	flagged := 0
	for _, a := range alerts {
		counts.Labels = append(counts.Labels, a.Title)
		counts.Series[0].Values = append(counts.Series[0].Values, float64(a.Count))
		kpis = append(kpis, KPI{ID: a.Rule, Label: a.Title, Value: view.FormatThousands(int64(a.Count))})
		flagged += a.Count
	}
	kpis = append([]KPI{{ID: "findings", Label: "Total Findings", Value: view.FormatThousands(int64(flagged))}}, kpis...)

	return Body{KPIs: kpis, Charts: []Chart{counts}, DataAlerts: alerts}, nil
}

// unitValueOutliers flags records whose unit value (value / quantity) lies
// more than outlierThreshold scaled MADs from the median of its HS code.
// Keys are view row indexes.
func unitValueOutliers(v view.FilteredView) map[int]string {
	type obs struct {
		row  int
		unit float64
	}
	byCode := make(map[string][]obs)
	v.Each(func(i int, r domain.TradeRecord) {
		if !r.Quantity.IsPositive() {
			return
		}
		unit := r.TradeValueUSD.Div(r.Quantity).InexactFloat64()
		byCode[r.HSCode] = append(byCode[r.HSCode], obs{row: i, unit: unit})
	})

	out := make(map[int]string)
	for code, list := range byCode {
		if len(list) < minOutlierObservation {
			continue
		}
		units := make([]float64, len(list))
		for i, o := range list {
			units[i] = o.unit
		}
		sort.Float64s(units)
		median := stat.Quantile(0.5, stat.Empirical, units, nil)

		devs := make([]float64, len(units))
		for i, u := range units {
			devs[i] = math.Abs(u - median)
		}
		sort.Float64s(devs)
		mad := stat.Quantile(0.5, stat.Empirical, devs, nil) * madScale
		if mad == 0 {
			continue
		}

		for _, o := range list {
			if score := math.Abs(o.unit-median) / mad; score > outlierThreshold {
				out[o.row] = fmt.Sprintf("unit value %.2f vs median %.2f for %s (%.1f deviations)", o.unit, median, code, score)
			}
		}
	}
	return out
}

var monthQuarters = map[string]domain.Quarter{
	"january": domain.Q1, "february": domain.Q1, "march": domain.Q1,
	"april": domain.Q2, "may": domain.Q2, "june": domain.Q2,
	"july": domain.Q3, "august": domain.Q3, "september": domain.Q3,
	"october": domain.Q4, "november": domain.Q4, "december": domain.Q4,
}

// quarterOfMonth accepts full or three-letter month names and numbers 1-12
func quarterOfMonth(month string) (domain.Quarter, bool) {
	m := strings.ToLower(strings.TrimSpace(month))
	if n, err := strconv.Atoi(m); err == nil {
		if n < 1 || n > 12 {
			return "", false
		}
		return domain.Quarter(fmt.Sprintf("Q%d", (n-1)/3+1)), true
	}
	if q, ok := monthQuarters[m]; ok {
		return q, true
	}
	if len(m) >= 3 {
		for name, q := range monthQuarters {
			if strings.HasPrefix(name, m) {
				return q, true
			}
		}
	}
	return "", false
}
