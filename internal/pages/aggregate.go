package pages

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

// group is the total trade value of one key
type group struct {
	Key     string
	Value   decimal.Decimal
	Exports decimal.Decimal
	Imports decimal.Decimal
	Count   int
}

// groupBy totals trade value per key, largest value first and ties by key
func groupBy(v view.FilteredView, key func(domain.TradeRecord) string) []group {
	idx := make(map[string]int)
	var groups []group
	v.Each(func(_ int, r domain.TradeRecord) {
		k := key(r)
		i, ok := idx[k]
		if !ok {
			i = len(groups)
			idx[k] = i
			groups = append(groups, group{Key: k})
		}
		g := &groups[i]
		g.Value = g.Value.Add(r.TradeValueUSD)
		g.Count++
		switch r.Flow {
		case domain.FlowExport:
			g.Exports = g.Exports.Add(r.TradeValueUSD)
		case domain.FlowImport:
			g.Imports = g.Imports.Add(r.TradeValueUSD)
		}
	})
	sort.SliceStable(groups, func(i, j int) bool {
		if c := groups[i].Value.Cmp(groups[j].Value); c != 0 {
			return c > 0
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}

func top(groups []group, n int) []group {
	if len(groups) > n {
		return groups[:n]
	}
	return groups
}

func total(groups []group) decimal.Decimal {
	sum := decimal.Zero
	for _, g := range groups {
		sum = sum.Add(g.Value)
	}
	return sum
}

// share returns part as a percentage of whole with one decimal place
func share(part, whole decimal.Decimal) string {
	if whole.IsZero() {
		return "0.0%"
	}
	return part.Mul(decimal.NewFromInt(100)).Div(whole).StringFixed(1) + "%"
}

// period is one year and quarter
type period struct {
	Year    int
	Quarter domain.Quarter
}

func (p period) String() string {
	return fmt.Sprintf("%d %s", p.Year, p.Quarter)
}

// flowTotals holds exports and imports for one period
type flowTotals struct {
	period
	Exports decimal.Decimal
	Imports decimal.Decimal
}

func (f flowTotals) Balance() decimal.Decimal {
	return f.Exports.Sub(f.Imports)
}

// byPeriod totals exports and imports per year and quarter in time order
func byPeriod(v view.FilteredView) []flowTotals {
	idx := make(map[period]int)
	var out []flowTotals
	v.Each(func(_ int, r domain.TradeRecord) {
		p := period{Year: r.Year, Quarter: r.Quarter}
		i, ok := idx[p]
		if !ok {
			i = len(out)
			idx[p] = i
			out = append(out, flowTotals{period: p})
		}
		switch r.Flow {
		case domain.FlowExport:
			out[i].Exports = out[i].Exports.Add(r.TradeValueUSD)
		case domain.FlowImport:
			out[i].Imports = out[i].Imports.Add(r.TradeValueUSD)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Quarter.Index() < out[j].Quarter.Index()
	})
	return out
}

// barChart builds a single-series chart from groups
func barChart(id, title, series string, groups []group, label func(group) string) Chart {
	c := Chart{ID: id, Title: title, Kind: ChartBar, Series: []Series{{Name: series}}}
	for _, g := range groups {
		c.Labels = append(c.Labels, label(g))
		c.Series[0].Values = append(c.Series[0].Values, g.Value.InexactFloat64())
	}
	return c
}

// pieChart builds a pie chart from groups
func pieChart(id, title string, groups []group) Chart {
	c := barChart(id, title, "Trade Value (USD)", groups, keyLabel)
	c.Kind = ChartPie
	return c
}

func keyLabel(g group) string { return g.Key }
