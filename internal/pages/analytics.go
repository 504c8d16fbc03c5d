package pages

import (
	"fmt"

	"github.com/shopspring/decimal"

	"mtid/internal/table"
	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

// Chart ids
const (
	ChartQuarterlyTrend   = "quarterly-trend"
	ChartFlowShare        = "flow-share"
	ChartTopPartners      = "top-partners"
	ChartRegions          = "regions"
	ChartTopChapters      = "top-chapters"
	ChartTopProducts      = "top-products"
	ChartQuarterlyBalance = "quarterly-balance"
	ChartTransportModes   = "transport-modes"
	ChartCustomsOffices   = "customs-offices"
	ChartAlertCounts      = "alert-counts"
)

const topN = 10

// executive builds the overview: headline KPIs, quarterly trend and flow share
func executive(v view.FilteredView) (Body, error) {
	s := view.Summarize(v)
	bal := s.TradeBalance()
	balanceColor := table.ColorSuccess
	if bal.IsNegative() {
		balanceColor = table.ColorDanger
	}

	periods := byPeriod(v)
	trend := Chart{
		ID:    ChartQuarterlyTrend,
		Title: "Quarterly Exports vs Imports",
		Kind:  ChartLine,
		Series: []Series{
			{Name: "Exports", Color: table.ColorSuccess},
			{Name: "Imports", Color: table.ColorDanger},
		},
	}
	for _, p := range periods {
		trend.Labels = append(trend.Labels, p.String())
		trend.Series[0].Values = append(trend.Series[0].Values, p.Exports.InexactFloat64())
		trend.Series[1].Values = append(trend.Series[1].Values, p.Imports.InexactFloat64())
	}

	flows := []group{
		{Key: string(domain.FlowExport), Value: s.TotalExportsUSD},
		{Key: string(domain.FlowImport), Value: s.TotalImportsUSD},
	}

	return Body{
		KPIs: []KPI{
			{ID: "total-exports", Label: "Total Exports", Value: view.FormatUSD(s.TotalExportsUSD), Color: table.ColorSuccess},
			{ID: "total-imports", Label: "Total Imports", Value: view.FormatUSD(s.TotalImportsUSD), Color: table.ColorDanger},
			{ID: "trade-balance", Label: "Trade Balance", Value: view.FormatUSD(bal), Color: balanceColor},
			{ID: "records", Label: "Records", Value: view.FormatThousands(int64(s.RecordCount))},
			{ID: "partners", Label: "Partner Countries", Value: view.FormatThousands(int64(s.DistinctPartners))},
		},
		Charts: []Chart{trend, pieChart(ChartFlowShare, "Export / Import Share", flows)},
	}, nil
}

// countries ranks partner countries and regions by trade value
func countries(v view.FilteredView) (Body, error) {
	partners := groupBy(v, func(r domain.TradeRecord) string { return r.PartnerCountry })
	regions := groupBy(v, func(r domain.TradeRecord) string { return r.Region })
	all := total(partners)

	t := SimpleTable{
		ID:      "partner-ranking",
		Title:   "Top 10 Partner Countries",
		Columns: []string{"Rank", "Partner Country", "Exports (USD)", "Imports (USD)", "Total (USD)", "Share"},
	}
	for i, g := range top(partners, topN) {
		t.Rows = append(t.Rows, []string{
			fmt.Sprint(i + 1), g.Key,
			view.FormatUSD(g.Exports), view.FormatUSD(g.Imports), view.FormatUSD(g.Value),
			share(g.Value, all),
		})
	}

	return Body{
		KPIs: []KPI{
			{ID: "partner-count", Label: "Partner Countries", Value: view.FormatThousands(int64(len(partners)))},
			{ID: "region-count", Label: "Regions", Value: view.FormatThousands(int64(len(regions)))},
		},
		Charts: []Chart{
			barChart(ChartTopPartners, "Top 10 Partner Countries by Trade Value", "Trade Value (USD)", top(partners, topN), keyLabel),
			pieChart(ChartRegions, "Trade Value by Region", regions),
		},
		Tables: []SimpleTable{t},
	}, nil
}

// products ranks HS chapters and detailed HS codes by trade value
func products(v view.FilteredView) (Body, error) {
	descriptions := make(map[string]string)
	v.Each(func(_ int, r domain.TradeRecord) {
		if _, ok := descriptions[r.HSCode]; !ok && r.HSDescription != "" {
			descriptions[r.HSCode] = r.HSDescription
		}
	})

	chapters := groupBy(v, func(r domain.TradeRecord) string { return r.HS2 })
	codes := groupBy(v, func(r domain.TradeRecord) string { return r.HSCode })
	all := total(codes)

	t := SimpleTable{
		ID:      "product-ranking",
		Title:   "Top 10 Products (HS Code)",
		Columns: []string{"Rank", "HS Code", "Description", "Trade Value (USD)", "Share"},
	}
	for i, g := range top(codes, topN) {
		t.Rows = append(t.Rows, []string{
			fmt.Sprint(i + 1), g.Key, descriptions[g.Key], view.FormatUSD(g.Value), share(g.Value, all),
		})
	}

	return Body{
		KPIs: []KPI{
			{ID: "chapter-count", Label: "HS Chapters", Value: view.FormatThousands(int64(len(chapters)))},
			{ID: "product-count", Label: "Products (HS Codes)", Value: view.FormatThousands(int64(len(codes)))},
		},
		Charts: []Chart{
			barChart(ChartTopChapters, "Top 10 HS Chapters", "Trade Value (USD)", top(chapters, topN),
				func(g group) string { return "HS " + g.Key }),
			barChart(ChartTopProducts, "Top 10 Products", "Trade Value (USD)", top(codes, topN), keyLabel),
		},
		Tables: []SimpleTable{t},
	}, nil
}

// balance compares exports and imports per quarter
func balance(v view.FilteredView) (Body, error) {
	s := view.Summarize(v)
	periods := byPeriod(v)
	flows := s.TotalExportsUSD.Add(s.TotalImportsUSD)

	t := SimpleTable{
		ID:      "quarterly-balance",
		Title:   "Quarterly Trade Balance",
		Columns: []string{"Period", "Exports (USD)", "Imports (USD)", "Balance (USD)", "Status"},
	}
	trend := Chart{
		ID:     ChartQuarterlyBalance,
		Title:  "Trade Balance by Quarter",
		Kind:   ChartLine,
		Series: []Series{{Name: "Balance", Color: table.ColorAccent}},
	}
	for _, p := range periods {
		b := p.Balance()
		t.Rows = append(t.Rows, []string{
			p.String(), view.FormatUSD(p.Exports), view.FormatUSD(p.Imports), view.FormatUSD(b), balanceStatus(b),
		})
		trend.Labels = append(trend.Labels, p.String())
		trend.Series[0].Values = append(trend.Series[0].Values, b.InexactFloat64())
	}

	return Body{
		KPIs: []KPI{
			{ID: "trade-balance", Label: "Trade Balance", Value: view.FormatUSD(s.TradeBalance())},
			{ID: "export-share", Label: "Export Share", Value: share(s.TotalExportsUSD, flows), Color: table.ColorSuccess},
			{ID: "import-share", Label: "Import Share", Value: share(s.TotalImportsUSD, flows), Color: table.ColorDanger},
			{ID: "status", Label: "Overall", Value: balanceStatus(s.TradeBalance())},
		},
		Charts: []Chart{trend},
		Tables: []SimpleTable{t},
	}, nil
}

func balanceStatus(b decimal.Decimal) string {
	switch b.Sign() {
	case 1:
		return "Surplus"
	case -1:
		return "Deficit"
	default:
		return "Balanced"
	}
}

// transport breaks trade value down by mode of transport and customs office
func transport(v view.FilteredView) (Body, error) {
	modes := groupBy(v, func(r domain.TradeRecord) string { return string(r.ModeOfTransport) })
	offices := groupBy(v, func(r domain.TradeRecord) string { return r.CustomsOffice })
	all := total(modes)

	t := SimpleTable{
		ID:      "transport-modes",
		Title:   "Trade by Mode of Transport",
		Columns: []string{"Mode", "Records", "Trade Value (USD)", "Share"},
	}
	for _, g := range modes {
		t.Rows = append(t.Rows, []string{g.Key, view.FormatThousands(int64(g.Count)), view.FormatUSD(g.Value), share(g.Value, all)})
	}

	return Body{
		KPIs: []KPI{
			{ID: "mode-count", Label: "Transport Modes", Value: view.FormatThousands(int64(len(modes)))},
			{ID: "office-count", Label: "Customs Offices", Value: view.FormatThousands(int64(len(offices)))},
		},
		Charts: []Chart{
			pieChart(ChartTransportModes, "Trade Value by Mode of Transport", modes),
			barChart(ChartCustomsOffices, "Top 10 Customs Offices", "Trade Value (USD)", top(offices, topN), keyLabel),
		},
		Tables: []SimpleTable{t},
	}, nil
}
