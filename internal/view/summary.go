package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mtid/pkg/contracts/domain"
)

// DatasetSummary describes a filtered view
type DatasetSummary struct {
	TradeType        domain.TradeType `json:"trade_type"`
	RecordCount      int              `json:"record_count"`
	ColumnCount      int              `json:"column_count"`
	DistinctYears    []int            `json:"distinct_years"`
	DistinctQuarters []domain.Quarter `json:"distinct_quarters"`
	TotalExportsUSD  decimal.Decimal  `json:"total_exports_usd"`
	TotalImportsUSD  decimal.Decimal  `json:"total_imports_usd"`
	DistinctPartners int              `json:"distinct_partners"`
	DistinctProducts int              `json:"distinct_products"`
}

// Summarize computes counts and distinct years and quarters. Years are
// ascending and quarters ordered Q1 < Q2 < Q3 < Q4, both without duplicates.
func Summarize(v FilteredView) DatasetSummary {
	years := make(map[int]struct{})
	quarters := make(map[domain.Quarter]struct{})
	partners := make(map[string]struct{})
	products := make(map[string]struct{})
	exports, imports := decimal.Zero, decimal.Zero

	for _, r := range v.records {
		years[r.Year] = struct{}{}
		quarters[r.Quarter] = struct{}{}
		partners[r.PartnerCountry] = struct{}{}
		products[r.HSCode] = struct{}{}
		switch r.Flow {
		case domain.FlowExport:
			exports = exports.Add(r.TradeValueUSD)
		case domain.FlowImport:
			imports = imports.Add(r.TradeValueUSD)
		}
	}

	s := DatasetSummary{
		TradeType:        v.tradeType,
		RecordCount:      len(v.records),
		ColumnCount:      len(domain.DisplayColumns()),
		DistinctYears:    make([]int, 0, len(years)),
		DistinctQuarters: make([]domain.Quarter, 0, len(quarters)),
		TotalExportsUSD:  exports,
		TotalImportsUSD:  imports,
		DistinctPartners: len(partners),
		DistinctProducts: len(products),
	}
	for y := range years {
		s.DistinctYears = append(s.DistinctYears, y)
	}
	sort.Ints(s.DistinctYears)

	for q := range quarters {
		s.DistinctQuarters = append(s.DistinctQuarters, q)
	}
	sort.Slice(s.DistinctQuarters, func(i, j int) bool {
		a, b := s.DistinctQuarters[i], s.DistinctQuarters[j]
		if a.Index() != b.Index() {
			return a.Index() < b.Index()
		}
		return a < b
	})
	return s
}

// TradeBalance returns exports minus imports
func (s DatasetSummary) TradeBalance() decimal.Decimal {
	return s.TotalExportsUSD.Sub(s.TotalImportsUSD)
}

// InfoLine renders the dataset info alert text shown on the metadata page
func (s DatasetSummary) InfoLine() string {
	years := make([]string, len(s.DistinctYears))
	for i, y := range s.DistinctYears {
		years[i] = fmt.Sprint(y)
	}
	quarters := make([]string, len(s.DistinctQuarters))
	for i, q := range s.DistinctQuarters {
		quarters[i] = string(q)
	}
	return fmt.Sprintf("Total Records: %s | Columns: %d | Years: %s | Quarters: %s",
		FormatThousands(int64(s.RecordCount)), s.ColumnCount,
		strings.Join(years, ", "), strings.Join(quarters, ", "))
}

// FormatThousands renders n with comma thousands separators
func FormatThousands(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

// FormatUSD renders an amount rounded to whole dollars with separators
func FormatUSD(d decimal.Decimal) string {
	s := FormatThousands(d.Round(0).IntPart())
	if rest, neg := strings.CutPrefix(s, "-"); neg {
		return "-$" + rest
	}
	return "$" + s
}
