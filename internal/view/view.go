// Package view derives trade-type scoped subsets of the unified dataset.
package view

import (
	"mtid/internal/dataset"
	"mtid/pkg/contracts/domain"
)

// FilteredView is the subset of the dataset belonging to one trade type.
// It is a value: callers get copies of its records and cannot change it.
type FilteredView struct {
	tradeType domain.TradeType
	records   []domain.TradeRecord
}

// Filter selects the records whose trade type equals tradeType.
// The dataset is never modified. An empty result is reported by Empty.
func Filter(ds *dataset.Dataset, tradeType domain.TradeType) FilteredView {
	return FilteredView{
		tradeType: tradeType,
		records: ds.Select(func(r domain.TradeRecord) bool {
			return r.TradeType() == tradeType
		}),
	}
}

// FromRecords builds a view over already selected records
func FromRecords(tradeType domain.TradeType, records []domain.TradeRecord) FilteredView {
	out := make([]domain.TradeRecord, len(records))
	copy(out, records)
	return FilteredView{tradeType: tradeType, records: out}
}

// TradeType returns the trade type the view was filtered by
func (v FilteredView) TradeType() domain.TradeType {
	return v.tradeType
}

// Empty reports whether no record matched. Pages render a
// "no data" state for empty views instead of failing.
func (v FilteredView) Empty() bool {
	return len(v.records) == 0
}

// Len returns the number of records in the view
func (v FilteredView) Len() int {
	return len(v.records)
}

// Records returns a copy of the records in dataset order
func (v FilteredView) Records() []domain.TradeRecord {
	out := make([]domain.TradeRecord, len(v.records))
	copy(out, v.records)
	return out
}

// Each calls fn for every record without copying the slice
func (v FilteredView) Each(fn func(i int, r domain.TradeRecord)) {
	for i, r := range v.records {
		fn(i, r)
	}
}
