package dataset

import (
	"time"

	"mtid/pkg/contracts/domain"
)

// Source describes one loaded input file
type Source struct {
	TradeType domain.TradeType `json:"trade_type"`
	Path      string           `json:"path"`
	Records   int              `json:"records"`
}

// Dataset is the unified, immutable table of all trade records.
// Formal records precede informal ones, but consumers must not rely on order.
type Dataset struct {
	records  []domain.TradeRecord
	sources  []Source
	loadedAt time.Time
}

// New builds a dataset from already parsed records, stamping each group with
// its trade type. It is used by tests and by callers that load records from
// somewhere other than files.
func New(formal, informal []domain.TradeRecord) *Dataset {
	records := make([]domain.TradeRecord, 0, len(formal)+len(informal))
	for _, r := range formal {
		records = append(records, r.WithTradeType(domain.TradeTypeFormal))
	}
	for _, r := range informal {
		records = append(records, r.WithTradeType(domain.TradeTypeInformal))
	}
	return &Dataset{
		records: records,
		sources: []Source{
			{TradeType: domain.TradeTypeFormal, Records: len(formal)},
			{TradeType: domain.TradeTypeInformal, Records: len(informal)},
		},
		loadedAt: time.Now(),
	}
}

// Len returns the number of records
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Records returns a copy of all records
func (d *Dataset) Records() []domain.TradeRecord {
	if d == nil {
		return nil
	}
	out := make([]domain.TradeRecord, len(d.records))
	copy(out, d.records)
	return out
}

// Select returns copies of the records matching keep, in dataset order
func (d *Dataset) Select(keep func(domain.TradeRecord) bool) []domain.TradeRecord {
	if d == nil {
		return nil
	}
	var out []domain.TradeRecord
	for _, r := range d.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Sources describes the files the dataset was loaded from
func (d *Dataset) Sources() []Source {
	if d == nil {
		return nil
	}
	out := make([]Source, len(d.sources))
	copy(out, d.sources)
	return out
}

// LoadedAt returns when the dataset was built
func (d *Dataset) LoadedAt() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.loadedAt
}
