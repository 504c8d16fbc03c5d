// Package table turns filtered views into grid descriptors and applies
// client table queries (paging, multi-column sort, per-column filters).
package table

import (
	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

// Messages shown when a view has no records
const (
	NoDataMessage = "No data available for this trade type."
	NoDataDetail  = "Please check your data files."
)

// Column describes one displayed column
type Column struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Type     domain.ColumnKind `json:"type"`
	Width    int               `json:"width,omitempty"`
	Sortable bool              `json:"sortable"`
}

// Tooltip is the hover text of a cell
type Tooltip struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Cell is one rendered table cell
type Cell struct {
	Column  string  `json:"column"`
	Value   any     `json:"value"`
	Tooltip Tooltip `json:"tooltip"`
	Style   *Style  `json:"style,omitempty"`
}

// Row is one rendered table row
type Row struct {
	Index int    `json:"index"`
	Cells []Cell `json:"cells"`
}

// Descriptor is the complete, serializable description of a data table
type Descriptor struct {
	NoData    bool             `json:"no_data"`
	Message   string           `json:"message,omitempty"`
	Detail    string           `json:"detail,omitempty"`
	TradeType domain.TradeType `json:"trade_type"`
	TotalRows int              `json:"total_rows"`
	Config    *Config          `json:"config,omitempty"`
	Columns   []Column         `json:"columns,omitempty"`
	Rows      []Row            `json:"rows,omitempty"`
}

// Render describes the table for v. The result depends only on v and cfg,
// so rendering twice yields identical descriptors. An empty view yields a
// no-data descriptor.
func Render(v view.FilteredView, cfg Config) Descriptor {
	if v.Empty() {
		return NoDataDescriptor(v.TradeType())
	}

	d := Descriptor{
		TradeType: v.TradeType(),
		TotalRows: v.Len(),
		Config:    &cfg,
		Columns:   Columns(cfg),
		Rows:      make([]Row, 0, v.Len()),
	}
	v.Each(func(i int, rec domain.TradeRecord) {
		d.Rows = append(d.Rows, renderRow(i, rec, cfg))
	})
	return d
}

// NoDataDescriptor is rendered for views without records
func NoDataDescriptor(tradeType domain.TradeType) Descriptor {
	return Descriptor{
		NoData:    true,
		Message:   NoDataMessage,
		Detail:    NoDataDetail,
		TradeType: tradeType,
	}
}

// Columns lists the displayed columns in source order
func Columns(cfg Config) []Column {
	names := domain.DisplayColumns()
	cols := make([]Column, len(names))
	for i, name := range names {
		kind, _ := domain.KindOf(name)
		cols[i] = Column{
			ID:       name,
			Name:     name,
			Type:     kind,
			Width:    cfg.Width(name),
			Sortable: true,
		}
	}
	return cols
}

func renderRow(index int, rec domain.TradeRecord, cfg Config) Row {
	names := domain.DisplayColumns()
	row := Row{Index: index, Cells: make([]Cell, len(names))}
	for i, name := range names {
		cell := Cell{
			Column:  name,
			Value:   rec.Cell(name),
			Tooltip: Tooltip{Type: cfg.TooltipType, Value: rec.Value(name)},
		}
		if s := cfg.CellStyleFor(index, name, rec); s != (Style{}) {
			cell.Style = &s
		}
		row.Cells[i] = cell
	}
	return row
}
