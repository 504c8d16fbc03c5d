package pages

import (
	"mtid/internal/navigation"
	"mtid/internal/table"
	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

// Status of a rendered page
type Status string

const (
	StatusOK    Status = "ok"
	StatusEmpty Status = "empty"
	StatusError Status = "error"
)

// Alert is a colored message panel
type Alert struct {
	Level   string `json:"level"` // warning, danger, primary, success, info
	Heading string `json:"heading,omitempty"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// KPI is a headline figure
type KPI struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
	Color string `json:"color,omitempty"`
}

// ChartKind is the visual form of a chart
type ChartKind string

const (
	ChartBar  ChartKind = "bar"
	ChartPie  ChartKind = "pie"
	ChartLine ChartKind = "line"
)

// Series is one named sequence of chart values aligned with Chart.Labels
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
	Color  string    `json:"color,omitempty"`
}

// Chart describes a chart. ImageURL points at its PNG rendering.
type Chart struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Kind     ChartKind `json:"kind"`
	Labels   []string  `json:"labels"`
	Series   []Series  `json:"series"`
	ImageURL string    `json:"image_url,omitempty"`
}

// SimpleTable is a small aggregate table
type SimpleTable struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Card is a titled block of labelled lines
type Card struct {
	Title string     `json:"title"`
	Items []CardItem `json:"items"`
}

// CardItem is one labelled line of a card
type CardItem struct {
	Label string   `json:"label"`
	Value string   `json:"value,omitempty"`
	Lines []string `json:"lines,omitempty"`
}

// DataAlert is one finding of the data validation rules
type DataAlert struct {
	Rule     string         `json:"rule"`
	Severity string         `json:"severity"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Count    int            `json:"count"`
	Examples []AlertExample `json:"examples,omitempty"`
}

// AlertExample identifies one offending record
type AlertExample struct {
	Row            int    `json:"row"`
	HSCode         string `json:"hs_code"`
	PartnerCountry string `json:"partner_country"`
	Detail         string `json:"detail"`
}

// Body is what a page builder produces
type Body struct {
	KPIs       []KPI                `json:"kpis,omitempty"`
	Charts     []Chart              `json:"charts,omitempty"`
	Tables     []SimpleTable        `json:"tables,omitempty"`
	DataAlerts []DataAlert          `json:"data_alerts,omitempty"`
	Cards      []Card               `json:"cards,omitempty"`
	Info       *Alert               `json:"info,omitempty"`
	Summary    *view.DatasetSummary `json:"summary,omitempty"`
	DataTable  *table.Descriptor    `json:"data_table,omitempty"`
	Dictionary []domain.ColumnInfo  `json:"dictionary,omitempty"`
}

// Content is a fully rendered page
type Content struct {
	Page      domain.PageID     `json:"page"`
	TradeType domain.TradeType  `json:"trade_type"`
	Title     string            `json:"title"`
	Icon      string            `json:"icon"`
	Header    navigation.Header `json:"header"`
	Status    Status            `json:"status"`
	Alert     *Alert            `json:"alert,omitempty"`
	Body      Body              `json:"body"`
}
