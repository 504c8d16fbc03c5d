package table

import "mtid/pkg/contracts/domain"

// Style is a subset of CSS properties applied to a table region or cell
type Style struct {
	BackgroundColor string `json:"backgroundColor,omitempty"`
	Color           string `json:"color,omitempty"`
	FontWeight      string `json:"fontWeight,omitempty"`
	FontFamily      string `json:"fontFamily,omitempty"`
	FontSize        string `json:"fontSize,omitempty"`
	TextAlign       string `json:"textAlign,omitempty"`
	Padding         string `json:"padding,omitempty"`
	Border          string `json:"border,omitempty"`
	MinWidth        string `json:"minWidth,omitempty"`
	MaxWidth        string `json:"maxWidth,omitempty"`
	OverflowX       string `json:"overflowX,omitempty"`
	MaxHeight       string `json:"maxHeight,omitempty"`
}

// merge returns s with every non-empty field of o applied on top
func (s Style) merge(o Style) Style {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&s.BackgroundColor, o.BackgroundColor)
	set(&s.Color, o.Color)
	set(&s.FontWeight, o.FontWeight)
	set(&s.FontFamily, o.FontFamily)
	set(&s.FontSize, o.FontSize)
	set(&s.TextAlign, o.TextAlign)
	set(&s.Padding, o.Padding)
	set(&s.Border, o.Border)
	set(&s.MinWidth, o.MinWidth)
	set(&s.MaxWidth, o.MaxWidth)
	set(&s.OverflowX, o.OverflowX)
	set(&s.MaxHeight, o.MaxHeight)
	return s
}

// Condition selects the cells a StyleRule applies to. Empty fields match anything.
type Condition struct {
	RowIndex string `json:"row_index,omitempty"` // "odd" or "even"
	ColumnID string `json:"column_id,omitempty"`
	Equals   string `json:"equals,omitempty"` // cell value must equal this
}

// StyleRule is a conditional cell style
type StyleRule struct {
	If    Condition `json:"if"`
	Style Style     `json:"style"`
}

// Matches reports whether the rule applies to the cell at (row, column)
func (r StyleRule) Matches(row int, column string, rec domain.TradeRecord) bool {
	switch r.If.RowIndex {
	case "odd":
		if row%2 == 0 {
			return false
		}
	case "even":
		if row%2 != 0 {
			return false
		}
	}
	if r.If.ColumnID != "" && r.If.ColumnID != column {
		return false
	}
	if r.If.Equals != "" && rec.Value(column) != r.If.Equals {
		return false
	}
	return true
}

// Config enumerates how a table is displayed and exported
type Config struct {
	PageSize      int            `json:"page_size"`
	PageAction    string         `json:"page_action"`
	SortAction    string         `json:"sort_action"`
	SortMode      string         `json:"sort_mode"`
	FilterAction  string         `json:"filter_action"`
	ExportFormat  string         `json:"export_format"`
	ExportHeaders string         `json:"export_headers"`
	TooltipType   string         `json:"tooltip_type"`
	ColumnWidths  map[string]int `json:"-"`
	TableStyle    Style          `json:"style_table"`
	CellStyle     Style          `json:"style_cell"`
	HeaderStyle   Style          `json:"style_header"`
	DataStyle     Style          `json:"style_data"`
	Rules         []StyleRule    `json:"style_data_conditional"`
}

// Colors used by the conditional rules
const (
	ColorStripe  = "#f8f9fa"
	ColorAccent  = "#007bff"
	ColorSuccess = "#28a745"
	ColorDanger  = "#dc3545"
	ColorHeader  = "#2c3e50"
	ColorBorder  = "#ddd"
)

// DefaultPageSize is the fixed number of rows per table page
const DefaultPageSize = 20

// DefaultConfig returns the raw-data table configuration
func DefaultConfig() Config {
	return Config{
		PageSize:      DefaultPageSize,
		PageAction:    "native",
		SortAction:    "native",
		SortMode:      "multi",
		FilterAction:  "native",
		ExportFormat:  "xlsx",
		ExportHeaders: "display",
		TooltipType:   "markdown",
		ColumnWidths: map[string]int{
			domain.ColYear:            80,
			domain.ColQuarter:         80,
			domain.ColMonth:           80,
			domain.ColFlow:            90,
			domain.ColHS2:             80,
			domain.ColHS4:             90,
			domain.ColHSCode:          100,
			domain.ColHSDescription:   250,
			domain.ColPartnerCountry:  150,
			domain.ColRegion:          120,
			domain.ColTradeValueUSD:   150,
			domain.ColQuantity:        120,
			domain.ColUnit:            100,
			domain.ColModeOfTransport: 150,
			domain.ColCustomsOffice:   150,
		},
		TableStyle: Style{OverflowX: "auto", MaxHeight: "600px"},
		CellStyle: Style{
			TextAlign:  "left",
			Padding:    "12px",
			FontFamily: "Arial, sans-serif",
			FontSize:   "13px",
			MinWidth:   "120px",
			MaxWidth:   "300px",
		},
		HeaderStyle: Style{
			BackgroundColor: ColorHeader,
			Color:           "white",
			FontWeight:      "bold",
			TextAlign:       "left",
			Border:          "1px solid " + ColorBorder,
		},
		DataStyle: Style{Border: "1px solid " + ColorBorder},
		Rules: []StyleRule{
			{If: Condition{RowIndex: "odd"}, Style: Style{BackgroundColor: ColorStripe}},
			{If: Condition{ColumnID: domain.ColTradeValueUSD}, Style: Style{FontWeight: "bold", Color: ColorAccent}},
			{If: Condition{ColumnID: domain.ColFlow, Equals: string(domain.FlowExport)}, Style: Style{Color: ColorSuccess}},
			{If: Condition{ColumnID: domain.ColFlow, Equals: string(domain.FlowImport)}, Style: Style{Color: ColorDanger}},
		},
	}
}

// Width returns the display width hint of a column in pixels, 0 when unset
func (c Config) Width(column string) int {
	return c.ColumnWidths[column]
}

// CellStyleFor evaluates the conditional rules in order for one cell.
// The zero Style means no rule matched.
func (c Config) CellStyleFor(row int, column string, rec domain.TradeRecord) Style {
	var s Style
	for _, r := range c.Rules {
		if r.Matches(row, column, rec) {
			s = s.merge(r.Style)
		}
	}
	return s
}
