package domain

// Column names as they appear in the source files
const (
	ColYear            = "Year"
	ColQuarter         = "Quarter"
	ColMonth           = "Month"
	ColFlow            = "Flow"
	ColHS2             = "HS2"
	ColHS4             = "HS4"
	ColHSCode          = "HS_Code"
	ColHSDescription   = "HS_Description"
	ColPartnerCountry  = "Partner_Country"
	ColRegion          = "Region"
	ColTradeValueUSD   = "Trade_Value_USD"
	ColQuantity        = "Quantity"
	ColUnit            = "Unit"
	ColModeOfTransport = "Mode_of_Transport"
	ColCustomsOffice   = "Customs_Office"

	// ColTradeType is added at load time and never displayed
	ColTradeType = "Trade_Type"
)

// ColumnKind describes how a column's values compare
type ColumnKind string

const (
	KindText    ColumnKind = "text"
	KindNumeric ColumnKind = "numeric"
)

// ColumnInfo is a data dictionary entry
type ColumnInfo struct {
	Name        string     `json:"name"`
	Kind        ColumnKind `json:"kind"`
	Type        string     `json:"type"`
	Description string     `json:"description"`
}

var dictionary = []ColumnInfo{
	{ColYear, KindNumeric, "Numeric", "Calendar year of the trade transaction"},
	{ColQuarter, KindText, "Text", "Quarter of the year (Q1, Q2, Q3, Q4)"},
	{ColMonth, KindText, "Text", "Month when the trade occurred"},
	{ColFlow, KindText, "Categorical", "Direction of trade: Export or Import"},
	{ColHS2, KindText, "Text", "2-digit Harmonized System code (broad product category)"},
	{ColHS4, KindText, "Text", "4-digit Harmonized System code (product sub-category)"},
	{ColHSCode, KindText, "Text", "6-digit Harmonized System code (detailed product)"},
	{ColHSDescription, KindText, "Text", "Description of the product"},
	{ColPartnerCountry, KindText, "Text", "Destination country (exports) or origin country (imports)"},
	{ColRegion, KindText, "Text", "Geographic/economic region of partner country"},
	{ColTradeValueUSD, KindNumeric, "Numeric", "Monetary value of trade in US Dollars"},
	{ColQuantity, KindNumeric, "Numeric", "Physical quantity of goods traded"},
	{ColUnit, KindText, "Text", "Measurement unit for quantity (Kg, Tonnes, Units, etc.)"},
	{ColModeOfTransport, KindText, "Text", "How goods were transported (Road, Air, Sea)"},
	{ColCustomsOffice, KindText, "Text", "Border post where trade was recorded"},
}

// DisplayColumns returns the displayed columns in source order.
// Trade_Type is never included.
func DisplayColumns() []string {
	cols := make([]string, len(dictionary))
	for i, c := range dictionary {
		cols[i] = c.Name
	}
	return cols
}

// RequiredColumns returns the columns every source file must provide
func RequiredColumns() []string {
	return DisplayColumns()
}

// DataDictionary returns a copy of the data dictionary
func DataDictionary() []ColumnInfo {
	out := make([]ColumnInfo, len(dictionary))
	copy(out, dictionary)
	return out
}

// KindOf returns the kind of a displayed column and whether it exists
func KindOf(column string) (ColumnKind, bool) {
	for _, c := range dictionary {
		if c.Name == column {
			return c.Kind, true
		}
	}
	return "", false
}
