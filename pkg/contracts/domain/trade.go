package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// TradeType tags a record with the source file it was loaded from
type TradeType string

const (
	TradeTypeFormal   TradeType = "Formal"
	TradeTypeInformal TradeType = "Informal"
)

// TradeTypes returns the supported trade types in display order
func TradeTypes() []TradeType {
	return []TradeType{TradeTypeFormal, TradeTypeInformal}
}

// Valid reports whether t is one of the supported trade types
func (t TradeType) Valid() bool {
	return t == TradeTypeFormal || t == TradeTypeInformal
}

// ParseTradeType parses a trade type case-insensitively.
// The second return value is false when s is not a known trade type,
// in which case Formal is returned.
func ParseTradeType(s string) (TradeType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "formal":
		return TradeTypeFormal, true
	case "informal":
		return TradeTypeInformal, true
	default:
		return TradeTypeFormal, false
	}
}

// Flow represents the direction of trade
type Flow string

const (
	FlowExport Flow = "Export"
	FlowImport Flow = "Import"
)

// Quarter represents a calendar quarter
type Quarter string

const (
	Q1 Quarter = "Q1"
	Q2 Quarter = "Q2"
	Q3 Quarter = "Q3"
	Q4 Quarter = "Q4"
)

// Index returns the 1-based quarter number, or 0 for an unknown quarter
func (q Quarter) Index() int {
	switch q {
	case Q1:
		return 1
	case Q2:
		return 2
	case Q3:
		return 3
	case Q4:
		return 4
	default:
		return 0
	}
}

// TransportMode represents how goods crossed the border
type TransportMode string

const (
	TransportRoad TransportMode = "Road"
	TransportAir  TransportMode = "Air"
	TransportSea  TransportMode = "Sea"
)

// TradeRecord is one customs transaction aggregate.
// TradeType is assigned at load time and cannot be changed on a stored record.
type TradeRecord struct {
	Year            int             `json:"Year" validate:"required,gte=1900,lte=2200"`
	Quarter         Quarter         `json:"Quarter" validate:"required,oneof=Q1 Q2 Q3 Q4"`
	Month           string          `json:"Month" validate:"required"`
	Flow            Flow            `json:"Flow" validate:"required,oneof=Export Import"`
	HS2             string          `json:"HS2" validate:"required"`
	HS4             string          `json:"HS4" validate:"required"`
	HSCode          string          `json:"HS_Code" validate:"required"`
	HSDescription   string          `json:"HS_Description"`
	PartnerCountry  string          `json:"Partner_Country" validate:"required"`
	Region          string          `json:"Region"`
	TradeValueUSD   decimal.Decimal `json:"Trade_Value_USD" validate:"gte=0"`
	Quantity        decimal.Decimal `json:"Quantity" validate:"gte=0"`
	Unit            string          `json:"Unit"`
	ModeOfTransport TransportMode   `json:"Mode_of_Transport" validate:"required,oneof=Road Air Sea"`
	CustomsOffice   string          `json:"Customs_Office"`

	tradeType TradeType
}

// TradeType returns the provenance tag assigned at load time
func (r TradeRecord) TradeType() TradeType {
	return r.tradeType
}

// WithTradeType returns a copy of r stamped with t
func (r TradeRecord) WithTradeType(t TradeType) TradeRecord {
	r.tradeType = t
	return r
}

// Value returns the string form of a displayed column.
// Unknown columns yield an empty string.
func (r TradeRecord) Value(column string) string {
	switch column {
	case ColYear:
		return strconv.Itoa(r.Year)
	case ColQuarter:
		return string(r.Quarter)
	case ColMonth:
		return r.Month
	case ColFlow:
		return string(r.Flow)
	case ColHS2:
		return r.HS2
	case ColHS4:
		return r.HS4
	case ColHSCode:
		return r.HSCode
	case ColHSDescription:
		return r.HSDescription
	case ColPartnerCountry:
		return r.PartnerCountry
	case ColRegion:
		return r.Region
	case ColTradeValueUSD:
		return r.TradeValueUSD.String()
	case ColQuantity:
		return r.Quantity.String()
	case ColUnit:
		return r.Unit
	case ColModeOfTransport:
		return string(r.ModeOfTransport)
	case ColCustomsOffice:
		return r.CustomsOffice
	case ColTradeType:
		return string(r.tradeType)
	default:
		return ""
	}
}

// Cell returns the typed value of a displayed column for JSON encoding.
// Numeric columns are returned as numbers, everything else as strings.
func (r TradeRecord) Cell(column string) any {
	switch column {
	case ColYear:
		return r.Year
	case ColTradeValueUSD:
		return r.TradeValueUSD.InexactFloat64()
	case ColQuantity:
		return r.Quantity.InexactFloat64()
	default:
		return r.Value(column)
	}
}

// Numeric returns the numeric value of a numeric column
func (r TradeRecord) Numeric(column string) (decimal.Decimal, bool) {
	switch column {
	case ColYear:
		return decimal.NewFromInt(int64(r.Year)), true
	case ColTradeValueUSD:
		return r.TradeValueUSD, true
	case ColQuantity:
		return r.Quantity, true
	default:
		return decimal.Zero, false
	}
}
