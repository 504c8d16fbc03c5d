package pages

import (
	"fmt"

	"mtid/internal/table"
	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

var metadataCard = Card{
	Title: "📋 Metadata & Data Source",
	Items: []CardItem{
		{Label: "Data Source", Value: "EUROTRACE / ASYCUDA++ / Rwanda Revenue Authority (RRA)"},
		{Label: "Scope", Value: "Formal and Informal Merchandise Trade"},
		{Label: "Coverage", Value: "All merchandise goods crossing Rwanda's borders (imports and exports)"},
		{Label: "Exclusions", Value: "Trade in services, informal cross-border trade not captured by customs"},
		{Label: "Publication Frequency", Value: "Quarterly, with annual aggregations"},
		{Label: "Classification System", Value: "Harmonized System (HS) - International standard for classifying traded products"},
		{Label: "Currency", Value: "All values reported in United States Dollars (USD)"},
	},
}

var methodologyCard = Card{
	Title: "🔬 Methodology",
	Items: []CardItem{
		{Label: "Data Collection", Value: "Data is collected at customs border posts using ASYCUDA++ system"},
		{Label: "Valuation Method", Value: "FOB (Free on Board) for exports, CIF (Cost, Insurance, Freight) for imports"},
		{Label: "Data Quality Control", Lines: []string{
			"Automated validation checks in ASYCUDA++",
			"Manual review by customs officers",
			"Statistical validation by NISR analysts",
			"Cross-verification with partner country data (mirror statistics)",
		}},
		{Label: "Confidentiality", Value: "Individual trader information is protected. Only aggregated statistics are published."},
		{Label: "Contact Information", Lines: []string{
			"National Institute of Statistics of Rwanda (NISR)",
			"Email: info@statistics.gov.rw",
			"Website: www.statistics.gov.rw",
		}},
	},
}

// infoColor is the dataset info alert color per trade type
func infoColor(t domain.TradeType) string {
	if t == domain.TradeTypeInformal {
		return "success"
	}
	return "primary"
}

// metadata shows the dataset description, the raw data table and the data
// dictionary. An empty view keeps the cards and dictionary and replaces the
// dataset info with a warning.
func metadata(v view.FilteredView) (Body, error) {
	body := Body{
		Cards:      []Card{metadataCard, methodologyCard},
		Dictionary: domain.DataDictionary(),
	}

	if v.Empty() {
		body.Info = &Alert{Level: "warning", Message: table.NoDataMessage, Detail: table.NoDataDetail}
		d := table.NoDataDescriptor(v.TradeType())
		body.DataTable = &d
		return body, nil
	}

	s := view.Summarize(v)
	body.Summary = &s
	body.Info = &Alert{
		Level:   infoColor(v.TradeType()),
		Heading: fmt.Sprintf("Currently viewing: %s Trade Dataset", v.TradeType()),
		Message: s.InfoLine(),
	}
	d := table.Render(v, table.DefaultConfig())
	body.DataTable = &d
	return body, nil
}
