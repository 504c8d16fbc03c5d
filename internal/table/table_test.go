package table

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

func rec(year int, q domain.Quarter, flow domain.Flow, partner string, value string) domain.TradeRecord {
	return domain.TradeRecord{
		Year:            year,
		Quarter:         q,
		Month:           "March",
		Flow:            flow,
		HS2:             "09",
		HS4:             "0902",
		HSCode:          "090240",
		HSDescription:   "Tea",
		PartnerCountry:  partner,
		Region:          "EAC",
		TradeValueUSD:   decimal.RequireFromString(value),
		Quantity:        decimal.NewFromInt(3),
		Unit:            "Kg",
		ModeOfTransport: domain.TransportRoad,
		CustomsOffice:   "Gatuna",
	}.WithTradeType(domain.TradeTypeFormal)
}

func sampleView() view.FilteredView {
	return view.FromRecords(domain.TradeTypeFormal, []domain.TradeRecord{
		rec(2024, domain.Q2, domain.FlowExport, "Kenya", "100"),
		rec(2023, domain.Q1, domain.FlowImport, "Uganda", "250.5"),
		rec(2024, domain.Q1, domain.FlowExport, "Tanzania", "75"),
		rec(2022, domain.Q4, domain.FlowImport, "Kenya", "1000"),
	})
}

func TestRender_Deterministic(t *testing.T) {
	v := sampleView()
	cfg := DefaultConfig()

	first, err := json.Marshal(Render(v, cfg))
	require.NoError(t, err)
	second, err := json.Marshal(Render(v, cfg))
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestRender_Columns(t *testing.T) {
	d := Render(sampleView(), DefaultConfig())

	require.False(t, d.NoData)
	require.Len(t, d.Columns, 15)
	assert.Equal(t, domain.ColYear, d.Columns[0].ID)
	assert.Equal(t, domain.ColCustomsOffice, d.Columns[14].ID)
	for _, c := range d.Columns {
		assert.NotEqual(t, domain.ColTradeType, c.ID)
		assert.NotZero(t, c.Width, c.ID)
	}
	assert.Equal(t, 250, d.Columns[7].Width)
	assert.Equal(t, domain.KindNumeric, d.Columns[10].Type)
	assert.Equal(t, 4, d.TotalRows)
	assert.Equal(t, 20, d.Config.PageSize)
	assert.Equal(t, "multi", d.Config.SortMode)
	assert.Equal(t, "xlsx", d.Config.ExportFormat)
}

func TestRender_CellStylesAndTooltips(t *testing.T) {
	d := Render(sampleView(), DefaultConfig())

	cell := func(row int, column string) Cell {
		for _, c := range d.Rows[row].Cells {
			if c.Column == column {
				return c
			}
		}
		t.Fatalf("column %s not found", column)
		return Cell{}
	}

	flow0 := cell(0, domain.ColFlow)
	require.NotNil(t, flow0.Style)
	assert.Equal(t, ColorSuccess, flow0.Style.Color)
	assert.Empty(t, flow0.Style.BackgroundColor)

	flow1 := cell(1, domain.ColFlow)
	require.NotNil(t, flow1.Style)
	assert.Equal(t, ColorDanger, flow1.Style.Color)
	assert.Equal(t, ColorStripe, flow1.Style.BackgroundColor)

	value := cell(0, domain.ColTradeValueUSD)
	require.NotNil(t, value.Style)
	assert.Equal(t, "bold", value.Style.FontWeight)
	assert.Equal(t, ColorAccent, value.Style.Color)
	assert.Equal(t, 100.0, value.Value)
	assert.Equal(t, Tooltip{Type: "markdown", Value: "100"}, value.Tooltip)

	assert.Nil(t, cell(0, domain.ColRegion).Style)
	assert.Equal(t, "Kenya", cell(0, domain.ColPartnerCountry).Tooltip.Value)
}

func TestDefaultConfig_Styles(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "1px solid #ddd", cfg.HeaderStyle.Border)
	assert.Equal(t, "1px solid #ddd", cfg.DataStyle.Border)
	assert.Equal(t, "#2c3e50", cfg.HeaderStyle.BackgroundColor)
	assert.Equal(t, "white", cfg.HeaderStyle.Color)
}

func TestRender_EmptyView(t *testing.T) {
	d := Render(view.FromRecords(domain.TradeTypeInformal, nil), DefaultConfig())

	assert.True(t, d.NoData)
	assert.Equal(t, NoDataMessage, d.Message)
	assert.Equal(t, domain.TradeTypeInformal, d.TradeType)
	assert.Nil(t, d.Columns)
	assert.Nil(t, d.Rows)
}

func TestApply_Filters(t *testing.T) {
	tests := []struct {
		name     string
		filters  map[string]string
		partners []string
	}{
		{"bare text is substring", map[string]string{domain.ColPartnerCountry: "an"}, []string{"Uganda", "Tanzania"}},
		{"exact text", map[string]string{domain.ColPartnerCountry: "= Kenya"}, []string{"Kenya", "Kenya"}},
		{"not equal", map[string]string{domain.ColFlow: "!= Export"}, []string{"Uganda", "Kenya"}},
		{"numeric greater", map[string]string{domain.ColTradeValueUSD: "> 100"}, []string{"Uganda", "Kenya"}},
		{"numeric at least", map[string]string{domain.ColTradeValueUSD: ">= 100"}, []string{"Kenya", "Uganda", "Kenya"}},
		{"numeric bare is equality", map[string]string{domain.ColYear: "2024"}, []string{"Kenya", "Tanzania"}},
		{"word operator", map[string]string{domain.ColTradeValueUSD: "lt 100"}, []string{"Tanzania"}},
		{"contains quoted", map[string]string{domain.ColPartnerCountry: `contains "KEN"`}, []string{"Kenya", "Kenya"}},
		{"combined", map[string]string{domain.ColYear: "2024", domain.ColTradeValueUSD: "<= 80"}, []string{"Tanzania"}},
		{"blank ignored", map[string]string{domain.ColRegion: "  "}, []string{"Kenya", "Uganda", "Tanzania", "Kenya"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Select(sampleView(), Query{Filters: tt.filters})
			require.NoError(t, err)
			partners := make([]string, len(got))
			for i, r := range got {
				partners[i] = r.PartnerCountry
			}
			assert.Equal(t, tt.partners, partners)
		})
	}
}

func TestApply_InvalidQueries(t *testing.T) {
	tests := []struct {
		name    string
		query   Query
		wantErr error
	}{
		{"unknown filter column", Query{Filters: map[string]string{"Trade_Type": "Formal"}}, ErrInvalidFilter},
		{"non numeric operand", Query{Filters: map[string]string{domain.ColYear: "> soon"}}, ErrInvalidFilter},
		{"missing operand", Query{Filters: map[string]string{domain.ColFlow: "="}}, ErrInvalidFilter},
		{"unknown sort column", Query{Sort: []SortSpec{{Column: "Nope", Direction: Asc}}}, ErrInvalidSort},
		{"bad direction", Query{Sort: []SortSpec{{Column: domain.ColYear, Direction: "up"}}}, ErrInvalidSort},
		{"page past end", Query{Page: 2}, ErrInvalidPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(sampleView(), tt.query, DefaultConfig())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestApply_MultiSort(t *testing.T) {
	q := Query{Sort: []SortSpec{
		{Column: domain.ColYear, Direction: Desc},
		{Column: domain.ColTradeValueUSD, Direction: Asc},
	}}

	got, err := Select(sampleView(), q)
	require.NoError(t, err)
	values := make([]string, len(got))
	for i, r := range got {
		values[i] = r.TradeValueUSD.String()
	}
	assert.Equal(t, []string{"75", "100", "250.5", "1000"}, values)
}

func TestApply_NumericSortIsNotLexical(t *testing.T) {
	got, err := Select(sampleView(), Query{Sort: []SortSpec{{Column: domain.ColTradeValueUSD, Direction: Asc}}})
	require.NoError(t, err)
	assert.Equal(t, "75", got[0].TradeValueUSD.String())
	assert.Equal(t, "1000", got[3].TradeValueUSD.String())
}

func TestApply_Paging(t *testing.T) {
	records := make([]domain.TradeRecord, 45)
	for i := range records {
		records[i] = rec(2024, domain.Q1, domain.FlowExport, "Kenya", "1")
	}
	v := view.FromRecords(domain.TradeTypeFormal, records)

	page, err := Apply(v, Query{Page: 3}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 3, page.Number)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 45, page.TotalRows)
	assert.Len(t, page.Rows, 5)

	first, err := Apply(v, Query{}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Number)
	assert.Len(t, first.Rows, 20)
}

func TestApply_EmptyViewFirstPage(t *testing.T) {
	page, err := Apply(view.FromRecords(domain.TradeTypeInformal, nil), Query{}, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalRows)
	assert.Equal(t, 0, page.TotalPages)
	assert.Empty(t, page.Rows)
}

func TestParseQuery(t *testing.T) {
	values := url.Values{}
	values.Set("page", "2")
	values.Set("sort", "Year:desc, Partner_Country")
	values.Set("filter[Flow]", "= Export")
	values.Set("other", "ignored")

	q, err := ParseQuery(values)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Page)
	assert.Equal(t, []SortSpec{
		{Column: domain.ColYear, Direction: Desc},
		{Column: domain.ColPartnerCountry, Direction: Asc},
	}, q.Sort)
	assert.Equal(t, map[string]string{domain.ColFlow: "= Export"}, q.Filters)

	_, err = ParseQuery(url.Values{"page": {"zero"}})
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, err = ParseQuery(url.Values{"filter[Quantity]": {">= lots"}})
	assert.ErrorIs(t, err, ErrInvalidFilter)
}
