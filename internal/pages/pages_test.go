package pages

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtid/internal/dataset"
	"mtid/internal/table"
	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

type recordOpt func(*domain.TradeRecord)

func newRecord(flow domain.Flow, partner string, value, qty int64, opts ...recordOpt) domain.TradeRecord {
	r := domain.TradeRecord{
		Year:            2024,
		Quarter:         domain.Q1,
		Month:           "February",
		Flow:            flow,
		HS2:             "09",
		HS4:             "0902",
		HSCode:          "090240",
		HSDescription:   "Tea",
		PartnerCountry:  partner,
		Region:          "EAC",
		TradeValueUSD:   decimal.NewFromInt(value),
		Quantity:        decimal.NewFromInt(qty),
		Unit:            "Kg",
		ModeOfTransport: domain.TransportRoad,
		CustomsOffice:   "Gatuna",
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func sampleDataset() *dataset.Dataset {
	formal := []domain.TradeRecord{
		newRecord(domain.FlowExport, "Kenya", 500, 50),
		newRecord(domain.FlowImport, "Tanzania", 300, 30, func(r *domain.TradeRecord) {
			r.Quarter = domain.Q2
			r.Month = "May"
			r.ModeOfTransport = domain.TransportSea
			r.CustomsOffice = "Rusumo"
		}),
		newRecord(domain.FlowExport, "Uganda", 200, 20, func(r *domain.TradeRecord) {
			r.Year = 2023
			r.Quarter = domain.Q4
			r.Month = "November"
			r.Region = "COMESA"
		}),
	}
	informal := []domain.TradeRecord{
		newRecord(domain.FlowImport, "DR Congo", 50, 5),
	}
	return dataset.New(formal, informal)
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []Status
}

func (o *recordingObserver) PageRendered(_ context.Context, _ domain.PageID, _ domain.TradeType, status Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, status)
}

func TestController_RendersEveryPage(t *testing.T) {
	c := NewController(nil, nil)
	ds := sampleDataset()

	for _, page := range domain.PageIDs() {
		for _, tt := range domain.TradeTypes() {
			t.Run(string(page)+"/"+string(tt), func(t *testing.T) {
				content := c.Render(context.Background(), ds, domain.ViewState{Page: page, TradeType: tt})
				assert.Equal(t, StatusOK, content.Status)
				assert.Nil(t, content.Alert)
				assert.Equal(t, page, content.Page)
				assert.Equal(t, tt, content.TradeType)
				assert.NotEmpty(t, content.Title)
				assert.Contains(t, content.Header.Viewing, "TRADE")
			})
		}
	}
}

func TestController_UnknownPageFallsBack(t *testing.T) {
	content := NewController(nil, nil).Render(context.Background(), sampleDataset(),
		domain.ViewState{Page: "page404", TradeType: domain.TradeTypeFormal})
	assert.Equal(t, domain.PageExecutive, content.Page)
	assert.Equal(t, "Page 1: Executive Trade Overview", content.Title)
}

func TestController_EmptyView(t *testing.T) {
	ds := dataset.New([]domain.TradeRecord{newRecord(domain.FlowExport, "Kenya", 1, 1)}, nil)
	obs := &recordingObserver{}
	c := NewController(nil, obs)

	content := c.Render(context.Background(), ds, domain.ViewState{Page: domain.PageCountries, TradeType: domain.TradeTypeInformal})
	assert.Equal(t, StatusEmpty, content.Status)
	require.NotNil(t, content.Alert)
	assert.Equal(t, "warning", content.Alert.Level)
	assert.Equal(t, table.NoDataMessage, content.Alert.Message)
	assert.Empty(t, content.Body.Charts)

	meta := c.Render(context.Background(), ds, domain.ViewState{Page: domain.PageMetadata, TradeType: domain.TradeTypeInformal})
	assert.Equal(t, StatusEmpty, meta.Status)
	require.NotNil(t, meta.Body.DataTable)
	assert.True(t, meta.Body.DataTable.NoData)
	assert.Len(t, meta.Body.Dictionary, 15)
	assert.Equal(t, "warning", meta.Body.Info.Level)

	assert.Equal(t, []Status{StatusEmpty, StatusEmpty}, obs.calls)
}

func TestController_RenderErrorIsolated(t *testing.T) {
	c := NewController(nil, nil)
	c.Register(domain.PageCountries, func(view.FilteredView) (Body, error) {
		return Body{}, errors.New("aggregation failed")
	})
	c.Register(domain.PageProducts, func(view.FilteredView) (Body, error) {
		var m map[string]int
		m["boom"]++
		return Body{}, nil
	})
	ds := sampleDataset()

	failed := c.Render(context.Background(), ds, domain.ViewState{Page: domain.PageCountries, TradeType: domain.TradeTypeFormal})
	assert.Equal(t, StatusError, failed.Status)
	require.NotNil(t, failed.Alert)
	assert.Equal(t, "danger", failed.Alert.Level)
	assert.Contains(t, failed.Alert.Message, "aggregation failed")
	assert.Equal(t, "Unable to load data table.", failed.Alert.Detail)

	panicked := c.Render(context.Background(), ds, domain.ViewState{Page: domain.PageProducts, TradeType: domain.TradeTypeFormal})
	assert.Equal(t, StatusError, panicked.Status)
	assert.Contains(t, panicked.Alert.Message, "panic")

	ok := c.Render(context.Background(), ds, domain.ViewState{Page: domain.PageBalance, TradeType: domain.TradeTypeFormal})
	assert.Equal(t, StatusOK, ok.Status)
}

func TestExecutive(t *testing.T) {
	body, err := executive(view.Filter(sampleDataset(), domain.TradeTypeFormal))
	require.NoError(t, err)

	kpis := make(map[string]string)
	for _, k := range body.KPIs {
		kpis[k.ID] = k.Value
	}
	assert.Equal(t, "$700", kpis["total-exports"])
	assert.Equal(t, "$300", kpis["total-imports"])
	assert.Equal(t, "$400", kpis["trade-balance"])
	assert.Equal(t, "3", kpis["records"])
	assert.Equal(t, "3", kpis["partners"])

	require.Len(t, body.Charts, 2)
	trend := body.Charts[0]
	assert.Equal(t, []string{"2023 Q4", "2024 Q1", "2024 Q2"}, trend.Labels)
	assert.Equal(t, []float64{200, 500, 0}, trend.Series[0].Values)
	assert.Equal(t, []float64{0, 0, 300}, trend.Series[1].Values)
}

func TestCountries(t *testing.T) {
	body, err := countries(view.Filter(sampleDataset(), domain.TradeTypeFormal))
	require.NoError(t, err)

	require.Len(t, body.Tables, 1)
	rows := body.Tables[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"1", "Kenya", "$500", "$0", "$500", "50.0%"}, rows[0])
	assert.Equal(t, "Uganda", rows[2][1])
	assert.Equal(t, []string{"EAC", "COMESA"}, body.Charts[1].Labels)
}

func TestBalance(t *testing.T) {
	body, err := balance(view.Filter(sampleDataset(), domain.TradeTypeFormal))
	require.NoError(t, err)

	rows := body.Tables[0].Rows
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"2024 Q2", "$0", "$300", "-$300", "Deficit"}, rows[2])
	assert.Equal(t, "Surplus", rows[0][4])
	assert.Equal(t, "70.0%", body.KPIs[1].Value)
}

func TestTransport(t *testing.T) {
	body, err := transport(view.Filter(sampleDataset(), domain.TradeTypeFormal))
	require.NoError(t, err)
	assert.Equal(t, []string{"Road", "Sea"}, body.Charts[0].Labels)
	assert.Equal(t, []string{"Gatuna", "Rusumo"}, body.Charts[1].Labels)
}

func TestSmartAlerts(t *testing.T) {
	records := []domain.TradeRecord{
		newRecord(domain.FlowExport, "Kenya", 100, 0),
		newRecord(domain.FlowExport, "Kenya", 100, 10, func(r *domain.TradeRecord) { r.HS4 = "1001" }),
		newRecord(domain.FlowExport, "Kenya", 100, 10, func(r *domain.TradeRecord) { r.Month = "August" }),
	}
	// six ordinary unit values around 10 and one far above them
	for _, v := range []int64{100, 102, 98, 101, 99, 100} {
		records = append(records, newRecord(domain.FlowImport, "Rwanda", v, 10, func(r *domain.TradeRecord) {
			r.HSCode = "090300"
			r.HS4 = "0903"
		}))
	}
	records = append(records, newRecord(domain.FlowImport, "Rwanda", 5000, 10, func(r *domain.TradeRecord) {
		r.HSCode = "090300"
		r.HS4 = "0903"
	}))

	body, err := smartAlerts(view.FromRecords(domain.TradeTypeFormal, records))
	require.NoError(t, err)

	counts := make(map[string]int)
	for _, a := range body.DataAlerts {
		counts[a.Rule] = a.Count
	}
	assert.Equal(t, 1, counts[RuleZeroQuantity])
	assert.Equal(t, 1, counts[RuleHSHierarchy])
	assert.Equal(t, 1, counts[RuleQuarterMonth])
	assert.Equal(t, 1, counts[RuleUnitValueOutlier])

	for _, a := range body.DataAlerts {
		if a.Rule == RuleUnitValueOutlier {
			require.Len(t, a.Examples, 1)
			assert.Equal(t, 10, a.Examples[0].Row)
		}
	}
	assert.Equal(t, "4", body.KPIs[0].Value)
}

func TestQuarterOfMonth(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Quarter
		ok   bool
	}{
		{"January", domain.Q1, true},
		{"jun", domain.Q2, true},
		{"9", domain.Q3, true},
		{"DECEMBER", domain.Q4, true},
		{"13", "", false},
		{"Smarch", "", false},
	}
	for _, tt := range tests {
		got, ok := quarterOfMonth(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestMetadata(t *testing.T) {
	body, err := metadata(view.Filter(sampleDataset(), domain.TradeTypeInformal))
	require.NoError(t, err)

	require.NotNil(t, body.Info)
	assert.Equal(t, "success", body.Info.Level)
	assert.Equal(t, "Currently viewing: Informal Trade Dataset", body.Info.Heading)
	assert.Equal(t, "Total Records: 1 | Columns: 15 | Years: 2024 | Quarters: Q1", body.Info.Message)
	require.NotNil(t, body.DataTable)
	assert.False(t, body.DataTable.NoData)
	require.Len(t, body.Cards, 2)

	source := body.Cards[0]
	assert.Equal(t, "📋 Metadata & Data Source", source.Title)
	assert.Equal(t, CardItem{Label: "Data Source", Value: "EUROTRACE / ASYCUDA++ / Rwanda Revenue Authority (RRA)"}, source.Items[0])
	assert.Contains(t, source.Items, CardItem{Label: "Exclusions", Value: "Trade in services, informal cross-border trade not captured by customs"})
	assert.Contains(t, source.Items, CardItem{Label: "Publication Frequency", Value: "Quarterly, with annual aggregations"})

	method := body.Cards[1]
	assert.Equal(t, "🔬 Methodology", method.Title)
	require.Len(t, method.Items, 5)
	assert.Equal(t, "Data Quality Control", method.Items[2].Label)
	assert.Len(t, method.Items[2].Lines, 4)
	assert.Contains(t, method.Items[2].Lines, "Cross-verification with partner country data (mirror statistics)")
	assert.Equal(t, []string{
		"National Institute of Statistics of Rwanda (NISR)",
		"Email: info@statistics.gov.rw",
		"Website: www.statistics.gov.rw",
	}, method.Items[4].Lines)

	formal, err := metadata(view.Filter(sampleDataset(), domain.TradeTypeFormal))
	require.NoError(t, err)
	assert.Equal(t, "primary", formal.Info.Level)
}

func TestController_Chart(t *testing.T) {
	c := NewController(nil, nil)
	ds := sampleDataset()
	state := domain.ViewState{Page: domain.PageCountries, TradeType: domain.TradeTypeFormal}

	ch, err := c.Chart(ds, state, ChartTopPartners)
	require.NoError(t, err)
	assert.Equal(t, ChartBar, ch.Kind)

	_, err = c.Chart(ds, state, "nope")
	assert.ErrorIs(t, err, ErrUnknownChart)

	_, err = c.Chart(dataset.New(nil, nil), state, ChartTopPartners)
	assert.ErrorIs(t, err, ErrEmptyChart)
}

func TestRenderPNG(t *testing.T) {
	c := NewController(nil, nil)
	ds := sampleDataset()

	charts := []struct {
		page domain.PageID
		id   string
	}{
		{domain.PageExecutive, ChartQuarterlyTrend},
		{domain.PageExecutive, ChartFlowShare},
		{domain.PageCountries, ChartTopPartners},
		{domain.PageBalance, ChartQuarterlyBalance},
	}
	for _, tt := range charts {
		t.Run(tt.id, func(t *testing.T) {
			ch, err := c.Chart(ds, domain.ViewState{Page: tt.page, TradeType: domain.TradeTypeFormal}, tt.id)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, RenderPNG(ch, &buf, 600, 300))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
		})
	}

	var buf bytes.Buffer
	err := RenderPNG(Chart{ID: "blank", Kind: ChartBar}, &buf, 0, 0)
	assert.ErrorIs(t, err, ErrEmptyChart)
}

func TestRender_ChartImageURLs(t *testing.T) {
	content := NewController(nil, nil).Render(context.Background(), sampleDataset(),
		domain.ViewState{Page: domain.PageTransport, TradeType: domain.TradeTypeFormal})
	require.NotEmpty(t, content.Body.Charts)
	assert.Equal(t, "/api/pages/page5/charts/transport-modes.png?trade_type=Formal", content.Body.Charts[0].ImageURL)
}
