package dataset

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"mtid/pkg/contracts/domain"
)

const header = "Year,Quarter,Month,Flow,HS2,HS4,HS_Code,HS_Description,Partner_Country,Region,Trade_Value_USD,Quantity,Unit,Mode_of_Transport,Customs_Office"

const formalCSV = header + `
2024,Q1,January,Export,09,0902,090240,Tea,Kenya,EAC,100,10,Kg,Road,Gatuna
2023,Q4,December,Import,27,2710,271019,Fuel oil,Tanzania,EAC,"2,500.75",1000,Litres,Road,Rusumo
`

const informalCSV = header + `
2024,q2,April,import,07,0701,070190,Potatoes,Uganda,EAC,50,,Kg,road,Cyanika
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newTestLoader() *Loader {
	return NewLoader(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	formalPath := writeFile(t, dir, "formal_trade.csv", formalCSV)
	informalPath := writeFile(t, dir, "informal_trade.csv", informalCSV)

	ds, err := newTestLoader().Load(context.Background(), formalPath, informalPath)
	require.NoError(t, err)
	require.Equal(t, 3, ds.Len())

	records := ds.Records()
	assert.Equal(t, domain.TradeTypeFormal, records[0].TradeType())
	assert.Equal(t, domain.TradeTypeFormal, records[1].TradeType())
	assert.Equal(t, domain.TradeTypeInformal, records[2].TradeType())

	assert.Equal(t, "09", records[0].HS2, "leading zeros must survive")
	assert.Equal(t, "2500.75", records[1].TradeValueUSD.String())

	informal := records[2]
	assert.Equal(t, domain.Q2, informal.Quarter)
	assert.Equal(t, domain.FlowImport, informal.Flow)
	assert.Equal(t, domain.TransportRoad, informal.ModeOfTransport)
	assert.True(t, informal.Quantity.IsZero())

	sources := ds.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, 2, sources[0].Records)
	assert.Equal(t, informalPath, sources[1].Path)
}

func TestLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name       string
		formal     string
		wantErr    error
		wantRow    int
		wantColumn string
	}{
		{
			name:       "missing column",
			formal:     strings.Replace(formalCSV, ",Customs_Office", "", 1),
			wantErr:    ErrMissingColumn,
			wantRow:    1,
			wantColumn: domain.ColCustomsOffice,
		},
		{
			name:       "negative value",
			formal:     header + "\n2024,Q1,January,Export,09,0902,090240,Tea,Kenya,EAC,-5,1,Kg,Road,Gatuna\n",
			wantErr:    ErrInvalidValue,
			wantRow:    2,
			wantColumn: domain.ColTradeValueUSD,
		},
		{
			name:       "bad flow",
			formal:     header + "\n2024,Q1,January,Transit,09,0902,090240,Tea,Kenya,EAC,5,1,Kg,Road,Gatuna\n",
			wantErr:    ErrInvalidValue,
			wantRow:    2,
			wantColumn: domain.ColFlow,
		},
		{
			name:       "bad year",
			formal:     header + "\nlast year,Q1,January,Export,09,0902,090240,Tea,Kenya,EAC,5,1,Kg,Road,Gatuna\n",
			wantErr:    ErrInvalidValue,
			wantRow:    2,
			wantColumn: domain.ColYear,
		},
		{
			name:    "empty file",
			formal:  "",
			wantErr: ErrEmptySource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			formalPath := writeFile(t, dir, "formal.csv", tt.formal)
			informalPath := writeFile(t, dir, "informal.csv", informalCSV)

			ds, err := newTestLoader().Load(context.Background(), formalPath, informalPath)
			require.Error(t, err)
			assert.Nil(t, ds)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			var loadErr *DataLoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, formalPath, loadErr.Path)
			assert.Equal(t, tt.wantRow, loadErr.Row)
			assert.Equal(t, tt.wantColumn, loadErr.Column)
		})
	}
}

func TestLoader_Load_MissingFile(t *testing.T) {
	dir := t.TempDir()
	informalPath := writeFile(t, dir, "informal.csv", informalCSV)

	_, err := newTestLoader().Load(context.Background(), filepath.Join(dir, "nope.csv"), informalPath)
	require.Error(t, err)
	assert.True(t, IsDataLoadError(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoader_Load_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	formalPath := writeFile(t, dir, "formal.json", "{}")
	informalPath := writeFile(t, dir, "informal.csv", informalCSV)

	_, err := newTestLoader().Load(context.Background(), formalPath, informalPath)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoader_ReadFile_XLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "formal.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		toAny(strings.Split(header, ",")),
		{2024, "Q3", "July", "Export", "09", "0902", "090240", "Tea", "Kenya", "EAC", 320.5, 40, "Kg", "Air", "Kigali Airport"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	records, err := newTestLoader().ReadFile(context.Background(), path, domain.TradeTypeFormal)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2024, records[0].Year)
	assert.Equal(t, domain.TransportAir, records[0].ModeOfTransport)
	assert.Equal(t, "320.5", records[0].TradeValueUSD.String())
	assert.Equal(t, domain.TradeTypeFormal, records[0].TradeType())
}

func TestLoader_Decode_SkipsBlankRowsAndBOM(t *testing.T) {
	content := "\xEF\xBB\xBF" + header + "\n\n2024,Q1,January,Export,09,0902,090240,Tea,Kenya,EAC,100,10,Kg,Sea,Gatuna\n"
	records, err := newTestLoader().Decode(context.Background(), strings.NewReader(content), FormatCSV, "mem", domain.TradeTypeInformal)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.TransportSea, records[0].ModeOfTransport)
}

func TestLoader_Decode_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestLoader().Decode(ctx, strings.NewReader(formalCSV), FormatCSV, "mem", domain.TradeTypeFormal)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_StampsTradeTypes(t *testing.T) {
	rec := domain.TradeRecord{Year: 2024}
	ds := New([]domain.TradeRecord{rec}, []domain.TradeRecord{rec, rec})

	assert.Equal(t, 3, ds.Len())
	formal := ds.Select(func(r domain.TradeRecord) bool { return r.TradeType() == domain.TradeTypeFormal })
	assert.Len(t, formal, 1)

	var nilDS *Dataset
	assert.Equal(t, 0, nilDS.Len())
	assert.Nil(t, nilDS.Records())
}

func TestDataLoadError_Error(t *testing.T) {
	err := &DataLoadError{Path: "a.csv", Row: 3, Column: "Flow", Err: ErrInvalidValue}
	assert.Equal(t, `load a.csv row 3 column "Flow": invalid value`, err.Error())

	err = &DataLoadError{Path: "a.csv", Err: os.ErrNotExist}
	assert.Equal(t, "load a.csv: file does not exist", err.Error())
}

func toAny(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
