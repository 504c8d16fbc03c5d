package exporter

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"mtid/pkg/contracts/domain"
)

// DefaultSheetName is the worksheet that holds exported records
const DefaultSheetName = "Trade Data"

// XLSXWriter writes records to a single-sheet workbook
type XLSXWriter struct {
	SheetName    string
	ColumnWidths map[string]int // pixel hints, converted to character widths
}

// NewXLSXWriter creates a workbook writer with the given column width hints
func NewXLSXWriter(widths map[string]int) *XLSXWriter {
	return &XLSXWriter{SheetName: DefaultSheetName, ColumnWidths: widths}
}

// Write encodes records as an .xlsx workbook into w
func (x *XLSXWriter) Write(w io.Writer, records []domain.TradeRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := x.SheetName
	if sheet == "" {
		sheet = DefaultSheetName
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"2C3E50"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	cols := headers()
	for i, col := range cols {
		if px := x.ColumnWidths[col]; px > 0 {
			// roughly 7 pixels per character at the default font
			if err := sw.SetColWidth(i+1, i+1, float64(px)/7); err != nil {
				return fmt.Errorf("failed to set width of %s: %w", col, err)
			}
		}
	}

	header := make([]interface{}, len(cols))
	for i, col := range cols {
		header[i] = col
	}
	if err := sw.SetRow("A1", header, excelize.RowOpts{StyleID: headerStyle}); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, rec := range records {
		row := make([]interface{}, len(cols))
		for j, col := range cols {
			row[j] = xlsxValue(rec, col)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// xlsxValue returns the cell value for col. Decimals that a float64 cannot
// hold exactly are written as text so a reload gets the same digits back.
func xlsxValue(rec domain.TradeRecord, col string) any {
	d, ok := rec.Numeric(col)
	if !ok || col == domain.ColYear {
		return rec.Cell(col)
	}
	if f := d.InexactFloat64(); decimal.NewFromFloat(f).Equal(d) {
		return f
	}
	return d.String()
}
