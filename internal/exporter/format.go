package exporter

import (
	"errors"
	"fmt"
	"strings"

	"mtid/pkg/contracts/domain"
)

// ErrUnsupportedFormat is returned for unknown export formats
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Format is an export file format
type Format string

const (
	FormatXLSX   Format = "xlsx"
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
)

// Formats returns the supported export formats, default first
func Formats() []Format {
	return []Format{FormatXLSX, FormatCSV, FormatSQLite}
}

// ParseFormat parses a format name; empty selects xlsx
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatXLSX, nil
	case FormatXLSX, FormatCSV, FormatSQLite:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type served for the format
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatSQLite:
		return "application/vnd.sqlite3"
	default:
		return "application/octet-stream"
	}
}

// FileName returns the download name for an export of tradeType
func (f Format) FileName(tradeType domain.TradeType) string {
	ext := string(f)
	if f == FormatSQLite {
		ext = "db"
	}
	return fmt.Sprintf("%s_trade_data.%s", strings.ToLower(string(tradeType)), ext)
}

// headers returns the displayed column names used as export headers
func headers() []string {
	return domain.DisplayColumns()
}

// stringRows renders each record's displayed columns as strings
func stringRows(records []domain.TradeRecord) [][]string {
	cols := domain.DisplayColumns()
	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = r.Value(c)
		}
		rows[i] = row
	}
	return rows
}
