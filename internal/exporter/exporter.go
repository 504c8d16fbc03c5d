package exporter

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"mtid/pkg/contracts/domain"
)

// Exporter writes records in any supported Format
type Exporter struct {
	logger *slog.Logger
	csv    *CSVWriter
	xlsx   *XLSXWriter
	sqlite *SQLiteWriter
}

// New creates an exporter. widths are the table column width hints used for
// spreadsheet column sizing and may be nil.
func New(logger *slog.Logger, widths map[string]int) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		logger: logger.With(slog.String("component", "exporter")),
		csv:    NewCSVWriter(),
		xlsx:   NewXLSXWriter(widths),
		sqlite: NewSQLiteWriter(),
	}
}

// Export encodes records as format into w
func (e *Exporter) Export(ctx context.Context, w io.Writer, format Format, records []domain.TradeRecord) error {
	start := time.Now()

	var err error
	switch format {
	case FormatCSV:
		err = e.csv.Write(w, WriteOptions{Headers: headers(), Records: stringRows(records), BOMPrefix: true})
	case FormatXLSX:
		err = e.xlsx.Write(w, records)
	case FormatSQLite:
		err = e.sqlite.Write(ctx, w, records)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "export failed",
			slog.String("format", string(format)),
			slog.String("error", err.Error()))
		return err
	}

	e.logger.InfoContext(ctx, "export written",
		slog.String("format", string(format)),
		slog.Int("record_count", len(records)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// ExportFile writes the export to path, creating parent directories
func (e *Exporter) ExportFile(ctx context.Context, path string, format Format, records []domain.TradeRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if format == FormatSQLite {
		return e.sqlite.WriteFile(ctx, path, records)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := e.Export(ctx, f, format, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
