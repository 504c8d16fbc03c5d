// Package exporter writes trade records to downloadable files.
//
// This package contains three writers:
//
// CSVWriter: CSV output with an optional UTF-8 BOM for Excel compatibility.
//
// XLSXWriter: a single-sheet workbook with a styled header row and numeric cells.
//
// SQLiteWriter: a standalone SQLite database with one trade_records table.
//
// Exporter chooses the writer for a Format. Headers are always the displayed
// column names; the Trade_Type provenance column is never exported.
//
// Example usage:
//
//	exp := exporter.New(logger)
//	err := exp.Export(ctx, w, exporter.FormatXLSX, records)
package exporter
