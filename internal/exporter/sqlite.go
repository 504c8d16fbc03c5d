package exporter

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	_ "modernc.org/sqlite"

	"mtid/pkg/contracts/domain"
)

// SQLiteWriter writes records into a standalone SQLite database file
type SQLiteWriter struct{}

// NewSQLiteWriter creates a SQLite writer
func NewSQLiteWriter() *SQLiteWriter {
	return &SQLiteWriter{}
}

const createTradeRecords = `CREATE TABLE trade_records (
	year INTEGER NOT NULL,
	quarter TEXT NOT NULL,
	month TEXT NOT NULL,
	flow TEXT NOT NULL,
	hs2 TEXT NOT NULL,
	hs4 TEXT NOT NULL,
	hs_code TEXT NOT NULL,
	hs_description TEXT,
	partner_country TEXT NOT NULL,
	region TEXT,
	trade_value_usd TEXT NOT NULL,
	quantity TEXT NOT NULL,
	unit TEXT,
	mode_of_transport TEXT NOT NULL,
	customs_office TEXT
);`

const insertTradeRecord = `INSERT INTO trade_records (
	year, quarter, month, flow, hs2, hs4, hs_code, hs_description,
	partner_country, region, trade_value_usd, quantity, unit,
	mode_of_transport, customs_office
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// WriteFile creates a database at path holding records. An existing file is replaced.
// Decimal amounts are stored as text to keep them exact.
func (s *SQLiteWriter) WriteFile(ctx context.Context, path string, records []domain.TradeRecord) (err error) {
	if path == "" {
		return fmt.Errorf("sqlite: path is required")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err = db.ExecContext(ctx, createTradeRecords); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, insertTradeRecord)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		_, err = stmt.ExecContext(ctx,
			r.Year, string(r.Quarter), r.Month, string(r.Flow),
			r.HS2, r.HS4, r.HSCode, r.HSDescription,
			r.PartnerCountry, r.Region, r.TradeValueUSD.String(), r.Quantity.String(), r.Unit,
			string(r.ModeOfTransport), r.CustomsOffice,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert record %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// Write builds the database in a temporary file and copies it to w
func (s *SQLiteWriter) Write(ctx context.Context, w io.Writer, records []domain.TradeRecord) error {
	tmp, err := os.CreateTemp("", "mtid-export-*.db")
	if err != nil {
		return err
	}
	path := tmp.Name()
	tmp.Close()
	defer os.Remove(path)

	if err := s.WriteFile(ctx, path, records); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
