package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"mtid/pkg/contracts/domain"
)

// Loader reads trade sources into a Dataset
type Loader struct {
	logger   *slog.Logger
	validate *validator.Validate
}

// NewLoader creates a loader. A nil logger uses slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:   logger.With(slog.String("component", "dataset_loader")),
		validate: newRecordValidator(),
	}
}

// newRecordValidator reports field errors by source column name and
// validates decimals through their float value.
func newRecordValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Load reads the formal and informal sources concurrently and returns the
// unified dataset. Any failure is returned as a *DataLoadError.
func (l *Loader) Load(ctx context.Context, formalPath, informalPath string) (*Dataset, error) {
	start := time.Now()
	l.logger.InfoContext(ctx, "loading trade dataset",
		slog.String("formal_path", formalPath),
		slog.String("informal_path", informalPath))

	var formal, informal []domain.TradeRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		formal, err = l.ReadFile(gctx, formalPath, domain.TradeTypeFormal)
		return err
	})
	g.Go(func() error {
		var err error
		informal, err = l.ReadFile(gctx, informalPath, domain.TradeTypeInformal)
		return err
	})
	if err := g.Wait(); err != nil {
		l.logger.ErrorContext(ctx, "failed to load trade dataset",
			slog.String("error", err.Error()))
		return nil, err
	}

	records := make([]domain.TradeRecord, 0, len(formal)+len(informal))
	records = append(records, formal...)
	records = append(records, informal...)

	ds := &Dataset{
		records: records,
		sources: []Source{
			{TradeType: domain.TradeTypeFormal, Path: formalPath, Records: len(formal)},
			{TradeType: domain.TradeTypeInformal, Path: informalPath, Records: len(informal)},
		},
		loadedAt: time.Now(),
	}

	l.logger.InfoContext(ctx, "trade dataset loaded",
		slog.Int("formal_records", len(formal)),
		slog.Int("informal_records", len(informal)),
		slog.Duration("duration", time.Since(start)))

	return ds, nil
}

// ReadFile reads a single source file and stamps every record with tradeType
func (l *Loader) ReadFile(ctx context.Context, path string, tradeType domain.TradeType) ([]domain.TradeRecord, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	defer f.Close()

	return l.Decode(ctx, f, format, path, tradeType)
}

// Decode parses a tabular stream. name is only used in error messages.
func (l *Loader) Decode(ctx context.Context, r io.Reader, format Format, name string, tradeType domain.TradeType) ([]domain.TradeRecord, error) {
	rows, err := readTable(r, format)
	if err != nil {
		return nil, &DataLoadError{Path: name, Err: err}
	}
	if len(rows) == 0 {
		return nil, &DataLoadError{Path: name, Err: ErrEmptySource}
	}

	idx := headerIndex(rows[0])
	for _, col := range domain.RequiredColumns() {
		if _, ok := idx[col]; !ok {
			return nil, &DataLoadError{Path: name, Row: 1, Column: col, Err: ErrMissingColumn}
		}
	}

	records := make([]domain.TradeRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, &DataLoadError{Path: name, Err: err}
			}
		}
		if isBlankRow(row) {
			continue
		}
		line := i + 2
		rec, err := l.parseRow(row, idx)
		if err != nil {
			var cellErr *cellError
			if errors.As(err, &cellErr) {
				return nil, &DataLoadError{Path: name, Row: line, Column: cellErr.column, Err: cellErr.err}
			}
			return nil, &DataLoadError{Path: name, Row: line, Err: err}
		}
		records = append(records, rec.WithTradeType(tradeType))
	}

	l.logger.DebugContext(ctx, "source decoded",
		slog.String("source", name),
		slog.String("trade_type", string(tradeType)),
		slog.Int("records", len(records)))

	return records, nil
}

type cellError struct {
	column string
	err    error
}

func (e *cellError) Error() string {
	return fmt.Sprintf("column %s: %v", e.column, e.err)
}

func (l *Loader) parseRow(row []string, idx map[string]int) (domain.TradeRecord, error) {
	cell := func(col string) string {
		i := idx[col]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rec domain.TradeRecord
	var err error

	if rec.Year, err = parseYear(cell(domain.ColYear)); err != nil {
		return rec, &cellError{domain.ColYear, err}
	}
	rec.Quarter = domain.Quarter(strings.ToUpper(cell(domain.ColQuarter)))
	rec.Month = cell(domain.ColMonth)
	rec.Flow = domain.Flow(canonical(cell(domain.ColFlow), string(domain.FlowExport), string(domain.FlowImport)))
	rec.HS2 = cell(domain.ColHS2)
	rec.HS4 = cell(domain.ColHS4)
	rec.HSCode = cell(domain.ColHSCode)
	rec.HSDescription = cell(domain.ColHSDescription)
	rec.PartnerCountry = cell(domain.ColPartnerCountry)
	rec.Region = cell(domain.ColRegion)
	if rec.TradeValueUSD, err = parseDecimal(cell(domain.ColTradeValueUSD), false); err != nil {
		return rec, &cellError{domain.ColTradeValueUSD, err}
	}
	if rec.Quantity, err = parseDecimal(cell(domain.ColQuantity), true); err != nil {
		return rec, &cellError{domain.ColQuantity, err}
	}
	rec.Unit = cell(domain.ColUnit)
	rec.ModeOfTransport = domain.TransportMode(canonical(cell(domain.ColModeOfTransport),
		string(domain.TransportRoad), string(domain.TransportAir), string(domain.TransportSea)))
	rec.CustomsOffice = cell(domain.ColCustomsOffice)

	if err := l.validate.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return rec, &cellError{fe.Field(), fmt.Errorf("%w: %v fails %q", ErrInvalidValue, fe.Value(), fe.Tag())}
		}
		return rec, err
	}
	return rec, nil
}

// parseYear accepts integer years and float renderings such as "2024.0"
func parseYear(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty year", ErrInvalidValue)
	}
	if y, err := strconv.Atoi(s); err == nil {
		return y, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("%w: year %q", ErrInvalidValue, s)
	}
	return int(f), nil
}

// parseDecimal parses a numeric cell, tolerating thousands separators
func parseDecimal(s string, emptyIsZero bool) (decimal.Decimal, error) {
	if s == "" {
		if emptyIsZero {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("%w: empty number", ErrInvalidValue)
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: number %q", ErrInvalidValue, s)
	}
	return d, nil
}

// canonical maps s case-insensitively onto one of the allowed spellings
func canonical(s string, allowed ...string) string {
	for _, a := range allowed {
		if strings.EqualFold(s, a) {
			return a
		}
	}
	return s
}

// Load is a convenience wrapper around NewLoader(nil).Load
func Load(ctx context.Context, formalPath, informalPath string) (*Dataset, error) {
	return NewLoader(nil).Load(ctx, formalPath, informalPath)
}
