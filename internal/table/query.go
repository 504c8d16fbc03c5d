package table

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"mtid/internal/view"
	"mtid/pkg/contracts/domain"
)

var (
	// ErrInvalidFilter is returned for unparseable or unknown-column filters
	ErrInvalidFilter = errors.New("invalid filter expression")
	// ErrInvalidSort is returned for unknown sort columns or directions
	ErrInvalidSort = errors.New("invalid sort specification")
	// ErrInvalidPage is returned for page numbers outside the result
	ErrInvalidPage = errors.New("invalid page number")
)

// Direction is a sort direction
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortSpec sorts by one column
type SortSpec struct {
	Column    string    `json:"column_id"`
	Direction Direction `json:"direction"`
}

// Query is a client table request. Page is 1-based; zero means the first page.
type Query struct {
	Page    int               `json:"page"`
	Sort    []SortSpec        `json:"sort_by,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
}

// Page is one page of a queried table
type Page struct {
	Number     int              `json:"page"`
	Size       int              `json:"page_size"`
	TotalRows  int              `json:"total_rows"`
	TotalPages int              `json:"total_pages"`
	TradeType  domain.TradeType `json:"trade_type"`
	Rows       []Row            `json:"rows"`
}

// ParseQuery reads a Query from URL parameters:
// page=N, sort=Col:desc,Col2 and filter[Col]=expr.
func ParseQuery(values url.Values) (Query, error) {
	var q Query

	if p := strings.TrimSpace(values.Get("page")); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return q, fmt.Errorf("%w: %q", ErrInvalidPage, p)
		}
		q.Page = n
	}

	if s := strings.TrimSpace(values.Get("sort")); s != "" {
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			spec := SortSpec{Column: part, Direction: Asc}
			if col, dir, ok := strings.Cut(part, ":"); ok {
				spec.Column = strings.TrimSpace(col)
				spec.Direction = Direction(strings.ToLower(strings.TrimSpace(dir)))
			}
			q.Sort = append(q.Sort, spec)
		}
	}

	for key, vals := range values {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") || len(vals) == 0 {
			continue
		}
		if q.Filters == nil {
			q.Filters = make(map[string]string)
		}
		q.Filters[key[len("filter["):len(key)-1]] = vals[0]
	}

	return q, q.Validate()
}

// Validate checks sort columns, directions and filter expressions
func (q Query) Validate() error {
	if q.Page < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPage, q.Page)
	}
	for _, s := range q.Sort {
		if _, ok := domain.KindOf(s.Column); !ok {
			return fmt.Errorf("%w: unknown column %q", ErrInvalidSort, s.Column)
		}
		if s.Direction != Asc && s.Direction != Desc {
			return fmt.Errorf("%w: direction %q", ErrInvalidSort, s.Direction)
		}
	}
	_, err := compileFilters(q.Filters)
	return err
}

// Select applies the query's filters and sort to v without paging.
// Exports use it so that they contain exactly what the table shows.
func Select(v view.FilteredView, q Query) ([]domain.TradeRecord, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	preds, err := compileFilters(q.Filters)
	if err != nil {
		return nil, err
	}

	out := make([]domain.TradeRecord, 0, v.Len())
	v.Each(func(_ int, rec domain.TradeRecord) {
		for _, p := range preds {
			if !p.match(rec) {
				return
			}
		}
		out = append(out, rec)
	})

	if len(q.Sort) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			return less(out[i], out[j], q.Sort)
		})
	}
	return out, nil
}

// Apply filters, sorts and pages v
func Apply(v view.FilteredView, q Query, cfg Config) (Page, error) {
	records, err := Select(v, q)
	if err != nil {
		return Page{}, err
	}

	size := cfg.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	number := q.Page
	if number == 0 {
		number = 1
	}
	totalPages := (len(records) + size - 1) / size
	if number > 1 && number > totalPages {
		return Page{}, fmt.Errorf("%w: %d of %d", ErrInvalidPage, number, totalPages)
	}

	start := (number - 1) * size
	end := start + size
	if end > len(records) {
		end = len(records)
	}

	page := Page{
		Number:     number,
		Size:       size,
		TotalRows:  len(records),
		TotalPages: totalPages,
		TradeType:  v.TradeType(),
		Rows:       make([]Row, 0, end-start),
	}
	for i := start; i < end; i++ {
		page.Rows = append(page.Rows, renderRow(i-start, records[i], cfg))
	}
	return page, nil
}

func less(a, b domain.TradeRecord, specs []SortSpec) bool {
	for _, s := range specs {
		c := compareColumn(a, b, s.Column)
		if c == 0 {
			continue
		}
		if s.Direction == Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compareColumn(a, b domain.TradeRecord, column string) int {
	if x, ok := a.Numeric(column); ok {
		y, _ := b.Numeric(column)
		return x.Cmp(y)
	}
	if column == domain.ColQuarter {
		if c := a.Quarter.Index() - b.Quarter.Index(); c != 0 {
			return c
		}
	}
	return strings.Compare(a.Value(column), b.Value(column))
}
