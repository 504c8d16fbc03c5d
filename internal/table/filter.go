package table

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"mtid/pkg/contracts/domain"
)

type operator string

const (
	opEq       operator = "="
	opNe       operator = "!="
	opGt       operator = ">"
	opGe       operator = ">="
	opLt       operator = "<"
	opLe       operator = "<="
	opContains operator = "contains"
	opBare     operator = ""
)

// symbol operators, longest first so ">=" wins over ">"
var symbolOps = []operator{opGe, opLe, opNe, opGt, opLt, opEq}

var wordOps = map[string]operator{
	"contains": opContains,
	"eq":       opEq,
	"ne":       opNe,
	"gt":       opGt,
	"ge":       opGe,
	"lt":       opLt,
	"le":       opLe,
}

type predicate struct {
	column  string
	kind    domain.ColumnKind
	op      operator
	operand string
	number  decimal.Decimal
}

// compileFilters parses every non-empty expression. Columns are compiled in
// name order so errors are reported deterministically.
func compileFilters(filters map[string]string) ([]predicate, error) {
	columns := make([]string, 0, len(filters))
	for col := range filters {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	preds := make([]predicate, 0, len(columns))
	for _, col := range columns {
		p, ok, err := parseFilter(col, filters[col])
		if err != nil {
			return nil, err
		}
		if ok {
			preds = append(preds, p)
		}
	}
	return preds, nil
}

// parseFilter parses one column filter. ok is false for blank expressions.
func parseFilter(column, expr string) (p predicate, ok bool, err error) {
	kind, known := domain.KindOf(column)
	if !known {
		return p, false, fmt.Errorf("%w: unknown column %q", ErrInvalidFilter, column)
	}
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return p, false, nil
	}

	p = predicate{column: column, kind: kind, op: opBare, operand: expr}
	for _, op := range symbolOps {
		if strings.HasPrefix(expr, string(op)) {
			p.op = op
			p.operand = strings.TrimSpace(expr[len(op):])
			break
		}
	}
	if p.op == opBare {
		if word, rest, found := strings.Cut(expr, " "); found {
			if op, isOp := wordOps[strings.ToLower(word)]; isOp {
				p.op = op
				p.operand = strings.TrimSpace(rest)
			}
		}
	}
	p.operand = unquote(p.operand)
	if p.operand == "" {
		return p, false, fmt.Errorf("%w: %s: missing operand in %q", ErrInvalidFilter, column, expr)
	}

	if kind == domain.KindNumeric && p.op != opContains {
		n, perr := decimal.NewFromString(strings.ReplaceAll(p.operand, ",", ""))
		if perr != nil {
			return p, false, fmt.Errorf("%w: %s: %q is not a number", ErrInvalidFilter, column, p.operand)
		}
		p.number = n
	}
	return p, true, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'') && first == last {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func (p predicate) match(rec domain.TradeRecord) bool {
	if p.kind == domain.KindNumeric && p.op != opContains {
		v, _ := rec.Numeric(p.column)
		c := v.Cmp(p.number)
		switch p.op {
		case opEq, opBare:
			return c == 0
		case opNe:
			return c != 0
		case opGt:
			return c > 0
		case opGe:
			return c >= 0
		case opLt:
			return c < 0
		case opLe:
			return c <= 0
		}
		return false
	}

	value := rec.Value(p.column)
	switch p.op {
	case opBare, opContains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(p.operand))
	case opEq:
		return value == p.operand
	case opNe:
		return value != p.operand
	case opGt:
		return value > p.operand
	case opGe:
		return value >= p.operand
	case opLt:
		return value < p.operand
	case opLe:
		return value <= p.operand
	}
	return false
}
