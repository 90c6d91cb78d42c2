package sheetorm

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veetinho/sheetorm/gviz"
)

// buildQuery compiles a structured descriptor into the query dialect.
// Clause order is fixed: select, where, order by, limit, offset; empty
// clauses are omitted entirely.
//
// Unknown headers are dropped from their clause with a diagnostic instead
// of failing the query. When no schema is available the builder degrades to
// selecting everything: name-dependent clauses are skipped, limit and
// offset still apply.
func buildQuery(s *Schema, q Query, log *slog.Logger) string {
	var parts []string

	if s != nil && !s.Empty() {
		if clause := buildSelect(s, q.Select, log); clause != "" {
			parts = append(parts, clause)
		}
		if clause := buildWhere(s, q.Where, log); clause != "" {
			parts = append(parts, clause)
		}
		if clause := buildOrderBy(s, q.OrderBy, log); clause != "" {
			parts = append(parts, clause)
		}
	}

	if q.Limit > 0 {
		parts = append(parts, fmt.Sprintf("limit %d", q.Limit))
	}
	if q.Offset > 0 {
		parts = append(parts, fmt.Sprintf("offset %d", q.Offset))
	}

	return strings.Join(parts, " ")
}

func buildSelect(s *Schema, headers []string, log *slog.Logger) string {
	var codes []string
	for _, h := range headers {
		code, ok := s.Code(h)
		if !ok {
			log.Warn("sheetorm: dropping unknown header from select", "header", h)
			continue
		}
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return ""
	}
	return "select " + strings.Join(codes, ", ")
}

func buildWhere(s *Schema, conditions map[string]any, log *slog.Logger) string {
	var predicates []string
	for _, h := range sortedKeys(conditions) {
		code, ok := s.Code(h)
		if !ok {
			log.Warn("sheetorm: dropping unknown header from where", "header", h)
			continue
		}
		predicates = append(predicates, code+" = "+literal(s.Type(code), conditions[h]))
	}
	if len(predicates) == 0 {
		return ""
	}
	return "where " + strings.Join(predicates, " and ")
}

func buildOrderBy(s *Schema, orders []Order, log *slog.Logger) string {
	var terms []string
	for _, o := range orders {
		code, ok := s.Code(o.Header)
		if !ok {
			log.Warn("sheetorm: dropping unknown header from order by", "header", o.Header)
			continue
		}
		switch strings.ToUpper(string(o.Direction)) {
		case "ASC":
			terms = append(terms, code+" ASC")
		case "DESC":
			terms = append(terms, code+" DESC")
		default:
			// Bare code sorts ascending in the dialect.
			terms = append(terms, code)
		}
	}
	if len(terms) == 0 {
		return ""
	}
	return "order by " + strings.Join(terms, ", ")
}

// literal renders a filter value for the dialect. Number and boolean
// columns take the bare literal; every other or unknown type is quoted with
// embedded quotes escaped.
func literal(t gviz.TypeTag, v any) string {
	text := toText(v)
	switch t {
	case gviz.TypeNumber, gviz.TypeBoolean:
		return text
	default:
		return "'" + strings.ReplaceAll(text, "'", `\'`) + "'"
	}
}
