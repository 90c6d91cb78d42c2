package sheetorm

import (
	"fmt"
	"sort"
	"strconv"
)

// Record is a single row keyed by header name. Values are the decoded cell
// values: strings, float64 numbers, bools, time.Time for date columns, or
// nil for absent cells. A record has no identity beyond the value of the
// configured identifier field.
type Record map[string]any

// SortDirection orders a query result on one column.
type SortDirection string

const (
	Ascending  SortDirection = "ASC"
	Descending SortDirection = "DESC"
)

// Order is one ordering entry of a Query.
type Order struct {
	Header    string
	Direction SortDirection
}

// Query is a structured read descriptor. Every field is optional; the zero
// Query means all rows, all columns, in insertion order.
//
// Headers that do not exist in the sheet are dropped from their clause with
// a logged diagnostic rather than failing the whole query. Where is a
// conjunction of equality predicates only.
type Query struct {
	Select  []string
	Where   map[string]any
	OrderBy []Order
	Limit   int // honored when > 0
	Offset  int // honored when > 0
}

// toText renders a value in its canonical textual form. Both the condition
// matcher and the query builder compare and emit values through this single
// coercion, so numeric 10 and the stored text "10" are equivalent.
func toText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// sortedKeys returns map keys in a stable order so built clauses and
// diagnostics are deterministic.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
