package sheetorm

import (
	"context"
	"fmt"
)

// matchMode selects how far a condition scan runs.
type matchMode int

const (
	matchFirst matchMode = iota
	matchAll
)

// matchRows scans the data region for rows whose cells equal every
// condition and returns their 1-based physical row numbers in ascending
// order. Mutating operations use this instead of the query path because
// they must act on physical rows, which a query result cannot name.
//
// Comparison is textual on both sides, so a numeric condition matches a
// stored text cell with the same rendering. Unresolvable headers are
// dropped with a diagnostic; the scan fails closed (no matches) when the
// conditions are empty, the schema is unavailable, or nothing resolves.
//
// Row numbers are valid only until the next structural mutation; callers
// deleting multiple rows must process them in descending order themselves.
func (c *Client) matchRows(ctx context.Context, s *Schema, conditions map[string]any, mode matchMode) ([]int, error) {
	if len(conditions) == 0 || s == nil || s.Empty() {
		return nil, nil
	}

	type resolvedCond struct {
		index int
		want  string
	}

	resolved := make([]resolvedCond, 0, len(conditions))
	for _, h := range sortedKeys(conditions) {
		idx, ok := s.Index(h)
		if !ok {
			c.log.Warn("sheetorm: dropping unknown header from conditions", "header", h)
			continue
		}
		resolved = append(resolved, resolvedCond{index: idx, want: toText(conditions[h])})
	}
	if len(resolved) == 0 {
		return nil, nil
	}

	values, err := c.sheet.Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet: %w", ErrTransport, err)
	}

	var rows []int
	for i := c.headerRow; i < len(values); i++ {
		row := values[i]
		matched := true
		for _, cond := range resolved {
			var got any
			if cond.index < len(row) {
				got = row[cond.index]
			}
			if toText(got) != cond.want {
				matched = false
				break
			}
		}
		if matched {
			rows = append(rows, i+1)
			if mode == matchFirst {
				break
			}
		}
	}

	return rows, nil
}
