// Package gviz parses the wire format of the tabular query service: a
// JSONP-style callback wrapper framing a JSON document that carries the
// query status, column descriptors and row data.
//
// The package is a low-level codec. It resolves framing, document structure
// and per-cell type encodings, but it knows nothing about schemas or
// records; that mapping belongs to the caller.
package gviz

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Response is the parsed query envelope.
type Response struct {
	Version  string    `json:"version"`
	ReqID    string    `json:"reqId"`
	Status   Status    `json:"status"`
	Errors   []Message `json:"errors,omitempty"`
	Warnings []Message `json:"warnings,omitempty"`
	Table    *Table    `json:"table,omitempty"`
}

// Table holds the column descriptors and row data of a successful query.
type Table struct {
	Cols []Col `json:"cols"`
	Rows []Row `json:"rows"`
}

// Col describes one column of the result table.
type Col struct {
	// ID is the positional code used by the query dialect ("A", "B", ...).
	ID string `json:"id"`

	// Label is the human-readable header. May be empty for unlabeled
	// columns; callers fall back to their own header mapping keyed by ID.
	Label string `json:"label"`

	// Type is the declared value type for every cell in this column.
	Type TypeTag `json:"type"`
}

// Row is one result row. Cells align positionally with Table.Cols.
// A nil cell means the value is absent.
type Row struct {
	Cells []*Cell `json:"c"`
}

// Cell is a single value with its optional formatted rendering.
type Cell struct {
	Value     any    `json:"v"`
	Formatted string `json:"f,omitempty"`
}

// ParseResponse strips the callback wrapper from raw envelope text and
// decodes the inner JSON document.
//
// It returns ErrFraming when the wrapper markers are absent or out of
// order, ErrMalformed when the inner document does not decode, and a
// *QueryError when the envelope itself reports status "error". A response
// with status "warning" is returned as-is with Warnings populated; an
// envelope without a table is valid and simply has Table == nil.
func ParseResponse(raw string) (*Response, error) {
	start := strings.Index(raw, "(")
	end := strings.LastIndex(raw, ")")
	if start < 0 || end < 0 || end < start {
		return nil, ErrFraming
	}

	payload := raw[start+1 : end]

	resp := &Response{}
	if err := json.Unmarshal([]byte(payload), resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	switch resp.Status {
	case StatusOK:
	case StatusWarning:
		slog.Debug("gviz: response carries warnings", "count", len(resp.Warnings))
	case StatusError:
		return nil, &QueryError{Messages: resp.Errors}
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrMalformed, resp.Status)
	}

	return resp, nil
}

// DecodeValue normalizes a cell value according to the column's declared
// type.
//
// Nil or absent cells decode to nil. Date and datetime sentinels become
// time.Time values; timeofday component arrays become "HH:MM:SS" strings.
// When a typed encoding does not parse, the formatted display string (or
// failing that, the raw value) is returned instead; a single bad cell never
// aborts a parse. All other types pass through unmodified.
func DecodeValue(t TypeTag, cell *Cell) any {
	if cell == nil || cell.Value == nil {
		return nil
	}

	switch t {
	case TypeDate, TypeDateTime:
		s, ok := cell.Value.(string)
		if !ok {
			return fallbackValue(cell)
		}
		ts, err := ParseDateSentinel(s)
		if err != nil {
			slog.Debug("gviz: unrecognized date encoding", "value", s, "error", err)
			return fallbackValue(cell)
		}
		return ts

	case TypeTimeOfDay:
		components, ok := cell.Value.([]any)
		if !ok {
			return fallbackValue(cell)
		}
		s, ok := FormatTimeOfDay(components)
		if !ok {
			slog.Debug("gviz: unrecognized timeofday encoding", "value", cell.Value)
			return fallbackValue(cell)
		}
		return s

	default:
		return cell.Value
	}
}

// fallbackValue is the best-effort value for a cell whose typed encoding
// did not parse: the formatted string when present, the raw value otherwise.
func fallbackValue(cell *Cell) any {
	if cell.Formatted != "" {
		return cell.Formatted
	}
	return cell.Value
}
