package sheetorm

import (
	"errors"

	"github.com/Veetinho/sheetorm/gviz"
)

// The public CRUD surface never raises: every operation collapses to a
// boolean, count or nil return. These sentinels classify failures between
// components and in logs.
var (
	// Configuration errors abort construction; NewClient returns them.
	ErrNoStore              = errors.New("sheetorm: no store configured")
	ErrNoSheetName          = errors.New("sheetorm: no sheet name configured")
	ErrHeaderRowUnsupported = errors.New("sheetorm: read path supports a single header row at row 1")

	// Validation errors abort the operation before any mutation.
	ErrMissingID       = errors.New("sheetorm: identifier value is empty")
	ErrImmutableID     = errors.New("sheetorm: identifier field cannot be updated")
	ErrEmptyRecord     = errors.New("sheetorm: empty record or update payload")
	ErrEmptyConditions = errors.New("sheetorm: empty conditions")
	ErrNoIDColumn      = errors.New("sheetorm: configured identifier column not present")

	// ErrNotFound is an expected outcome, not an anomaly; it is logged at
	// debug level only.
	ErrNotFound = errors.New("sheetorm: no matching row")

	// ErrNoSchema means column metadata could not be resolved, so headers
	// cannot be mapped to positions or codes.
	ErrNoSchema = errors.New("sheetorm: column metadata unavailable")

	// ErrUnknownHeader is raised by the bracket translator for a [Header]
	// reference with no matching column.
	ErrUnknownHeader = errors.New("sheetorm: unknown header")

	// ErrTransport covers read-path HTTP failures and grid access failures.
	ErrTransport = errors.New("sheetorm: request failed")

	// ErrLockTimeout means the write lock was not acquired within the bound;
	// the action never ran.
	ErrLockTimeout = errors.New("sheetorm: write lock not acquired within bound")
)

// errKind classifies an error for structured logging. The taxonomy survives
// even though the public surface only returns booleans and counts.
func errKind(err error) string {
	switch {
	case errors.Is(err, ErrMissingID),
		errors.Is(err, ErrImmutableID),
		errors.Is(err, ErrEmptyRecord),
		errors.Is(err, ErrEmptyConditions),
		errors.Is(err, ErrNoIDColumn),
		errors.Is(err, ErrNoSchema),
		errors.Is(err, ErrUnknownHeader):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, gviz.ErrFraming), errors.Is(err, gviz.ErrMalformed):
		return "parse"
	case errors.Is(err, ErrTransport):
		return "transport"
	}

	var qerr *gviz.QueryError
	if errors.As(err, &qerr) {
		return "query"
	}
	return "internal"
}
