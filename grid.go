package sheetorm

import (
	"context"
	"net/http"
	"time"
)

// The client consumes the hosting environment through four narrow
// capabilities: the spreadsheet object model (Store/Sheet), the auth token
// provider (TokenSource), the HTTP fetch primitive (Doer) and the
// process-wide mutual exclusion primitive (Locker). Tests substitute fakes
// for any of them.

// Store opens sheets of one backing spreadsheet and knows the tabular query
// endpoint serving it.
type Store interface {
	// Sheet opens the named sheet. An unknown name is a configuration
	// error; NewClient fails on it.
	Sheet(name string) (Sheet, error)

	// QueryURL is the read-path endpoint for this spreadsheet.
	QueryURL() string
}

// Sheet is the host's cell-level access to one grid. Rows and columns are
// 1-based. Row numbers are physical positions: they shift on insert and
// delete and must never be cached across write operations.
type Sheet interface {
	Name() string

	// Values returns the full used range including header rows, row-major.
	Values(ctx context.Context) ([][]any, error)

	// SetValues writes a rectangular block with its top-left cell at
	// (row, col).
	SetValues(ctx context.Context, row, col int, values [][]any) error

	// AppendRows adds rows after the last used row.
	AppendRows(ctx context.Context, rows [][]any) error

	// DeleteRows removes count physical rows starting at start. Rows below
	// shift up.
	DeleteRows(ctx context.Context, start, count int) error

	// Flush forces pending mutations to become durable and visible.
	Flush(ctx context.Context) error
}

// TokenSource supplies the bearer token for read-path requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Doer abstracts the HTTP client so the read path can be faked in tests.
// *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Locker is the exclusive lock serializing writers against the same backing
// grid. Acquire blocks up to timeout and returns ErrLockTimeout (or the
// context error) without the lock being held; Release must be safe to call
// exactly once per successful Acquire.
type Locker interface {
	Acquire(ctx context.Context, timeout time.Duration) error
	Release()
}
