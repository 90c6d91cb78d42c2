package sheetorm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/sony/gobreaker/v2"
)

// Defaults for Config fields left unset.
const (
	DefaultIDField     = "id"
	DefaultHeaderRow   = 1
	DefaultLockWait    = 30 * time.Second
	DefaultMaxSessions = 4
)

// Config holds the construction options for a Client.
type Config struct {
	// Store is the backing spreadsheet. Required.
	Store Store

	// Sheet is the name of the sheet to operate on. Required.
	Sheet string

	// IDField is the header treated as the unique key for the *ByID
	// operations. Default "id".
	IDField string

	// HeaderRow is the 1-based row holding the headers. Only row 1 is
	// supported: the read path's fetch parameters assume headers in row 1,
	// so any other value is a configuration error rather than a guess.
	HeaderRow int

	// LockWait bounds write-lock acquisition. Default 30s.
	LockWait time.Duration

	// Locker serializes writers against the backing grid.
	// Default is an in-process lock; see NewProcessLocker.
	Locker Locker

	// Tokens supplies bearer tokens for read-path requests.
	// When nil, requests carry no Authorization header.
	Tokens TokenSource

	// HTTPClient overrides the HTTP client used by the read path.
	HTTPClient Doer

	// MaxSessions bounds concurrent read-path requests. Default 4.
	MaxSessions int32

	// NewCircuitBreaker creates a circuit breaker for the query endpoint.
	// Called once at construction. If nil, no circuit breaker is used.
	// See NewCircuitBreakerConfig for a ready-made factory.
	NewCircuitBreaker func(endpoint string) *gobreaker.CircuitBreaker[[]byte]

	// Logger receives diagnostics. Default slog.Default().
	Logger *slog.Logger
}

// Client maps one sheet of a labeled grid onto a record-oriented CRUD and
// query surface. Reads go through the tabular query service; writes go
// through direct cell mutation under an exclusive lock.
//
// Every public operation is synchronous and reports failure through its
// return value (false, nil or 0) while logging a classified diagnostic;
// no operation raises across the public boundary.
type Client struct {
	store     Store
	sheet     Sheet
	queryURL  string
	idField   string
	headerRow int
	lockWait  time.Duration
	locker    Locker
	tokens    TokenSource
	sessions  *puddle.Pool[*querySession]
	breaker   *gobreaker.CircuitBreaker[[]byte]
	log       *slog.Logger
	stats     *clientStatsCollector

	schemaMu sync.Mutex
	schema   *Schema
}

// NewClient opens the configured sheet and returns a ready client.
// Configuration failures (missing store, unknown sheet, unsupported header
// row) yield no usable instance.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Store == nil {
		return nil, ErrNoStore
	}
	if cfg.Sheet == "" {
		return nil, ErrNoSheetName
	}

	headerRow := cfg.HeaderRow
	if headerRow == 0 {
		headerRow = DefaultHeaderRow
	}
	if headerRow != 1 {
		return nil, fmt.Errorf("%w: got row %d", ErrHeaderRowUnsupported, headerRow)
	}

	sheet, err := cfg.Store.Sheet(cfg.Sheet)
	if err != nil {
		return nil, fmt.Errorf("sheetorm: opening sheet %q: %w", cfg.Sheet, err)
	}

	idField := cfg.IDField
	if idField == "" {
		idField = DefaultIDField
	}

	lockWait := cfg.LockWait
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}

	locker := cfg.Locker
	if locker == nil {
		locker = NewProcessLocker()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}

	sessions, err := newSessionPool(cfg.HTTPClient, maxSessions)
	if err != nil {
		return nil, fmt.Errorf("sheetorm: creating session pool: %w", err)
	}

	var breaker *gobreaker.CircuitBreaker[[]byte]
	if cfg.NewCircuitBreaker != nil {
		breaker = cfg.NewCircuitBreaker(cfg.Store.QueryURL())
	}

	return &Client{
		store:     cfg.Store,
		sheet:     sheet,
		queryURL:  cfg.Store.QueryURL(),
		idField:   idField,
		headerRow: headerRow,
		lockWait:  lockWait,
		locker:    locker,
		tokens:    cfg.Tokens,
		sessions:  sessions,
		breaker:   breaker,
		log:       logger,
		stats:     newClientStatsCollector(),
	}, nil
}

// Close releases the read-path session pool.
func (c *Client) Close() {
	c.sessions.Close()
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// fail logs a classified failure and counts it. Not-found is an expected
// outcome: logged at debug level and not counted as an error.
func (c *Client) fail(op string, err error) {
	if errors.Is(err, ErrNotFound) {
		c.log.Debug("sheetorm: "+op, "error", err)
		return
	}
	c.stats.recordError()
	c.log.Error("sheetorm: "+op+" failed", "kind", errKind(err), "error", err)
}

// FindByID returns the record whose identifier column equals id, or nil
// when there is no match or the lookup fails.
func (c *Client) FindByID(ctx context.Context, id any) Record {
	if toText(id) == "" {
		c.fail("findById", ErrMissingID)
		return nil
	}

	s, err := c.getOrFetchSchema(ctx)
	if err != nil {
		c.fail("findById", err)
		return nil
	}
	if s.IDCode() == "" {
		c.fail("findById", ErrNoIDColumn)
		return nil
	}

	tq := fmt.Sprintf("where %s = %s limit 1", s.IDCode(), literal(s.Type(s.IDCode()), id))
	resp, err := c.fetchQuery(ctx, tq)
	if err != nil {
		c.fail("findById", err)
		return nil
	}

	records := decodeRecords(s, resp)
	if len(records) == 0 {
		c.stats.recordFind(false)
		return nil
	}
	c.stats.recordFind(true)
	return records[0]
}

// Find returns the first record matching all equality conditions, or nil.
func (c *Client) Find(ctx context.Context, conditions map[string]any) Record {
	records, err := c.findMany(ctx, Query{Where: conditions, Limit: 1})
	if err != nil {
		c.fail("find", err)
		return nil
	}
	if len(records) == 0 {
		c.stats.recordFind(false)
		return nil
	}
	c.stats.recordFind(true)
	return records[0]
}

// FindMany runs a structured query and returns the matching records in
// result order, nil on failure. An empty result is a valid empty slice.
func (c *Client) FindMany(ctx context.Context, q Query) []Record {
	records, err := c.findMany(ctx, q)
	if err != nil {
		c.fail("findMany", err)
		return nil
	}
	c.stats.recordQuery()
	return records
}

// GetAll returns every record of the sheet, empty on failure.
func (c *Client) GetAll(ctx context.Context) []Record {
	records := c.FindMany(ctx, Query{})
	if records == nil {
		return []Record{}
	}
	return records
}

// Count returns the number of records matching the descriptor, 0 on
// failure.
func (c *Client) Count(ctx context.Context, q Query) int {
	return len(c.FindMany(ctx, q))
}

// Query runs a free-form query in the external dialect with [Header]
// column references, returning nil on any translation or fetch failure.
// Unknown bracketed headers fail the whole query; nothing is fetched then.
func (c *Client) Query(ctx context.Context, query string) []Record {
	s, err := c.getOrFetchSchema(ctx)
	if err != nil {
		c.fail("query", err)
		return nil
	}

	tq, err := translateBrackets(s, query)
	if err != nil {
		c.fail("query", err)
		return nil
	}

	resp, err := c.fetchQuery(ctx, tq)
	if err != nil {
		c.fail("query", err)
		return nil
	}

	c.stats.recordQuery()
	return decodeRecords(s, resp)
}

func (c *Client) findMany(ctx context.Context, q Query) ([]Record, error) {
	s, err := c.getOrFetchSchema(ctx)
	if err != nil {
		// Degrade to "select everything"; callers that rely on filtering
		// must check schema availability themselves.
		c.log.Warn("sheetorm: metadata unavailable, querying without clauses", "error", err)
		s = nil
	}

	resp, err := c.fetchQuery(ctx, buildQuery(s, q, c.log))
	if err != nil {
		return nil, err
	}
	return decodeRecords(s, resp), nil
}

// Create appends one record as a new row.
func (c *Client) Create(ctx context.Context, record Record) bool {
	_, rows, err := c.prepareRows(ctx, []Record{record})
	if err != nil {
		c.fail("create", err)
		return false
	}

	err = c.withWriteLock(ctx, func(ctx context.Context) error {
		return c.sheet.AppendRows(ctx, rows)
	})
	if err != nil {
		c.fail("create", err)
		return false
	}

	c.stats.recordCreates(1)
	return true
}

// CreateMany appends records as new rows in one batch and returns how many
// were written. Validation is all-or-nothing: a single invalid record
// aborts the whole batch before any mutation.
func (c *Client) CreateMany(ctx context.Context, records []Record) int {
	if len(records) == 0 {
		c.fail("createMany", ErrEmptyRecord)
		return 0
	}

	_, rows, err := c.prepareRows(ctx, records)
	if err != nil {
		c.fail("createMany", err)
		return 0
	}

	err = c.withWriteLock(ctx, func(ctx context.Context) error {
		return c.sheet.AppendRows(ctx, rows)
	})
	if err != nil {
		c.fail("createMany", err)
		return 0
	}

	c.stats.recordCreates(len(rows))
	return len(rows)
}

// UpdateByID applies fields to the row whose identifier equals id. The
// identifier is immutable: a field set containing it fails validation and
// nothing is written.
func (c *Client) UpdateByID(ctx context.Context, id any, fields Record) bool {
	if toText(id) == "" {
		c.fail("updateById", ErrMissingID)
		return false
	}
	if _, ok := fields[c.idField]; ok {
		c.fail("updateById", ErrImmutableID)
		return false
	}

	s, err := c.getOrFetchSchema(ctx)
	if err != nil {
		c.fail("updateById", err)
		return false
	}
	if s.IDCode() == "" {
		c.fail("updateById", ErrNoIDColumn)
		return false
	}

	rows, err := c.matchRows(ctx, s, map[string]any{c.idField: id}, matchFirst)
	if err != nil {
		c.fail("updateById", err)
		return false
	}
	if len(rows) == 0 {
		c.fail("updateById", ErrNotFound)
		return false
	}

	n, err := c.updateRows(ctx, s, rows, fields)
	if err != nil {
		c.fail("updateById", err)
		return false
	}
	return n > 0
}

// Update applies fields to the first row matching the conditions.
func (c *Client) Update(ctx context.Context, conditions map[string]any, fields Record) bool {
	if len(conditions) == 0 {
		c.fail("update", ErrEmptyConditions)
		return false
	}

	s, err := c.getOrFetchSchema(ctx)
	if err != nil {
		c.fail("update", err)
		return false
	}

	rows, err := c.matchRows(ctx, s, conditions, matchFirst)
	if err != nil {
		c.fail("update", err)
		return false
	}
	if len(rows) == 0 {
		c.fail("update", ErrNotFound)
		return false
	}

	n, err := c.updateRows(ctx, s, rows, fields)
	if err != nil {
		c.fail("update", err)
		return false
	}
	return n > 0
}

// UpdateMany applies fields to every row matching the conditions and
// returns how many rows were updated. All rows mutate inside one lock
// scope.
func (c *Client) UpdateMany(ctx context.Context, conditions map[string]any, fields Record) int {
	if len(conditions) == 0 {
		c.fail("updateMany", ErrEmptyConditions)
		return 0
	}

	s, err := c.getOrFetchSchema(ctx)
	if err != nil {
		c.fail("updateMany", err)
		return 0
	}

	rows, err := c.matchRows(ctx, s, conditions, matchAll)
	if err != nil {
		c.fail("updateMany", err)
		return 0
	}
	if len(rows) == 0 {
		c.fail("updateMany", ErrNotFound)
		return 0
	}

	n, err := c.updateRows(ctx, s, rows, fields)
	if err != nil {
		c.fail("updateMany", err)
		return 0
	}
	return n
}

// DeleteByID removes the row whose identifier equals id.
func (c *Client) DeleteByID(ctx context.Context, id any) bool {
	if toText(id) == "" {
		c.fail("deleteById", ErrMissingID)
		return false
	}

	s, err := c.getOrFetchSchema(ctx)
	if err != nil {
		c.fail("deleteById", err)
		return false
	}
	if s.IDCode() == "" {
		c.fail("deleteById", ErrNoIDColumn)
		return false
	}

	rows, err := c.matchRows(ctx, s, map[string]any{c.idField: id}, matchFirst)
	if err != nil {
		c.fail("deleteById", err)
		return false
	}
	if len(rows) == 0 {
		c.fail("deleteById", ErrNotFound)
		return false
	}

	if _, err := c.deleteRows(ctx, rows); err != nil {
		c.fail("deleteById", err)
		return false
	}
	return true
}

// Delete removes the first row matching the conditions.
func (c *Client) Delete(ctx context.Context, conditions map[string]any) bool {
	if len(conditions) == 0 {
		c.fail("delete", ErrEmptyConditions)
		return false
	}

	s, err := c.getOrFetchSchema(ctx)
	if err != nil {
		c.fail("delete", err)
		return false
	}

	rows, err := c.matchRows(ctx, s, conditions, matchFirst)
	if err != nil {
		c.fail("delete", err)
		return false
	}
	if len(rows) == 0 {
		c.fail("delete", ErrNotFound)
		return false
	}

	if _, err := c.deleteRows(ctx, rows); err != nil {
		c.fail("delete", err)
		return false
	}
	return true
}

// DeleteMany removes every row matching the conditions and returns how
// many were deleted. Empty conditions are rejected: deleting everything
// must be an explicit ClearData call, never an accident.
func (c *Client) DeleteMany(ctx context.Context, conditions map[string]any) int {
	if len(conditions) == 0 {
		c.fail("deleteMany", ErrEmptyConditions)
		return 0
	}

	s, err := c.getOrFetchSchema(ctx)
	if err != nil {
		c.fail("deleteMany", err)
		return 0
	}

	rows, err := c.matchRows(ctx, s, conditions, matchAll)
	if err != nil {
		c.fail("deleteMany", err)
		return 0
	}
	if len(rows) == 0 {
		c.fail("deleteMany", ErrNotFound)
		return 0
	}

	n, err := c.deleteRows(ctx, rows)
	if err != nil {
		c.fail("deleteMany", err)
		return 0
	}
	return n
}

// ClearData removes every data row below the header row.
func (c *Client) ClearData(ctx context.Context) bool {
	values, err := c.sheet.Values(ctx)
	if err != nil {
		c.fail("clearData", fmt.Errorf("%w: reading sheet: %w", ErrTransport, err))
		return false
	}

	n := len(values) - c.headerRow
	if n <= 0 {
		return true
	}

	err = c.withWriteLock(ctx, func(ctx context.Context) error {
		return c.sheet.DeleteRows(ctx, c.headerRow+1, n)
	})
	if err != nil {
		c.fail("clearData", err)
		return false
	}

	c.stats.recordDeletes(n)
	return true
}

// prepareRows validates records and aligns them to the sheet's column
// order. Any invalid record aborts the whole batch before any mutation.
// Missing fields become empty cells; keys without a matching header are
// dropped with a diagnostic.
func (c *Client) prepareRows(ctx context.Context, records []Record) (*Schema, [][]any, error) {
	s, err := c.getOrFetchSchema(ctx)
	if err != nil {
		return nil, nil, err
	}
	if s.Empty() {
		return nil, nil, ErrNoSchema
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		if len(rec) == 0 {
			return nil, nil, ErrEmptyRecord
		}
		if s.IDCode() != "" && toText(rec[c.idField]) == "" {
			return nil, nil, ErrMissingID
		}

		for key := range rec {
			if _, ok := s.Index(key); !ok {
				c.log.Warn("sheetorm: dropping unknown header from record", "header", key)
			}
		}

		row := make([]any, len(s.headers))
		for i, h := range s.headers {
			if v, ok := rec[h]; ok {
				row[i] = v
			} else {
				row[i] = ""
			}
		}
		rows = append(rows, row)
	}

	return s, rows, nil
}

// updateRows applies the field set to each physical row inside one lock
// scope and returns how many rows were touched.
func (c *Client) updateRows(ctx context.Context, s *Schema, rows []int, fields Record) (int, error) {
	if len(fields) == 0 {
		return 0, ErrEmptyRecord
	}

	type fieldUpdate struct {
		col   int
		value any
	}

	updates := make([]fieldUpdate, 0, len(fields))
	for _, h := range sortedKeys(fields) {
		idx, ok := s.Index(h)
		if !ok {
			c.log.Warn("sheetorm: dropping unknown header from update", "header", h)
			continue
		}
		updates = append(updates, fieldUpdate{col: idx + 1, value: fields[h]})
	}
	if len(updates) == 0 {
		return 0, ErrEmptyRecord
	}

	err := c.withWriteLock(ctx, func(ctx context.Context) error {
		for _, row := range rows {
			for _, u := range updates {
				if err := c.sheet.SetValues(ctx, row, u.col, [][]any{{u.value}}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.stats.recordUpdates(len(rows))
	return len(rows), nil
}

// deleteRows removes the given physical rows inside one lock scope,
// highest row first so earlier deletions never shift a later target.
func (c *Client) deleteRows(ctx context.Context, rows []int) (int, error) {
	ordered := make([]int, len(rows))
	copy(ordered, rows)
	sort.Sort(sort.Reverse(sort.IntSlice(ordered)))

	err := c.withWriteLock(ctx, func(ctx context.Context) error {
		for _, row := range ordered {
			if err := c.sheet.DeleteRows(ctx, row, 1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.stats.recordDeletes(len(ordered))
	return len(ordered), nil
}
