package sheetorm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Veetinho/sheetorm/gviz"
)

// memSheet is an in-memory Sheet. Row 1 holds headers. It records flushes
// and row deletions so tests can assert on write ordering.
type memSheet struct {
	mu        sync.Mutex
	name      string
	cells     [][]any
	flushes   int
	deletions []int // start row of each DeleteRows call, in call order
}

func newMemSheet(name string, rows [][]any) *memSheet {
	cells := make([][]any, len(rows))
	for i, r := range rows {
		cells[i] = append([]any(nil), r...)
	}
	return &memSheet{name: name, cells: cells}
}

func (s *memSheet) Name() string { return s.name }

func (s *memSheet) Values(context.Context) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([][]any, len(s.cells))
	for i, r := range s.cells {
		out[i] = append([]any(nil), r...)
	}
	return out, nil
}

func (s *memSheet) SetValues(_ context.Context, row, col int, values [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range values {
		for j, v := range r {
			ri, ci := row-1+i, col-1+j
			if ri < 0 || ri >= len(s.cells) || ci < 0 || ci >= len(s.cells[ri]) {
				return fmt.Errorf("memsheet: cell (%d,%d) out of range", ri+1, ci+1)
			}
			s.cells[ri][ci] = v
		}
	}
	return nil
}

func (s *memSheet) AppendRows(_ context.Context, rows [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		s.cells = append(s.cells, append([]any(nil), r...))
	}
	return nil
}

func (s *memSheet) DeleteRows(_ context.Context, start, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if start < 1 || count < 1 || start+count-1 > len(s.cells) {
		return fmt.Errorf("memsheet: rows [%d,%d) out of range", start, start+count)
	}
	s.deletions = append(s.deletions, start)
	s.cells = append(s.cells[:start-1], s.cells[start-1+count:]...)
	return nil
}

func (s *memSheet) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *memSheet) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cells)
}

// memStore opens memSheets by name.
type memStore struct {
	sheets map[string]*memSheet
	url    string
}

func (st *memStore) Sheet(name string) (Sheet, error) {
	s, ok := st.sheets[name]
	if !ok {
		return nil, fmt.Errorf("memstore: no sheet %q", name)
	}
	return s, nil
}

func (st *memStore) QueryURL() string { return st.url }

// queryService fakes the tabular query service as a Doer. It serves
// envelopes computed from the backing memSheet, honoring a single
// "where <code> = <literal>" condition and a "limit N" clause, which is
// all the client's generated queries need.
type queryService struct {
	mu       sync.Mutex
	sheet    *memSheet
	types    map[string]gviz.TypeTag // declared type by header, default string
	requests []string                // tq of every request, in order
	status   int                     // HTTP status override, 0 means 200
	body     string                  // raw body override
}

var (
	whereRe = regexp.MustCompile(`where ([A-Z]+) = ('(?:\\'|[^'])*'|\S+)`)
	limitRe = regexp.MustCompile(`limit (\d+)`)
)

func (qs *queryService) Do(req *http.Request) (*http.Response, error) {
	tq := req.URL.Query().Get("tq")

	qs.mu.Lock()
	qs.requests = append(qs.requests, tq)
	status, body := qs.status, qs.body
	qs.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	if body == "" {
		body = qs.envelope(tq)
	}

	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

func (qs *queryService) seenRequests() []string {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	return append([]string(nil), qs.requests...)
}

func (qs *queryService) envelope(tq string) string {
	grid, _ := qs.sheet.Values(context.Background())

	var headers []any
	var data [][]any
	if len(grid) > 0 {
		headers = grid[0]
		data = grid[1:]
	}

	if m := whereRe.FindStringSubmatch(tq); m != nil {
		idx := int(m[1][0] - 'A')
		want := unquoteLiteral(m[2])
		var filtered [][]any
		for _, r := range data {
			var got any
			if idx < len(r) {
				got = r[idx]
			}
			if toText(got) == want {
				filtered = append(filtered, r)
			}
		}
		data = filtered
	}

	if m := limitRe.FindStringSubmatch(tq); m != nil {
		n, _ := strconv.Atoi(m[1])
		if len(data) > n {
			data = data[:n]
		}
	}

	cols := make([]map[string]any, 0, len(headers))
	colTypes := make([]gviz.TypeTag, 0, len(headers))
	for i, h := range headers {
		label := toText(h)
		typ := gviz.TypeString
		if t, ok := qs.types[label]; ok {
			typ = t
		}
		colTypes = append(colTypes, typ)
		cols = append(cols, map[string]any{"id": colCode(i), "label": label, "type": string(typ)})
	}

	rows := make([]map[string]any, 0, len(data))
	for _, r := range data {
		cells := make([]any, 0, len(headers))
		for i := range headers {
			var v any
			if i < len(r) {
				v = r[i]
			}
			if v == nil || v == "" {
				cells = append(cells, nil)
				continue
			}
			cells = append(cells, map[string]any{"v": encodeCell(colTypes[i], v), "f": toText(v)})
		}
		rows = append(rows, map[string]any{"c": cells})
	}

	doc := map[string]any{
		"version": "0.6",
		"reqId":   "0",
		"status":  "ok",
		"table":   map[string]any{"cols": cols, "rows": rows},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	return "/*O_o*/\ngoogle.visualization.Query.setResponse(" + string(b) + ");"
}

func colCode(i int) string { return string(rune('A' + i)) }

func unquoteLiteral(lit string) string {
	if strings.HasPrefix(lit, "'") && strings.HasSuffix(lit, "'") {
		return strings.ReplaceAll(lit[1:len(lit)-1], `\'`, "'")
	}
	return lit
}

func encodeCell(t gviz.TypeTag, v any) any {
	switch t {
	case gviz.TypeNumber:
		if f, err := strconv.ParseFloat(toText(v), 64); err == nil {
			return f
		}
		return toText(v)
	case gviz.TypeBoolean:
		if b, ok := v.(bool); ok {
			return b
		}
		return toText(v) == "true"
	case gviz.TypeDate, gviz.TypeDateTime:
		if ts, ok := v.(time.Time); ok {
			return fmt.Sprintf("Date(%d,%d,%d,%d,%d,%d)",
				ts.Year(), int(ts.Month())-1, ts.Day(), ts.Hour(), ts.Minute(), ts.Second())
		}
		return toText(v)
	default:
		return toText(v)
	}
}

// fakeLocker counts lock traffic and optionally refuses to acquire.
type fakeLocker struct {
	mu       sync.Mutex
	acquires int
	releases int
	fail     error
}

func (l *fakeLocker) Acquire(context.Context, time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return l.fail
	}
	l.acquires++
	return nil
}

func (l *fakeLocker) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releases++
}

type staticTokens string

func (t staticTokens) Token(context.Context) (string, error) { return string(t), nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient wires a client to an in-memory sheet and a fake query
// service. The returned fakes expose what the client did to them.
func newTestClient(t *testing.T, rows [][]any, types map[string]gviz.TypeTag) (*Client, *memSheet, *queryService) {
	t.Helper()

	ms := newMemSheet("people", rows)
	qs := &queryService{sheet: ms, types: types}
	store := &memStore{sheets: map[string]*memSheet{"people": ms}, url: "https://grid.example/query"}

	client, err := NewClient(Config{
		Store:      store,
		Sheet:      "people",
		HTTPClient: qs,
		Tokens:     staticTokens("test-token"),
		Logger:     discardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client, ms, qs
}
