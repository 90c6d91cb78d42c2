package sheetorm

import (
	"context"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/Veetinho/sheetorm/gviz"
)

// Schema is an immutable snapshot of the sheet's column metadata: header
// names in column order, the header↔positional-code mapping, header
// positions and declared column types. It is built atomically from one
// read-path fetch and replaced wholesale on refresh, never patched.
type Schema struct {
	headers       []string
	codeByHeader  map[string]string
	headerByCode  map[string]string
	indexByHeader map[string]int
	typeByKey     map[string]gviz.TypeTag
	idCode        string
}

// newSchema builds a snapshot from envelope column descriptors. A column
// with an empty label gets its positional code as header so every column
// stays addressable. Types are recorded under both keys: header and code.
func newSchema(cols []gviz.Col, idField string) *Schema {
	s := &Schema{
		codeByHeader:  make(map[string]string, len(cols)),
		headerByCode:  make(map[string]string, len(cols)),
		indexByHeader: make(map[string]int, len(cols)),
		typeByKey:     make(map[string]gviz.TypeTag, len(cols)*2),
	}

	for i, col := range cols {
		header := col.Label
		if header == "" {
			header = col.ID
		}

		s.headers = append(s.headers, header)
		s.codeByHeader[header] = col.ID
		s.headerByCode[col.ID] = header
		s.indexByHeader[header] = i
		s.typeByKey[header] = col.Type
		s.typeByKey[col.ID] = col.Type

		if header == idField {
			s.idCode = col.ID
		}
	}

	return s
}

// Headers returns the header names in column order.
func (s *Schema) Headers() []string {
	out := make([]string, len(s.headers))
	copy(out, s.headers)
	return out
}

// Code resolves a header name to its positional code.
func (s *Schema) Code(header string) (string, bool) {
	code, ok := s.codeByHeader[header]
	return code, ok
}

// Header resolves a positional code back to its header name.
func (s *Schema) Header(code string) (string, bool) {
	h, ok := s.headerByCode[code]
	return h, ok
}

// Index resolves a header name to its 0-based column index.
func (s *Schema) Index(header string) (int, bool) {
	i, ok := s.indexByHeader[header]
	return i, ok
}

// Type returns the declared type for a header name or positional code,
// TypeUnknown when the key is not present.
func (s *Schema) Type(key string) gviz.TypeTag {
	return s.typeByKey[key]
}

// IDCode is the positional code of the identifier column, empty when the
// configured identifier header is not present. Identifier-dependent
// operations are unusable then, but the schema itself is valid.
func (s *Schema) IDCode() string {
	return s.idCode
}

// Empty reports whether the snapshot has no columns. An empty snapshot is a
// valid state for a genuinely empty sheet.
func (s *Schema) Empty() bool {
	return len(s.headers) == 0
}

// Fingerprint is a stable hash of the snapshot's structure (headers, codes
// and types). Refreshes compare fingerprints to log structural drift.
func (s *Schema) Fingerprint() uint64 {
	var b strings.Builder
	for _, h := range s.headers {
		b.WriteString(h)
		b.WriteByte(0)
		b.WriteString(s.codeByHeader[h])
		b.WriteByte(0)
		b.WriteString(string(s.typeByKey[h]))
		b.WriteByte(0)
	}
	return xxh3.HashString(b.String())
}

// fetchSchema builds a fresh snapshot by issuing a minimal structural query
// (no data rows) against the read path.
func (c *Client) fetchSchema(ctx context.Context) (*Schema, error) {
	resp, err := c.fetchQuery(ctx, "limit 0")
	if err != nil {
		return nil, err
	}

	var cols []gviz.Col
	if resp.Table != nil {
		cols = resp.Table.Cols
	}

	c.stats.recordSchemaFetch()
	return newSchema(cols, c.idField), nil
}

// getOrFetchSchema returns the cached snapshot when it is populated and
// non-empty, fetching otherwise. The mutex serializes concurrent fetches so
// the cache is never observed half-built.
func (c *Client) getOrFetchSchema(ctx context.Context) (*Schema, error) {
	c.schemaMu.Lock()
	defer c.schemaMu.Unlock()

	if c.schema != nil && !c.schema.Empty() {
		return c.schema, nil
	}

	s, err := c.fetchSchema(ctx)
	if err != nil {
		return nil, err
	}

	c.schema = s
	return s, nil
}

// Refresh discards the cached column metadata and fetches a new snapshot.
// There is no automatic invalidation on write; callers that change the
// sheet's structure re-resolve explicitly through this.
func (c *Client) Refresh(ctx context.Context) error {
	s, err := c.fetchSchema(ctx)
	if err != nil {
		return err
	}

	c.schemaMu.Lock()
	old := c.schema
	c.schema = s
	c.schemaMu.Unlock()

	if old != nil && old.Fingerprint() != s.Fingerprint() {
		c.log.Info("sheetorm: schema changed across refresh",
			"old_fingerprint", old.Fingerprint(),
			"new_fingerprint", s.Fingerprint(),
			"columns", len(s.headers))
	}
	return nil
}

// Invalidate drops the cached column metadata; the next operation that
// needs it fetches a fresh snapshot.
func (c *Client) Invalidate() {
	c.schemaMu.Lock()
	c.schema = nil
	c.schemaMu.Unlock()
}

// SchemaSnapshot returns the current cached snapshot, fetching it when
// absent.
func (c *Client) SchemaSnapshot(ctx context.Context) (*Schema, error) {
	return c.getOrFetchSchema(ctx)
}
