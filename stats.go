package sheetorm

import "sync/atomic"

// ClientStats is a snapshot of operation counters. All counters are
// cumulative since the client was created.
//
// For Prometheus integration expose Finds, Queries, Creates, Updates,
// Deletes and Errors as counters and derive the hit rate as FindHits/Finds.
type ClientStats struct {
	Finds         uint64 // single-record lookups (FindByID, Find)
	FindHits      uint64 // lookups that returned a record
	Queries       uint64 // multi-record reads (FindMany, GetAll, Query)
	Creates       uint64 // rows appended
	Updates       uint64 // rows updated
	Deletes       uint64 // rows deleted
	SchemaFetches uint64 // metadata snapshot fetches
	LockTimeouts  uint64 // write lock acquisitions that timed out
	Errors        uint64 // failed operations across the surface
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - the client updates its own stats.
type clientStatsCollector struct {
	finds         atomic.Uint64
	findHits      atomic.Uint64
	queries       atomic.Uint64
	creates       atomic.Uint64
	updates       atomic.Uint64
	deletes       atomic.Uint64
	schemaFetches atomic.Uint64
	lockTimeouts  atomic.Uint64
	errors        atomic.Uint64
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{}
}

func (c *clientStatsCollector) recordFind(found bool) {
	c.finds.Add(1)
	if found {
		c.findHits.Add(1)
	}
}

func (c *clientStatsCollector) recordQuery() {
	c.queries.Add(1)
}

func (c *clientStatsCollector) recordCreates(n int) {
	c.creates.Add(uint64(n))
}

func (c *clientStatsCollector) recordUpdates(n int) {
	c.updates.Add(uint64(n))
}

func (c *clientStatsCollector) recordDeletes(n int) {
	c.deletes.Add(uint64(n))
}

func (c *clientStatsCollector) recordSchemaFetch() {
	c.schemaFetches.Add(1)
}

func (c *clientStatsCollector) recordLockTimeout() {
	c.lockTimeouts.Add(1)
}

func (c *clientStatsCollector) recordError() {
	c.errors.Add(1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Finds:         c.finds.Load(),
		FindHits:      c.findHits.Load(),
		Queries:       c.queries.Load(),
		Creates:       c.creates.Load(),
		Updates:       c.updates.Load(),
		Deletes:       c.deletes.Load(),
		SchemaFetches: c.schemaFetches.Load(),
		LockTimeouts:  c.lockTimeouts.Load(),
		Errors:        c.errors.Load(),
	}
}
