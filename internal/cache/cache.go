// Package cache is an in-memory record cache that keeps relationships
// consistent.
//
// Callers submit batches of operations through Update or Patch. Every
// operation runs through the processor chain: ValidationProcessor rejects
// operations the schema does not allow and IntegrityProcessor emits the
// synthetic operations that mirror links on the inverse side, cascade
// dependent removals and clear links to removed records. Each applied
// operation yields an inverse so the batch can be undone.
//
// Cache is synchronous and not safe for concurrent Update and Patch calls;
// AsyncCache serializes requests from many goroutines through a single
// writer loop. Listener and live query registration is safe from any
// goroutine.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/recache/internal/ir"
	"github.com/roach88/recache/internal/query"
	"github.com/roach88/recache/internal/schema"
)

// Cache holds records of the types a schema describes.
type Cache struct {
	schema     *schema.Schema
	cfg        Config
	logger     *slog.Logger
	keyMap     KeyMap
	processors []Processor
	metrics    *metrics
	memo       *queryMemo

	store    *recordStore
	revision uint64

	patchListeners     listeners[PatchEvent]
	transformListeners listeners[Transform]
	liveQueries        liveQueryRegistry
}

// New returns an empty cache for s. It fails when the configuration is
// invalid.
func New(s *schema.Schema, opts ...Option) (*Cache, error) {
	if s == nil {
		return nil, fmt.Errorf("cache: schema is required")
	}
	c := &Cache{
		schema: s,
		cfg:    DefaultConfig(),
		store:  newRecordStore(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cache: invalid config: %w", err)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.processors == nil {
		c.processors = DefaultProcessors(s)
	}
	c.memo = newQueryMemo(c.cfg.QueryCache)
	return c, nil
}

// Schema returns the schema the cache validates against.
func (c *Cache) Schema() *schema.Schema {
	return c.schema
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.cfg
}

// Revision returns a counter that advances with every batch that applied
// at least one operation.
func (c *Cache) Revision() uint64 {
	return c.revision
}

// Len returns the number of records held.
func (c *Cache) Len() int {
	return c.store.Len()
}

// Query validates and evaluates expr against the committed state. Results
// are copies the caller may modify.
func (c *Cache) Query(ctx context.Context, expr query.Expression, opts QueryOptions) (query.Result, error) {
	if err := query.Validate(expr, c.schema); err != nil {
		return query.Undefined, err
	}
	raise := firstSet(c.cfg.RaiseNotFoundExceptions, expr.ExpressionOptions().RaiseNotFoundExceptions, opts.RaiseNotFoundExceptions)
	res, err := c.memo.getOrEvaluate(ctx, c.store.generation, expr, raise, func() (query.Result, error) {
		return query.Evaluate(c.store, expr, raise)
	})
	if err != nil {
		return query.Undefined, err
	}
	return res.Clone(), nil
}

// GetRecord returns a copy of a record, or nil when absent.
func (c *Cache) GetRecord(id ir.RecordIdentity) *ir.Record {
	r, _ := c.store.Record(id)
	return r.Clone()
}

// GetRecords returns copies of every record of a type, ordered by id.
func (c *Cache) GetRecords(typ string) []*ir.Record {
	return cloneRecords(c.store.RecordsOfType(typ))
}

// GetRecordsByIdentity returns copies of the listed records that exist, in
// list order.
func (c *Cache) GetRecordsByIdentity(ids []ir.RecordIdentity) []*ir.Record {
	out := make([]*ir.Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := c.store.Record(id); ok {
			out = append(out, r.Clone())
		}
	}
	return out
}

// GetRelatedRecord returns the identity a to-one relationship holds. ok is
// false when the record is absent; a nil identity means null.
func (c *Cache) GetRelatedRecord(id ir.RecordIdentity, relationship string) (related *ir.RecordIdentity, ok bool) {
	r, ok := c.store.Record(id)
	if !ok {
		return nil, false
	}
	rel, _ := r.Relationship(relationship)
	if rel.One == nil {
		return nil, true
	}
	one := *rel.One
	return &one, true
}

// GetRelatedRecords returns the identities a to-many relationship holds.
// ok is false when the record is absent.
func (c *Cache) GetRelatedRecords(id ir.RecordIdentity, relationship string) (related []ir.RecordIdentity, ok bool) {
	r, ok := c.store.Record(id)
	if !ok {
		return nil, false
	}
	rel, _ := r.Relationship(relationship)
	return append([]ir.RecordIdentity{}, rel.Identities()...), true
}

// Referrers returns every link pointing at id.
func (c *Cache) Referrers(id ir.RecordIdentity) []Reference {
	return c.store.Referrers(id)
}

func cloneRecords(records []*ir.Record) []*ir.Record {
	out := make([]*ir.Record, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	return out
}

// reversed returns ops in reverse order.
func reversed(ops []ir.Operation) []ir.Operation {
	out := slices.Clone(ops)
	slices.Reverse(out)
	return out
}
