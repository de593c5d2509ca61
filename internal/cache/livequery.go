package cache

import (
	"context"
	"sync"

	"github.com/roach88/recache/internal/query"
)

// LiveQueryUpdate is one delivery to a live query subscriber. Err is set
// when evaluation failed, for example a strict lookup of a removed record.
type LiveQueryUpdate struct {
	Result query.Result
	Err    error
}

// LiveQuery is a query whose subscribers receive a fresh result whenever
// the cache changes. Results are not filtered for relevance: every batch
// that applies an operation triggers a delivery.
type LiveQuery struct {
	cache *Cache
	expr  query.Expression
	subs  listeners[LiveQueryUpdate]
}

// LiveQuery validates expr and returns a live query over it. It delivers
// nothing until subscribed.
func (c *Cache) LiveQuery(expr query.Expression) (*LiveQuery, error) {
	if err := query.Validate(expr, c.schema); err != nil {
		return nil, err
	}
	return &LiveQuery{cache: c, expr: expr}, nil
}

// Expression returns the query expression.
func (lq *LiveQuery) Expression() query.Expression {
	return lq.expr
}

// Query evaluates the expression against the current state.
func (lq *LiveQuery) Query(ctx context.Context) (query.Result, error) {
	return lq.cache.Query(ctx, lq.expr, QueryOptions{})
}

// Subscribe registers fn for deliveries. The returned function stops them.
func (lq *LiveQuery) Subscribe(fn func(LiveQueryUpdate)) (unsubscribe func()) {
	lq.cache.liveQueries.register(lq)
	stop := lq.subs.add(fn)
	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			if lq.subs.len() == 0 {
				lq.cache.liveQueries.unregister(lq)
			}
		})
	}
}

// evaluate answers the live query against src, cloning the result.
func (lq *LiveQuery) evaluate(src query.Source, raise bool) LiveQueryUpdate {
	res, err := query.Evaluate(src, lq.expr, raise)
	if err != nil {
		return LiveQueryUpdate{Result: query.Undefined, Err: err}
	}
	return LiveQueryUpdate{Result: res.Clone()}
}

// liveQueryDelivery is an evaluated update waiting to be delivered.
type liveQueryDelivery struct {
	lq     *LiveQuery
	update LiveQueryUpdate
}

func (d liveQueryDelivery) deliver() int {
	fns := d.lq.subs.snapshot()
	for _, fn := range fns {
		fn(d.update)
	}
	return len(fns)
}

// liveQueryRegistry tracks the live queries that have subscribers.
type liveQueryRegistry struct {
	mu      sync.Mutex
	queries []*LiveQuery
}

func (r *liveQueryRegistry) register(lq *LiveQuery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.queries {
		if q == lq {
			return
		}
	}
	r.queries = append(r.queries, lq)
}

func (r *liveQueryRegistry) unregister(lq *LiveQuery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, q := range r.queries {
		if q == lq {
			r.queries = append(r.queries[:i:i], r.queries[i+1:]...)
			return
		}
	}
}

func (r *liveQueryRegistry) snapshot() []*LiveQuery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*LiveQuery, len(r.queries))
	copy(out, r.queries)
	return out
}

// evaluateAll evaluates every subscribed live query against src.
func (r *liveQueryRegistry) evaluateAll(src query.Source, raise bool) []liveQueryDelivery {
	queries := r.snapshot()
	out := make([]liveQueryDelivery, 0, len(queries))
	for _, lq := range queries {
		out = append(out, liveQueryDelivery{lq: lq, update: lq.evaluate(src, raise)})
	}
	return out
}
