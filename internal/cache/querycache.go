package cache

import (
	"context"
	"strconv"

	"github.com/viccon/sturdyc"

	"github.com/roach88/recache/internal/query"
)

// queryMemo memoizes query results per store generation. Keys embed the
// generation, so any store write makes every earlier entry unreachable and
// the TTL reclaims them. Queries made from patch listeners and live query
// subscribers mid-batch therefore see the writes already applied.
type queryMemo struct {
	client *sturdyc.Client[query.Result]
}

func newQueryMemo(cfg QueryCacheConfig) *queryMemo {
	if cfg.Capacity <= 0 {
		return nil
	}
	return &queryMemo{
		client: sturdyc.New[query.Result](cfg.Capacity, cfg.Shards, cfg.TTL, cfg.EvictionPercentage),
	}
}

// getOrEvaluate returns the memoized result for (generation, expr, raise),
// or evaluates and stores it. Errors are not memoized.
func (m *queryMemo) getOrEvaluate(ctx context.Context, generation uint64, expr query.Expression, raise bool, eval func() (query.Result, error)) (query.Result, error) {
	if m == nil {
		return eval()
	}
	exprKey, err := query.Key(expr)
	if err != nil {
		return eval()
	}
	key := strconv.FormatUint(generation, 10) + ":" + strconv.FormatBool(raise) + ":" + exprKey
	res, err := m.client.GetOrFetch(ctx, key, func(context.Context) (query.Result, error) {
		return eval()
	})
	if err != nil {
		return query.Undefined, err
	}
	return res, nil
}

// size returns the number of memoized results.
func (m *queryMemo) size() int {
	if m == nil {
		return 0
	}
	return m.client.Size()
}
