package cache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recache/internal/ir"
	"github.com/roach88/recache/internal/query"
)

func seedPlanets(t *testing.T, c *Cache) {
	t.Helper()
	_, err := c.Patch(context.Background(),
		ir.AddRecord{Record: record(pid("earth"), func(r *ir.Record) {
			r.SetAttribute("name", ir.IRString("Earth"))
			r.SetAttribute("sequence", ir.IRInt(3))
			r.SetRelationship("moons", ir.HasMany(mid("moon")))
		})},
		ir.AddRecord{Record: record(pid("mercury"), func(r *ir.Record) {
			r.SetAttribute("name", ir.IRString("Mercury"))
			r.SetAttribute("sequence", ir.IRInt(1))
		})},
		ir.AddRecord{Record: named(mid("moon"), "Moon")},
	)
	require.NoError(t, err)
}

func TestQuery(t *testing.T) {
	c := newTestCache(t)
	seedPlanets(t, c)
	ctx := context.Background()

	res, err := c.Query(ctx, query.FindRecords{
		Type: "planet",
		Sort: []query.SortSpecifier{{Attribute: "sequence", Order: query.Descending}},
	}, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "earth", res.Records[0].ID)
	assert.Equal(t, "mercury", res.Records[1].ID)

	res, err = c.Query(ctx, query.FindRelatedRecord{Record: mid("moon"), Relationship: "planet"}, QueryOptions{})
	require.NoError(t, err)
	require.NotNil(t, res.Record)
	assert.Equal(t, "earth", res.Record.ID)

	res, err = c.Query(ctx, query.FindRecord{Record: pid("pluto")}, QueryOptions{})
	require.NoError(t, err)
	assert.False(t, res.Defined)
}

func TestQueryNotFoundPrecedence(t *testing.T) {
	c := newTestCache(t, withConfig(func(cfg *Config) { cfg.RaiseNotFoundExceptions = true }))
	ctx := context.Background()

	_, err := c.Query(ctx, query.FindRecord{Record: pid("pluto")}, QueryOptions{})
	assert.True(t, ir.IsNotFoundError(err), "config default")

	_, err = c.Query(ctx, query.FindRecord{Record: pid("pluto")}, QueryOptions{RaiseNotFoundExceptions: ir.Bool(false)})
	assert.NoError(t, err, "call option overrides config")

	_, err = c.Query(ctx, query.FindRecord{Record: pid("pluto"), Options: query.Options{RaiseNotFoundExceptions: ir.Bool(true)}},
		QueryOptions{RaiseNotFoundExceptions: ir.Bool(false)})
	assert.True(t, ir.IsNotFoundError(err), "expression option overrides call")
}

func TestQueryValidation(t *testing.T) {
	c := newTestCache(t)
	_, err := c.Query(context.Background(), query.FindRecords{
		Type:   "planet",
		Filter: []query.Predicate{query.AttributeFilter{Attribute: "mass", Op: query.OpEqual, Value: ir.IRInt(1)}},
	}, QueryOptions{})
	assert.Equal(t, string(ir.ErrCodeUnknownAttribute), ir.CodeOf(err))
}

func TestQueryMemo(t *testing.T) {
	c := newTestCache(t, withConfig(func(cfg *Config) {
		cfg.QueryCache = QueryCacheConfig{Capacity: 100, Shards: 1, TTL: time.Minute, EvictionPercentage: 10}
	}))
	seedPlanets(t, c)
	ctx := context.Background()
	expr := query.FindRecords{Type: "planet"}

	first, err := c.Query(ctx, expr, QueryOptions{})
	require.NoError(t, err)
	_, err = c.Query(ctx, expr, QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, c.memo.size())

	// Results handed out are copies of the memoized one.
	first.Records[0].SetAttribute("name", ir.IRString("changed"))
	again, err := c.Query(ctx, expr, QueryOptions{})
	require.NoError(t, err)
	name, _ := again.Records[0].Attribute("name")
	assert.Equal(t, ir.IRString("Earth"), name)

	_, err = c.Patch(ctx, ir.AddRecord{Record: named(pid("venus"), "Venus")})
	require.NoError(t, err)
	res, err := c.Query(ctx, expr, QueryOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Records, 3, "a new revision is never answered from an older entry")
}

func TestQueryMemoFromCallbacks(t *testing.T) {
	ops := []ir.Operation{
		ir.AddRecord{Record: named(pid("mercury"), "Mercury")},
		ir.AddRecord{Record: named(pid("venus"), "Venus")},
		ir.AddRecord{Record: named(pid("earth"), "Earth")},
	}

	tests := []struct {
		name   string
		buffer bool
		want   []int
	}{
		{"unbuffered", false, []int{1, 2, 3}},
		// Buffered side effects are released after the whole batch is written.
		{"buffered", true, []int{3, 3, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCache(t, withConfig(func(cfg *Config) {
				cfg.DebounceLiveQueries = false
				cfg.UseBuffer = tt.buffer
				cfg.QueryCache = QueryCacheConfig{Capacity: 100, Shards: 1, TTL: time.Minute, EvictionPercentage: 10}
			}))
			ctx := context.Background()
			expr := query.FindRecords{Type: "planet"}

			warm, err := c.Query(ctx, expr, QueryOptions{})
			require.NoError(t, err)
			require.Empty(t, warm.Records)

			countNow := func() int {
				res, err := c.Query(ctx, expr, QueryOptions{})
				require.NoError(t, err)
				return len(res.Records)
			}

			var fromPatch, fromLive, delivered []int
			defer c.OnPatch(func(ir.Operation, *ir.Record) {
				fromPatch = append(fromPatch, countNow())
			})()
			lq, err := c.LiveQuery(expr)
			require.NoError(t, err)
			defer lq.Subscribe(func(u LiveQueryUpdate) {
				require.NoError(t, u.Err)
				delivered = append(delivered, len(u.Result.Records))
				fromLive = append(fromLive, countNow())
			})()

			_, err = c.Update(ctx, ops, UpdateOptions{})
			require.NoError(t, err)

			assert.Equal(t, []int{1, 2, 3}, delivered)
			assert.Equal(t, tt.want, fromPatch)
			assert.Equal(t, tt.want, fromLive)
			assert.Equal(t, 3, countNow())
		})
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestCache(t, WithMetrics(reg))
	ctx := context.Background()

	lq, err := c.LiveQuery(query.FindRecords{Type: "planet"})
	require.NoError(t, err)
	defer lq.Subscribe(func(LiveQueryUpdate) {})()

	_, err = c.Patch(ctx, ir.AddRecord{Record: record(pid("earth"), func(r *ir.Record) {
		r.SetRelationship("moons", ir.HasMany(mid("moon")))
	})})
	require.NoError(t, err)
	_, err = c.Patch(ctx, ir.ReplaceAttribute{Record: pid("earth"), Attribute: "mass", Value: ir.IRInt(1)})
	require.Error(t, err)

	m := c.metrics
	assert.Equal(t, 1.0, promtest.ToFloat64(m.applied.WithLabelValues(string(ir.OpAddRecord))))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.applied.WithLabelValues(string(ir.OpReplaceRelatedRecord))))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.skipped.WithLabelValues(string(ir.OpAddToRelatedRecords))))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.batches.WithLabelValues(outcomeCommitted)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.batches.WithLabelValues(outcomeFailed)))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.deliveries))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.records))
}
