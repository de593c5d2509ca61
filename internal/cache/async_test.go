package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recache/internal/ir"
	"github.com/roach88/recache/internal/query"
)

func startAsync(t *testing.T, a *AsyncCache) (cancel func(), done <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- a.Run(ctx) }()
	return cancel, errc
}

func TestAsyncSerializesRequests(t *testing.T) {
	a := NewAsync(newTestCache(t))
	cancel, done := startAsync(t, a)
	defer cancel()
	ctx := context.Background()

	var wg sync.WaitGroup
	futures := make([]*Future[*PatchResult], 20)
	for i := range futures {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			futures[i] = a.Patch(ctx, ir.AddRecord{Record: record(pid(fmt.Sprintf("p%02d", i)), func(r *ir.Record) {
				r.SetRelationship("star", ir.HasOne(sid("sun")))
			})})
		}(i)
	}
	wg.Wait()

	for _, f := range futures {
		_, err := f.Await(ctx)
		require.NoError(t, err)
	}

	res, err := a.Query(ctx, query.FindRelatedRecords{Record: sid("sun"), Relationship: "planets"}, QueryOptions{}).Await(ctx)
	require.NoError(t, err)
	assert.Len(t, res.Records, len(futures), "every batch saw the sun its predecessors linked")

	a.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestAsyncQueryObservesEarlierBatches(t *testing.T) {
	a := NewAsync(newTestCache(t))
	ctx := context.Background()

	// Queue before Run starts so ordering is decided by submission alone.
	patch := a.Patch(ctx, ir.AddRecord{Record: named(pid("earth"), "Earth")})
	q := a.Query(ctx, query.FindRecord{Record: pid("earth")}, QueryOptions{})
	assert.Equal(t, 2, a.Pending())

	cancel, _ := startAsync(t, a)
	defer cancel()

	_, err := patch.Await(ctx)
	require.NoError(t, err)
	res, err := q.Await(ctx)
	require.NoError(t, err)
	require.True(t, res.Defined)
	assert.Equal(t, "earth", res.Record.ID)
}

func TestAsyncCancelFailsQueuedRequests(t *testing.T) {
	a := NewAsync(newTestCache(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := a.Patch(context.Background(), ir.AddRecord{Record: named(pid("earth"), "Earth")})
	err := a.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = f.Await(context.Background())
	assert.ErrorIs(t, err, ErrCacheClosed)
	assert.Nil(t, a.Cache().GetRecord(pid("earth")))

	_, err = a.Patch(context.Background()).Await(context.Background())
	assert.ErrorIs(t, err, ErrCacheClosed, "requests after shutdown are refused")
}

func TestAsyncRequestContext(t *testing.T) {
	a := NewAsync(newTestCache(t))
	reqCtx, cancelReq := context.WithCancel(context.Background())
	cancelReq()
	f := a.Patch(reqCtx, ir.AddRecord{Record: named(pid("earth"), "Earth")})

	cancel, _ := startAsync(t, a)
	defer cancel()

	<-f.Done()
	_, err := f.Await(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, a.Cache().GetRecord(pid("earth")))
}
