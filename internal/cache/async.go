package cache

import (
	"context"

	"github.com/roach88/recache/internal/ir"
	"github.com/roach88/recache/internal/query"
)

// Future is the pending answer to an AsyncCache request.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(v T, err error) {
	f.value, f.err = v, err
	close(f.done)
}

// Done is closed once the request has been answered.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the request is answered or ctx ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// AsyncCache serializes requests from any goroutine through a single
// writer loop over a Cache.
//
// Thread-safety model:
//   - Update, Patch, Query: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//
// Requests run in submission order. Each runs with the context it was
// submitted with, so processors may block on it.
type AsyncCache struct {
	cache *Cache
	queue *requestQueue
}

// NewAsync wraps c. Nothing runs until Run is called.
func NewAsync(c *Cache) *AsyncCache {
	return &AsyncCache{cache: c, queue: newRequestQueue()}
}

// Cache returns the wrapped cache, for registering listeners and live
// queries. Its Update and Patch must not be called while Run is active.
func (a *AsyncCache) Cache() *Cache {
	return a.cache
}

// Pending returns the number of queued requests.
func (a *AsyncCache) Pending() int {
	return a.queue.len()
}

// Run processes requests until ctx ends or Close is called and the queue
// has drained. When ctx ends, queued requests fail with ErrCacheClosed.
func (a *AsyncCache) Run(ctx context.Context) error {
	a.cache.logger.Info("async cache starting")
	defer a.cache.logger.Info("async cache stopped")

	for {
		if err := ctx.Err(); err != nil {
			a.abort()
			return err
		}
		if r, ok := a.queue.tryDequeue(); ok {
			r.run()
			continue
		}
		if a.queue.drained() {
			return nil
		}
		select {
		case <-ctx.Done():
		case <-a.queue.wait():
		}
	}
}

// abort closes the queue and fails every queued request.
func (a *AsyncCache) abort() {
	a.queue.close()
	for {
		r, ok := a.queue.tryDequeue()
		if !ok {
			return
		}
		r.cancel(ErrCacheClosed)
	}
}

// Close stops accepting requests. Run returns once the queued ones ran.
func (a *AsyncCache) Close() {
	a.queue.close()
}

// Update queues a batch.
func (a *AsyncCache) Update(ctx context.Context, ops []ir.Operation, opts UpdateOptions) *Future[*Response] {
	return submit(a, ctx, func(ctx context.Context) (*Response, error) {
		return a.cache.Update(ctx, ops, opts)
	})
}

// Patch queues a batch with default options.
func (a *AsyncCache) Patch(ctx context.Context, ops ...ir.Operation) *Future[*PatchResult] {
	return submit(a, ctx, func(ctx context.Context) (*PatchResult, error) {
		return a.cache.Patch(ctx, ops...)
	})
}

// Query queues a query. It observes every batch submitted before it.
func (a *AsyncCache) Query(ctx context.Context, expr query.Expression, opts QueryOptions) *Future[query.Result] {
	return submit(a, ctx, func(ctx context.Context) (query.Result, error) {
		return a.cache.Query(ctx, expr, opts)
	})
}

func submit[T any](a *AsyncCache, ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	var zero T
	ok := a.queue.enqueue(request{
		run: func() {
			if err := ctx.Err(); err != nil {
				f.resolve(zero, err)
				return
			}
			v, err := fn(ctx)
			f.resolve(v, err)
		},
		cancel: func(err error) {
			f.resolve(zero, err)
		},
	})
	if !ok {
		f.resolve(zero, ErrCacheClosed)
	}
	return f
}
