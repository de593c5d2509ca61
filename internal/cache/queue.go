package cache

import "sync"

// request is one unit of work for the async dispatcher. cancel resolves
// the request without running it.
type request struct {
	run    func()
	cancel func(error)
}

// requestQueue is an unbounded FIFO of requests.
//
// Enqueue is safe from any goroutine; a single Run loop dequeues. The
// signal channel (buffered, size 1) coalesces wakeups so the loop can wait
// with select alongside ctx.Done().
type requestQueue struct {
	mu       sync.Mutex
	requests []request
	closed   bool
	signal   chan struct{}
}

func newRequestQueue() *requestQueue {
	return &requestQueue{
		requests: make([]request, 0, 16),
		signal:   make(chan struct{}, 1),
	}
}

// enqueue appends r. It returns false once the queue is closed.
func (q *requestQueue) enqueue(r request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.requests = append(q.requests, r)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// tryDequeue removes the front request without blocking.
func (q *requestQueue) tryDequeue() (request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return request{}, false
	}
	r := q.requests[0]
	// Clear the slot so the closures can be collected.
	q.requests[0] = request{}
	if len(q.requests) == 1 {
		q.requests = q.requests[:0]
	} else {
		q.requests = q.requests[1:]
	}
	return r, true
}

// wait returns a channel that fires when requests may be available, and
// stays ready once the queue is closed.
func (q *requestQueue) wait() <-chan struct{} {
	return q.signal
}

// drained reports whether the queue is closed and empty.
func (q *requestQueue) drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.requests) == 0
}

func (q *requestQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// close stops further enqueues and wakes the loop.
func (q *requestQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
