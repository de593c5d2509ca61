package cache

import (
	"sync"

	"github.com/roach88/recache/internal/ir"
)

// Transform is one committed batch: the operations applied, synthetic ones
// included, and the operations that undo them in the order to apply them.
type Transform struct {
	Operations []ir.Operation
	Inverse    []ir.Operation
}

// PatchEvent is one applied operation and the record it produced. Result
// is the removed record for removeRecord.
type PatchEvent struct {
	Operation ir.Operation
	Result    *ir.Record
}

// listeners is a registry of callbacks, safe to modify from any goroutine.
// Callbacks run in registration order on the emitting goroutine.
type listeners[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)
}

func (l *listeners[T]) add(fn func(T)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(T))
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	}
}

func (l *listeners[T]) snapshot() []func(T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fns := make([]func(T), 0, len(l.fns))
	for id := 0; id < l.next; id++ {
		if fn, ok := l.fns[id]; ok {
			fns = append(fns, fn)
		}
	}
	return fns
}

func (l *listeners[T]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

func (l *listeners[T]) emit(v T) {
	for _, fn := range l.snapshot() {
		fn(v)
	}
}

// OnPatch registers fn to run for every applied operation. Under the
// buffer the calls happen after the batch commits.
func (c *Cache) OnPatch(fn func(op ir.Operation, result *ir.Record)) (unsubscribe func()) {
	return c.patchListeners.add(func(ev PatchEvent) {
		fn(ev.Operation, ev.Result)
	})
}

// OnTransform registers fn to run once per batch that applied at least one
// operation.
func (c *Cache) OnTransform(fn func(Transform)) (unsubscribe func()) {
	return c.transformListeners.add(fn)
}
