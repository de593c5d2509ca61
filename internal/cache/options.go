package cache

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/recache/internal/ir"
)

// Option configures a Cache.
type Option func(*Cache)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(c *Cache) {
		c.cfg = cfg
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithKeyMap sets the key index records' keys are pushed into.
func WithKeyMap(km KeyMap) Option {
	return func(c *Cache) {
		c.keyMap = km
	}
}

// WithProcessors replaces the processor chain. Processors run in the given
// order. Defaults to DefaultProcessors(schema).
func WithProcessors(processors ...Processor) Option {
	return func(c *Cache) {
		c.processors = processors
	}
}

// WithMetrics registers the cache's collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Cache) {
		c.metrics = newMetrics(reg)
	}
}

// UpdateOptions are per-call options for Update. Nil fields defer to the
// cache configuration.
type UpdateOptions struct {
	// FullResponse populates Response.Details.
	FullResponse bool

	RaiseNotFoundExceptions *bool
	UseBuffer               *bool
}

// QueryOptions are per-call options for Query.
type QueryOptions struct {
	RaiseNotFoundExceptions *bool
}

// KeyMap is the key index the cache keeps in sync with record keys.
type KeyMap interface {
	PushRecord(r *ir.Record)
	PushKey(id ir.RecordIdentity, key, value string)
}

// firstSet returns the first non-nil value, or fallback.
func firstSet(fallback bool, values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return fallback
}
