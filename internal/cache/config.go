package cache

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DefaultMaxOperations bounds the operations one batch may process,
// synthetic operations included. It stops runaway cascades.
const DefaultMaxOperations = 10000

// Config holds cache-wide defaults. Per-call and per-operation options
// override the not-found and buffer settings.
type Config struct {
	// DebounceLiveQueries delivers one live query update per batch instead
	// of one per applied operation.
	DebounceLiveQueries bool `mapstructure:"debounce_live_queries" yaml:"debounce_live_queries"`

	// RaiseNotFoundExceptions makes operations and queries on absent records
	// fail with *ir.NotFoundError instead of yielding an undefined result.
	RaiseNotFoundExceptions bool `mapstructure:"raise_not_found_exceptions" yaml:"raise_not_found_exceptions"`

	// UseBuffer stages every batch in a transform buffer and commits it
	// atomically.
	UseBuffer bool `mapstructure:"use_buffer" yaml:"use_buffer"`

	// MaxOperations bounds the operations processed per batch. Zero disables
	// the bound.
	MaxOperations int `mapstructure:"max_operations" yaml:"max_operations"`

	// QueryCache configures memoized query results. A zero Capacity
	// disables memoization.
	QueryCache QueryCacheConfig `mapstructure:"query_cache" yaml:"query_cache"`
}

// QueryCacheConfig sizes the sturdyc client that memoizes query results.
type QueryCacheConfig struct {
	Capacity           int           `mapstructure:"capacity" yaml:"capacity"`
	Shards             int           `mapstructure:"shards" yaml:"shards"`
	TTL                time.Duration `mapstructure:"ttl" yaml:"ttl"`
	EvictionPercentage int           `mapstructure:"eviction_percentage" yaml:"eviction_percentage"`
}

// DefaultConfig returns the defaults: debounced live queries, lenient
// not-found handling, no buffer, no query memo.
func DefaultConfig() Config {
	return Config{
		DebounceLiveQueries: true,
		MaxOperations:       DefaultMaxOperations,
		QueryCache: QueryCacheConfig{
			Shards:             16,
			TTL:                5 * time.Minute,
			EvictionPercentage: 10,
		},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxOperations, validation.Min(0)),
		validation.Field(&c.QueryCache),
	)
}

// Validate checks the query memo settings. They only matter when Capacity
// is positive.
func (q QueryCacheConfig) Validate() error {
	enabled := q.Capacity > 0
	return validation.ValidateStruct(&q,
		validation.Field(&q.Capacity, validation.Min(0)),
		validation.Field(&q.Shards, validation.When(enabled, validation.Required, validation.Min(1))),
		validation.Field(&q.TTL, validation.When(enabled, validation.Required, validation.Min(time.Millisecond))),
		validation.Field(&q.EvictionPercentage, validation.When(enabled, validation.Required, validation.Min(1), validation.Max(100))),
	)
}
