package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/recache/internal/cache"
)

const envPrefix = "RECACHE"

// Config keys.
const (
	cfgKeyDebounce         = "cache.debounce_live_queries"
	cfgKeyRaise            = "cache.raise_not_found_exceptions"
	cfgKeyBuffer           = "cache.use_buffer"
	cfgKeyMaxOperations    = "cache.max_operations"
	cfgKeyMemoCapacity     = "cache.query_cache.capacity"
	cfgKeyMemoShards       = "cache.query_cache.shards"
	cfgKeyMemoTTL          = "cache.query_cache.ttl"
	cfgKeyMemoEvictPercent = "cache.query_cache.eviction_percentage"
	cfgKeyJournal          = "journal"
)

// Settings is the CLI configuration: cache defaults and the journal path.
type Settings struct {
	Cache   cache.Config `mapstructure:"cache"`
	Journal string       `mapstructure:"journal"`
}

// LoadSettings reads the config file at path, if any, then RECACHE_*
// environment variables, over the cache defaults. Nested keys map to
// variables with dots replaced by underscores.
func LoadSettings(path string) (Settings, error) {
	v := viper.New()

	def := cache.DefaultConfig()
	v.SetDefault(cfgKeyDebounce, def.DebounceLiveQueries)
	v.SetDefault(cfgKeyRaise, def.RaiseNotFoundExceptions)
	v.SetDefault(cfgKeyBuffer, def.UseBuffer)
	v.SetDefault(cfgKeyMaxOperations, def.MaxOperations)
	v.SetDefault(cfgKeyMemoCapacity, def.QueryCache.Capacity)
	v.SetDefault(cfgKeyMemoShards, def.QueryCache.Shards)
	v.SetDefault(cfgKeyMemoTTL, def.QueryCache.TTL)
	v.SetDefault(cfgKeyMemoEvictPercent, def.QueryCache.EvictionPercentage)
	v.SetDefault(cfgKeyJournal, "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Cache.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid cache config: %w", err)
	}
	return s, nil
}
