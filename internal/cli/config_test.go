package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recache/internal/cache"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.Equal(t, cache.DefaultConfig(), s.Cache)
	assert.Empty(t, s.Journal)
}

func TestLoadSettings_Environment(t *testing.T) {
	t.Setenv("RECACHE_CACHE_USE_BUFFER", "true")
	t.Setenv("RECACHE_CACHE_MAX_OPERATIONS", "50")
	t.Setenv("RECACHE_JOURNAL", "/tmp/recache.db")

	s, err := LoadSettings("")
	require.NoError(t, err)
	assert.True(t, s.Cache.UseBuffer)
	assert.Equal(t, 50, s.Cache.MaxOperations)
	assert.Equal(t, "/tmp/recache.db", s.Journal)
	assert.True(t, s.Cache.DebounceLiveQueries, "unset keys keep their defaults")
}

func TestLoadSettings_File(t *testing.T) {
	path := writeConfig(t, `
cache:
  debounce_live_queries: false
  raise_not_found_exceptions: true
  query_cache:
    capacity: 256
    ttl: 1m
journal: ./state.db
`)

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.False(t, s.Cache.DebounceLiveQueries)
	assert.True(t, s.Cache.RaiseNotFoundExceptions)
	assert.Equal(t, 256, s.Cache.QueryCache.Capacity)
	assert.Equal(t, time.Minute, s.Cache.QueryCache.TTL)
	assert.Equal(t, 16, s.Cache.QueryCache.Shards)
	assert.Equal(t, "./state.db", s.Journal)
}

func TestLoadSettings_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "cache:\n  use_buffer: false\n")
	t.Setenv("RECACHE_CACHE_USE_BUFFER", "true")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.True(t, s.Cache.UseBuffer)
}

func TestLoadSettings_Errors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr string
	}{
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.yaml") },
			wantErr: "read config",
		},
		{
			name:    "negative max operations",
			path:    func(t *testing.T) string { return writeConfig(t, "cache:\n  max_operations: -1\n") },
			wantErr: "invalid cache config",
		},
		{
			name: "memo without eviction",
			path: func(t *testing.T) string {
				return writeConfig(t, "cache:\n  query_cache:\n    capacity: 10\n    eviction_percentage: 0\n")
			},
			wantErr: "invalid cache config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSettings(tt.path(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigFlag(t *testing.T) {
	path := writeConfig(t, "cache:\n  max_operations: -5\n")

	_, err := execute(t, "--config", path, "validate", "testdata/schema.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
