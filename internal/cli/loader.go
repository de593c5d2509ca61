package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/recache/internal/cache"
	"github.com/roach88/recache/internal/compiler"
	"github.com/roach88/recache/internal/ir"
	"github.com/roach88/recache/internal/journal"
	"github.com/roach88/recache/internal/keymap"
	"github.com/roach88/recache/internal/query"
	"github.com/roach88/recache/internal/schema"
)

// loadSchema loads a .yaml or .cue schema, or a directory of .cue files.
func loadSchema(path string) (*schema.Schema, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--schema is required")
	}
	s, err := compiler.LoadSchema(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load schema", err)
	}
	return s, nil
}

// readDocument decodes a YAML or JSON file into an IR value.
func readDocument(path string) (ir.IRValue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	v, err := ir.FromAny(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// loadOperations reads a list of operations in their wire form.
func loadOperations(path string) ([]ir.Operation, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read operations", err)
	}
	ops, err := ir.DecodeOperations(doc)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid operations", err)
	}
	return ops, nil
}

// loadExpression reads a query expression in its wire form.
func loadExpression(path string) (query.Expression, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to read expression", err)
	}
	expr, err := query.DecodeExpression(doc)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid expression", err)
	}
	return expr, nil
}

// newCache builds a cache from the resolved settings.
func newCache(s *schema.Schema, cfg cache.Config, logger *slog.Logger) (*cache.Cache, error) {
	c, err := cache.New(s,
		cache.WithConfig(cfg),
		cache.WithLogger(logger),
		cache.WithKeyMap(keymap.New()),
	)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create cache", err)
	}
	return c, nil
}

// journalPath returns the --db flag, falling back to the configured journal.
func journalPath(flag string, settings Settings) string {
	if flag != "" {
		return flag
	}
	return settings.Journal
}

// openJournal opens the journal at path and replays it into c. It returns
// nil when path is empty.
func openJournal(ctx context.Context, path string, c *cache.Cache, logger *slog.Logger) (*journal.Journal, error) {
	if path == "" {
		return nil, nil
	}
	j, err := journal.Open(path, journal.WithLogger(logger))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	if c == nil {
		return j, nil
	}
	if _, err := j.Replay(ctx, c, 0); err != nil {
		j.Close()
		return nil, WrapExitError(ExitFailure, "failed to replay journal", err)
	}
	return j, nil
}

// encodeRecords returns the wire form of per-operation results, null for
// undefined ones.
func encodeRecords(records []*ir.Record) ir.IRArray {
	arr := make(ir.IRArray, len(records))
	for i, r := range records {
		arr[i] = ir.IRNull{}
		if r != nil {
			arr[i] = ir.EncodeRecord(r)
		}
	}
	return arr
}
