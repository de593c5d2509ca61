package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/recache/internal/cache"
	"github.com/roach88/recache/internal/ir"
	"github.com/roach88/recache/internal/query"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Schema     string
	Operations string
	Expression string
	Database   string
	Raise      bool
}

// QueryResult is a query answer in its wire form. Result is absent when the
// answer is undefined.
type QueryResult struct {
	Defined bool       `json:"defined"`
	Result  ir.IRValue `json:"result,omitempty"`
}

func (r QueryResult) renderText(w io.Writer) error {
	if !r.Defined {
		_, err := fmt.Fprintln(w, "undefined")
		return err
	}
	return writeYAML(w, r.Result)
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Evaluate a query expression",
		Long: `Evaluate a query expression against a cache built from a schema.

The cache is populated from the journal (--db or the journal setting)
and then from the --ops file, if given. Nothing is written to the journal.

Exit codes:
  0 - Query answered
  1 - Query failed (invalid expression or strict not-found)
  2 - Command error (invalid paths, unreadable files, etc.)

Examples:
  recache query --schema schema.yaml --ops ops.yaml --expr planets.yaml
  recache query --schema schema.yaml --db recache.db --expr planets.yaml --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "schema file or directory (required)")
	_ = cmd.MarkFlagRequired("schema")
	cmd.Flags().StringVar(&opts.Expression, "expr", "", "expression file (required)")
	_ = cmd.MarkFlagRequired("expr")
	cmd.Flags().StringVar(&opts.Operations, "ops", "", "operations applied before the query")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database path")
	cmd.Flags().BoolVar(&opts.Raise, "raise", false, "fail when the primary record is absent")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	s, err := loadSchema(opts.Schema)
	if err != nil {
		return out.Fail(ExitCommandError, "query", err)
	}
	expr, err := loadExpression(opts.Expression)
	if err != nil {
		return out.Fail(ExitCommandError, "query", err)
	}
	c, err := newCache(s, opts.Settings.Cache, logger)
	if err != nil {
		return out.Fail(ExitCommandError, "query", err)
	}

	j, err := openJournal(ctx, journalPath(opts.Database, opts.Settings), c, logger)
	if err != nil {
		return out.Fail(GetExitCode(err), "query", err)
	}
	if j != nil {
		j.Close()
	}

	if opts.Operations != "" {
		ops, err := loadOperations(opts.Operations)
		if err != nil {
			return out.Fail(ExitCommandError, "query", err)
		}
		if _, err := c.Update(ctx, ops, cache.UpdateOptions{}); err != nil {
			return out.Fail(ExitFailure, "operations failed", err)
		}
	}

	queryOpts := cache.QueryOptions{}
	if cmd.Flags().Changed("raise") {
		queryOpts.RaiseNotFoundExceptions = ir.Bool(opts.Raise)
	}
	res, err := c.Query(ctx, expr, queryOpts)
	if err != nil {
		return out.Fail(ExitFailure, "query failed", err)
	}
	return out.Success(encodeQueryResult(res))
}

func encodeQueryResult(res query.Result) QueryResult {
	switch {
	case !res.Defined:
		return QueryResult{}
	case res.Many:
		return QueryResult{Defined: true, Result: encodeRecords(res.Records)}
	case res.Record == nil:
		return QueryResult{Defined: true, Result: ir.IRNull{}}
	}
	return QueryResult{Defined: true, Result: ir.EncodeRecord(res.Record)}
}
