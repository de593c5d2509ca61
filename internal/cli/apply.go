package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/recache/internal/cache"
	"github.com/roach88/recache/internal/ir"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Schema     string
	Operations string
	Database   string
	Buffer     bool
	Raise      bool
}

// ApplyResult is the outcome of one batch.
type ApplyResult struct {
	Data     ir.IRArray `json:"data"`
	Inverse  ir.IRArray `json:"inverse"`
	Applied  int        `json:"applied"`
	Records  int        `json:"records"`
	Revision uint64     `json:"revision"`
	Journal  int64      `json:"journal_seq,omitempty"`
}

func (r ApplyResult) renderText(w io.Writer) error {
	fmt.Fprintf(w, "✓ applied %d operations (revision %d, %d records)\n", r.Applied, r.Revision, r.Records)
	if r.Journal > 0 {
		fmt.Fprintf(w, "  journal seq %d\n", r.Journal)
	}
	fmt.Fprintln(w, "data:")
	if err := writeYAML(w, r.Data); err != nil {
		return err
	}
	fmt.Fprintln(w, "inverse:")
	return writeYAML(w, r.Inverse)
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a batch of operations",
		Long: `Apply a batch of operations to a cache built from a schema.

Operations are read from a YAML or JSON list in their wire form. With a
journal (--db or the journal setting) the cache is first rebuilt from the
journal and the batch is appended to it.

Exit codes:
  0 - Batch applied
  1 - Batch failed (validation or not-found error)
  2 - Command error (invalid paths, unreadable files, etc.)

Examples:
  recache apply --schema schema.yaml --ops ops.yaml
  recache apply --schema schema.yaml --ops ops.yaml --db recache.db --buffer`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "schema file or directory (required)")
	_ = cmd.MarkFlagRequired("schema")
	cmd.Flags().StringVar(&opts.Operations, "ops", "", "operations file (required)")
	_ = cmd.MarkFlagRequired("ops")
	cmd.Flags().StringVar(&opts.Database, "db", "", "journal database path")
	cmd.Flags().BoolVar(&opts.Buffer, "buffer", false, "apply the batch atomically through the transform buffer")
	cmd.Flags().BoolVar(&opts.Raise, "raise", false, "fail on operations targeting absent records")

	return cmd
}

func runApply(opts *ApplyOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	s, err := loadSchema(opts.Schema)
	if err != nil {
		return out.Fail(ExitCommandError, "apply", err)
	}
	ops, err := loadOperations(opts.Operations)
	if err != nil {
		return out.Fail(ExitCommandError, "apply", err)
	}
	c, err := newCache(s, opts.Settings.Cache, logger)
	if err != nil {
		return out.Fail(ExitCommandError, "apply", err)
	}

	j, err := openJournal(ctx, journalPath(opts.Database, opts.Settings), c, logger)
	if err != nil {
		return out.Fail(GetExitCode(err), "apply", err)
	}
	if j != nil {
		defer j.Close()
		detach := j.Attach(ctx, c)
		defer detach()
		out.VerboseLog("replayed journal: %d records at revision %d", c.Len(), c.Revision())
	}

	updateOpts := cache.UpdateOptions{FullResponse: true}
	if cmd.Flags().Changed("buffer") {
		updateOpts.UseBuffer = ir.Bool(opts.Buffer)
	}
	if cmd.Flags().Changed("raise") {
		updateOpts.RaiseNotFoundExceptions = ir.Bool(opts.Raise)
	}

	resp, err := c.Update(ctx, ops, updateOpts)
	if err != nil {
		return out.Fail(ExitFailure, "batch failed", err)
	}

	result := ApplyResult{
		Data:     encodeRecords(resp.Data),
		Inverse:  ir.EncodeOperations(resp.Details.InverseOperations),
		Applied:  len(resp.Details.AppliedOperations),
		Records:  c.Len(),
		Revision: c.Revision(),
	}
	if j != nil {
		seq, err := j.LastSeq(ctx)
		if err != nil {
			return out.Fail(ExitCommandError, "read journal", err)
		}
		result.Journal = seq
	}
	return out.Success(result)
}
