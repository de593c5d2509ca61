package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/recache/internal/cache"
	"github.com/roach88/recache/internal/ir"
	"github.com/roach88/recache/internal/journal"
	"github.com/roach88/recache/internal/schema"
)

// JournalOptions holds flags shared by the journal subcommands.
type JournalOptions struct {
	*RootOptions
	Database string
}

// NewJournalCommand creates the journal command and its subcommands.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect and maintain a transform journal",
		Long: `Inspect and maintain the SQLite journal of committed transforms.

The journal path comes from --db or the journal setting
(RECACHE_JOURNAL).`,
	}
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "journal database path")

	cmd.AddCommand(newJournalTraceCommand(opts))
	cmd.AddCommand(newJournalReplayCommand(opts))
	cmd.AddCommand(newJournalTruncateCommand(opts))
	cmd.AddCommand(newJournalRollbackCommand(opts))
	return cmd
}

// open opens the configured journal without replaying it.
func (o *JournalOptions) open(ctx context.Context, logger *slog.Logger) (*journal.Journal, error) {
	path := journalPath(o.Database, o.Settings)
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	return openJournal(ctx, path, nil, logger)
}

// TraceEntry is one journal entry in its wire form.
type TraceEntry struct {
	Seq        int64      `json:"seq"`
	ID         string     `json:"id"`
	Hash       string     `json:"hash"`
	Operations ir.IRArray `json:"operations"`
	Inverse    ir.IRArray `json:"inverse"`
}

// JournalTraceResult lists journal entries in seq order.
type JournalTraceResult struct {
	Entries []TraceEntry `json:"entries"`
	LastSeq int64        `json:"last_seq"`

	verbose bool
}

func (r JournalTraceResult) renderText(w io.Writer) error {
	if len(r.Entries) == 0 {
		_, err := fmt.Fprintln(w, "No entries.")
		return err
	}
	for _, e := range r.Entries {
		fmt.Fprintf(w, "%6d  %s  %d ops  %s\n", e.Seq, e.ID, len(e.Operations), shortHash(e.Hash))
		if r.verbose {
			if err := writeYAML(w, e.Operations); err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintf(w, "\n%d entries, last seq %d\n", len(r.Entries), r.LastSeq)
	return err
}

func newJournalTraceCommand(opts *JournalOptions) *cobra.Command {
	var after int64
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List journal entries",
		Long: `List the committed transforms in seq order.

With --verbose the operations of each entry are printed as YAML.

Examples:
  recache journal trace --db ./recache.db
  recache journal trace --db ./recache.db --after 40 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := opts.formatter(cmd)

			j, err := opts.open(ctx, opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return out.Fail(GetExitCode(err), "journal trace", err)
			}
			defer j.Close()

			entries, err := j.Entries(ctx, after)
			if err != nil {
				return out.Fail(ExitCommandError, "journal trace", err)
			}
			last, err := j.LastSeq(ctx)
			if err != nil {
				return out.Fail(ExitCommandError, "journal trace", err)
			}

			result := JournalTraceResult{Entries: make([]TraceEntry, len(entries)), LastSeq: last, verbose: opts.Verbose}
			for i, e := range entries {
				result.Entries[i] = TraceEntry{
					Seq:        e.Seq,
					ID:         e.ID,
					Hash:       e.Hash,
					Operations: ir.EncodeOperations(e.Operations),
					Inverse:    ir.EncodeOperations(e.Inverse),
				}
			}
			return out.Success(result)
		},
	}
	cmd.Flags().Int64Var(&after, "after", 0, "only entries with seq greater than this")
	return cmd
}

// JournalReplayResult reports a determinism check of the journal.
type JournalReplayResult struct {
	Entries       int    `json:"entries"`
	Records       int    `json:"records"`
	Revision      uint64 `json:"revision"`
	StateHash     string `json:"state_hash"`
	Deterministic bool   `json:"deterministic"`
}

func (r JournalReplayResult) renderText(w io.Writer) error {
	mark := "✓"
	if !r.Deterministic {
		mark = "✗"
	}
	_, err := fmt.Fprintf(w, "%s replayed %d entries: %d records at revision %d (state %s)\n",
		mark, r.Entries, r.Records, r.Revision, shortHash(r.StateHash))
	return err
}

func newJournalReplayCommand(opts *JournalOptions) *cobra.Command {
	var schemaPath string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the journal and verify determinism",
		Long: `Replay every entry into two fresh caches and compare their state.

Each cache's state is hashed from the content hashes of its records. The
replay is deterministic when both hashes agree.

Exit codes:
  0 - Replay is deterministic
  1 - Replay failed or the two states differ
  2 - Command error (journal or schema not found, etc.)

Examples:
  recache journal replay --db ./recache.db --schema schema.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := opts.formatter(cmd)
			logger := opts.logger(cmd.ErrOrStderr())

			s, err := loadSchema(schemaPath)
			if err != nil {
				return out.Fail(ExitCommandError, "journal replay", err)
			}
			j, err := opts.open(ctx, logger)
			if err != nil {
				return out.Fail(GetExitCode(err), "journal replay", err)
			}
			defer j.Close()

			first, err := replayInto(ctx, j, s, opts.Settings.Cache, logger)
			if err != nil {
				return out.Fail(ExitFailure, "first replay failed", err)
			}
			second, err := replayInto(ctx, j, s, opts.Settings.Cache, logger)
			if err != nil {
				return out.Fail(ExitFailure, "second replay failed", err)
			}

			first.Deterministic = first.StateHash == second.StateHash &&
				first.Records == second.Records && first.Revision == second.Revision
			if !first.Deterministic {
				msg := fmt.Sprintf("replay diverged: state %s vs %s", shortHash(first.StateHash), shortHash(second.StateHash))
				if err := out.Error(ErrCodeReplay, msg, first); err != nil {
					return err
				}
				return NewExitError(ExitFailure, msg)
			}
			return out.Success(first)
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file or directory (required)")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

// replayInto replays the whole journal into a fresh cache and summarizes it.
func replayInto(ctx context.Context, j *journal.Journal, s *schema.Schema, cfg cache.Config, logger *slog.Logger) (JournalReplayResult, error) {
	c, err := newCache(s, cfg, logger)
	if err != nil {
		return JournalReplayResult{}, err
	}
	n, err := j.Replay(ctx, c, 0)
	if err != nil {
		return JournalReplayResult{}, err
	}
	hash, err := stateHash(c)
	if err != nil {
		return JournalReplayResult{}, err
	}
	return JournalReplayResult{
		Entries:   n,
		Records:   c.Len(),
		Revision:  c.Revision(),
		StateHash: hash,
	}, nil
}

// stateHash hashes every record's content hash keyed by "type:id".
func stateHash(c *cache.Cache) (string, error) {
	state := ir.IRObject{}
	for _, typ := range c.Schema().Types() {
		for _, r := range c.GetRecords(typ) {
			h, err := ir.RecordHash(r)
			if err != nil {
				return "", err
			}
			state[typ+":"+r.ID] = ir.IRString(h)
		}
	}
	return ir.ContentHash(ir.DomainState, state)
}

// JournalTruncateResult reports a truncation.
type JournalTruncateResult struct {
	Through int64 `json:"through"`
	Deleted int64 `json:"deleted"`
}

func (r JournalTruncateResult) renderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "✓ deleted %d entries through seq %d\n", r.Deleted, r.Through)
	return err
}

func newJournalTruncateCommand(opts *JournalOptions) *cobra.Command {
	var through int64
	cmd := &cobra.Command{
		Use:   "truncate",
		Short: "Delete entries up to a seq",
		Long: `Delete the entries with seq up to and including --through.

Later replays start from the oldest remaining entry, so truncate only
history that is no longer needed to rebuild state.

Examples:
  recache journal truncate --db ./recache.db --through 100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := opts.formatter(cmd)
			if through <= 0 {
				return out.Fail(ExitCommandError, "journal truncate", NewExitError(ExitCommandError, "--through must be positive"))
			}

			j, err := opts.open(ctx, opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return out.Fail(GetExitCode(err), "journal truncate", err)
			}
			defer j.Close()

			n, err := j.Truncate(ctx, through)
			if err != nil {
				return out.Fail(ExitCommandError, "journal truncate", err)
			}
			return out.Success(JournalTruncateResult{Through: through, Deleted: n})
		},
	}
	cmd.Flags().Int64Var(&through, "through", 0, "last seq to delete (required)")
	_ = cmd.MarkFlagRequired("through")
	return cmd
}

// JournalRollbackResult reports an entry rolled back.
type JournalRollbackResult struct {
	ID      string     `json:"id"`
	Applied ir.IRArray `json:"applied"`
	Seq     int64      `json:"seq"`
}

func (r JournalRollbackResult) renderText(w io.Writer) error {
	fmt.Fprintf(w, "✓ rolled back %s as seq %d\n", r.ID, r.Seq)
	return writeYAML(w, r.Applied)
}

func newJournalRollbackCommand(opts *JournalOptions) *cobra.Command {
	var schemaPath, id string
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Apply the inverse of one entry",
		Long: `Rebuild the cache from the journal, apply the inverse of one entry and
append the result as a new entry.

Exit codes:
  0 - Entry rolled back
  1 - Entry not found or its inverse failed to apply
  2 - Command error (journal or schema not found, etc.)

Examples:
  recache journal rollback --db ./recache.db --schema schema.yaml --id 0192...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := opts.formatter(cmd)
			logger := opts.logger(cmd.ErrOrStderr())

			s, err := loadSchema(schemaPath)
			if err != nil {
				return out.Fail(ExitCommandError, "journal rollback", err)
			}
			c, err := newCache(s, opts.Settings.Cache, logger)
			if err != nil {
				return out.Fail(ExitCommandError, "journal rollback", err)
			}
			path := journalPath(opts.Database, opts.Settings)
			if path == "" {
				return out.Fail(ExitCommandError, "journal rollback", NewExitError(ExitCommandError, "--db is required"))
			}
			j, err := openJournal(ctx, path, c, logger)
			if err != nil {
				return out.Fail(GetExitCode(err), "journal rollback", err)
			}
			defer j.Close()

			detach := j.Attach(ctx, c)
			defer detach()

			resp, err := j.Rollback(ctx, c, id)
			if err != nil {
				return out.Fail(ExitFailure, "journal rollback", err)
			}
			seq, err := j.LastSeq(ctx)
			if err != nil {
				return out.Fail(ExitCommandError, "journal rollback", err)
			}
			return out.Success(JournalRollbackResult{
				ID:      id,
				Applied: ir.EncodeOperations(resp.Details.AppliedOperations),
				Seq:     seq,
			})
		},
	}
	cmd.Flags().StringVar(&schemaPath, "schema", "", "schema file or directory (required)")
	_ = cmd.MarkFlagRequired("schema")
	cmd.Flags().StringVar(&id, "id", "", "entry id (required)")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
