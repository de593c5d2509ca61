package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// ValidateResult summarizes a valid schema.
type ValidateResult struct {
	Schema        string   `json:"schema"`
	Types         []string `json:"types"`
	Relationships int      `json:"relationships"`
}

func (r ValidateResult) renderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "✓ %s: %d types (%s), %d relationships\n",
		r.Schema, len(r.Types), strings.Join(r.Types, ", "), r.Relationships)
	return err
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema>",
		Short: "Validate a schema file",
		Long: `Validate a schema: a .yaml file, a .cue file, or a directory of .cue files.

Checks that every relationship names a known type, that inverses exist and
point back, and that attribute types are known.

Exit codes:
  0 - Schema is valid
  2 - Schema could not be loaded or is invalid

Examples:
  recache validate ./schema.yaml
  recache validate ./schema --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	s, err := loadSchema(path)
	if err != nil {
		return out.Fail(ExitCommandError, "invalid schema", err)
	}

	result := ValidateResult{Schema: path, Types: s.Types()}
	for _, typ := range result.Types {
		model, _ := s.Model(typ)
		result.Relationships += len(model.Relationships)
	}
	return out.Success(result)
}
