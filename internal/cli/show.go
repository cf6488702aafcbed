package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/stevdb/stevdb/internal/store"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the row count of every database table",
		Long: `Print the row count of every table in the database named in the
configuration file, manifest included.

Example:
  stevdb -C grid.yaml show
  stevdb -C grid.yaml show --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, rootOpts)
		},
	}
}

func runShow(cmd *cobra.Command, opts *RootOptions) error {
	cfg, teardown, err := setup(cmd, opts)
	if cfg == nil {
		return err
	}
	defer teardown()

	path := cfg.Stevdb.DatabaseName
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, "database not found: "+path)
	}
	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer closeStore(st)

	ctx := cmd.Context()
	tables, err := st.Tables(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list tables", err)
	}
	counts := make([]TableCount, 0, len(tables))
	for _, table := range tables {
		n, err := st.CountRows(ctx, table)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to count rows", err)
		}
		counts = append(counts, TableCount{Table: table, Rows: n})
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return formatter.Counts(counts)
}
