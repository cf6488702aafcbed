package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile  string
	Debug       bool
	ShowLogName bool
	ShowConfig  bool
	Format      string // "json" | "text"

	// LogFile overrides the log file location (for testing).
	// If empty, defaults to DefaultLogFile().
	LogFile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the stevdb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "stevdb",
		Short: "stevdb - stellar evolution database manager",
		Long: `Create and update a database of MESA stellar evolution runs.

Without a subcommand stevdb watches the runs directory named in the
configuration file and stores every finished run as it appears.

Example:
  stevdb -C grid.yaml
  stevdb -C grid.yaml --debug
  stevdb -C grid.yaml once
  stevdb -C grid.yaml show`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config-file", "C", "", "name of configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Debug, "debug", "d", false, "enable debug mode")
	cmd.PersistentFlags().BoolVar(&opts.ShowLogName, "show-log-name", false, "display log filename and exit")
	cmd.PersistentFlags().BoolVar(&opts.ShowConfig, "show-config", false, "display config info and exit")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format of once and show (json|text)")

	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewOnceCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))

	return cmd
}

// preflight handles the flags that print something and exit. It returns
// true when the command has nothing left to do.
func preflight(cmd *cobra.Command, opts *RootOptions) (bool, error) {
	if opts.ShowLogName {
		fmt.Fprintf(cmd.OutOrStdout(), "LOG FILENAME is: %s\n", opts.logFile())
		return true, nil
	}
	if opts.ConfigFile == "" {
		return true, NewExitError(ExitCommandError, "no configuration file given (use --config-file)")
	}
	if opts.ShowConfig {
		cfg, err := loadConfig(opts)
		if err != nil {
			return true, err
		}
		fmt.Fprint(cmd.OutOrStdout(), cfg.String())
		return true, nil
	}
	return false, nil
}
