package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config is filled from the environment before any command runs.
	Config Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the seqbrowse CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "seqbrowse",
		Short: "seqbrowse - browse, play back and record node sequences",
		Long: `seqbrowse loads CUE scene descriptions of sequences and sequence browsers,
plays them back, records into them and persists whole sessions to SQLite.

Environment defaults:
  SEQBROWSE_DB             database path (default seqbrowse.db)
  SEQBROWSE_LOG_LEVEL      debug, info, warn or error (default info)
  SEQBROWSE_TICK_INTERVAL  playback tick interval (default 20ms)
  SEQBROWSE_FORMAT         text or json (default text)`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(opts, cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setup loads the environment config, resolves the output format and
// installs the default logger.
func setup(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := LoadConfig()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid environment", err)
	}
	opts.Config = cfg

	if f := cmd.Flag("format"); f == nil || !f.Changed {
		opts.Format = cfg.Format
	}
	if !isValidFormat(opts.Format) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
	}

	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid environment", err)
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
