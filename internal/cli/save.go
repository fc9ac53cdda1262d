package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slicer/sequences/internal/engine"
	"github.com/slicer/sequences/internal/store"
)

// SaveOptions holds flags for the save command.
type SaveOptions struct {
	*RootOptions
	Database string
}

// SaveResult reports what was written.
type SaveResult struct {
	Database string             `json:"database"`
	Counts   map[store.Kind]int `json:"counts"`
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <scene>",
		Short: "Build a scene and save the workspace to SQLite",
		Long: `Build a scene description into a workspace and save it, without
playing it, to a SQLite database. Any previous workspace in the database
is replaced.

Example:
  seqbrowse save ./scene.cue --db ./session.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $SEQBROWSE_DB)")

	return cmd
}

func runSave(opts *SaveOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.Config.DB
	}
	if dbPath == "" {
		_ = formatter.Error(ErrCodeGeneric, "no database given: use --db or SEQBROWSE_DB", nil)
		return NewExitError(ExitCommandError, "no database given")
	}

	loadResult, err := loadValidScene(path)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scene", err)
	}

	eng := engine.New()
	if err := eng.Build(loadResult.Scene); err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to build scene", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	counts, err := saveWorkspace(ctx, eng, loadResult.Scene, dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to save workspace", err)
	}

	result := SaveResult{Database: dbPath, Counts: counts}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Saved %d sequence(s), %d item(s), %d browser(s), %d node(s) to %s\n",
		counts[store.KindSequence], counts[store.KindItem], counts[store.KindBrowser], counts[store.KindNode], dbPath)
	return nil
}
