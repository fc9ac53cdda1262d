package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/slicer/sequences/internal/engine"
	"github.com/slicer/sequences/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Database string
}

// InspectResult describes a saved workspace.
type InspectResult struct {
	Database  string             `json:"database"`
	SceneHash string             `json:"scene_hash,omitempty"`
	Counts    map[store.Kind]int `json:"counts"`
	Workspace WorkspaceSummary   `json:"workspace"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the workspace saved in a database",
		Long: `Load the workspace saved in a SQLite database and print its sequences
and browsers, including each browser's selected item.

Example:
  seqbrowse inspect --db ./session.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $SEQBROWSE_DB)")

	return cmd
}

func runInspect(opts *InspectOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.Config.DB
	}
	// Opening would create an empty database; refuse instead.
	if _, err := os.Stat(dbPath); err != nil {
		msg := fmt.Sprintf("database not found: %s", dbPath)
		_ = formatter.Error(ErrCodeNotFound, msg, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", ErrCodeNotFound, msg))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(dbPath)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	snap, err := st.Load(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load workspace", err)
	}
	counts, err := st.Counts(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to count objects", err)
	}

	eng := engine.New()
	if err := eng.Import(snap); err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to import workspace", err)
	}

	result := InspectResult{
		Database:  dbPath,
		SceneHash: snap.Meta[engine.MetaSceneHash],
		Counts:    counts,
		Workspace: summarize(eng),
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Database: %s\n", dbPath)
	if result.SceneHash != "" {
		fmt.Fprintf(w, "Scene hash: %s\n", result.SceneHash)
	}
	writeSummary(w, result.Workspace)
	return nil
}
