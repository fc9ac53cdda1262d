package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/slicer/sequences/internal/engine"
	"github.com/slicer/sequences/internal/ir"
)

const defaultTickInterval = 20 * time.Millisecond

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Browsers []string      // browsers to start; all when empty
	Duration time.Duration // stop after this long; 0 runs until interrupted
	Tick     time.Duration // playback tick interval; 0 uses the environment default
	Watch    bool
	Save     string // database to save the workspace to on exit
	Trace    bool

	// Clock overrides the wall clock (for testing).
	Clock engine.WallClock
}

// PlayResult is what play reports when it stops.
type PlayResult struct {
	Workspace WorkspaceSummary    `json:"workspace"`
	Reloads   int                 `json:"reloads"`
	Trace     []engine.TraceEvent `json:"trace,omitempty"`
	Saved     string              `json:"saved,omitempty"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play <scene>",
		Short: "Build a scene and play its browsers",
		Long: `Build a scene description and start playback on its browsers.

The engine runs its single-writer loop until interrupted or until
--duration elapses. With --watch, edits to the scene files rebuild the
workspace and restart playback; edits that do not validate are skipped.

Example:
  seqbrowse play ./scene.cue --duration 5s
  seqbrowse play ./scenes --browser review --watch --save ./session.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Browsers, "browser", nil, "browser to play (repeatable, default all)")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (default: until interrupted)")
	cmd.Flags().DurationVar(&opts.Tick, "tick", 0, "playback tick interval (default $SEQBROWSE_TICK_INTERVAL)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "rebuild when scene files change")
	cmd.Flags().StringVar(&opts.Save, "save", "", "save the workspace to this database on exit")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print pull, push and snapshot events")

	return cmd
}

func runPlay(opts *PlayOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, err := loadValidScene(path)
	if err != nil {
		code := loadErrorCode(err)
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scene", err)
	}
	desc := loadResult.Scene

	tick := opts.Tick
	if tick <= 0 {
		tick = opts.Config.TickInterval
	}
	if tick <= 0 {
		tick = defaultTickInterval
	}

	result := PlayResult{}
	engineOpts := []engine.Option{engine.WithTickInterval(tick)}
	if opts.Clock != nil {
		engineOpts = append(engineOpts, engine.WithClock(opts.Clock))
	}
	if opts.Trace {
		engineOpts = append(engineOpts, engine.WithTrace(func(ev engine.TraceEvent) {
			result.Trace = append(result.Trace, ev)
			formatter.Printf("[%d] %s %s selected=%d index_value=%q\n",
				ev.Seq, ev.Type, ev.Browser, ev.Selected, ev.IndexValue)
		}))
	}
	eng := engine.New(engineOpts...)

	if err := eng.Build(desc); err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to build scene", err)
	}
	browsers, err := playTargets(eng, opts.Browsers)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid browser", err)
	}
	startPlayback(eng, browsers)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()
	if opts.Duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if opts.Watch {
		watcher, err := newSceneWatcher(path, func(next ir.Scene) {
			eng.Enqueue(engine.Command{
				Type: engine.CommandApply,
				Apply: func(e *engine.Engine) error {
					if err := rebuild(e, next, opts.Browsers); err != nil {
						return err
					}
					desc = next
					result.Reloads++
					return nil
				},
			})
		})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to watch scene", err)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Error("scene watcher stopped", "error", err)
			}
		}()
		formatter.VerboseLog("Watching %s for changes", path)
	}

	slog.Info("playback starting", "scene", path, "browsers", len(browsers), "tick_interval", tick)
	formatter.VerboseLog("Playing %d browser(s). Press Ctrl-C to stop.", len(browsers))

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	// Run has returned, so the workspace can be read from here.
	result.Workspace = summarize(eng)

	if opts.Save != "" {
		if _, err := saveWorkspace(context.WithoutCancel(ctx), eng, desc, opts.Save); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to save workspace", err)
		}
		result.Saved = opts.Save
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	writeSummary(formatter.Writer, result.Workspace)
	if result.Reloads > 0 {
		fmt.Fprintf(formatter.Writer, "Reloaded %d time(s)\n", result.Reloads)
	}
	if result.Saved != "" {
		fmt.Fprintf(formatter.Writer, "Saved workspace to %s\n", result.Saved)
	}
	return nil
}

// playTargets resolves browser names, or returns every browser when none
// are given.
func playTargets(e *engine.Engine, names []string) ([]string, error) {
	if len(names) == 0 {
		var all []string
		for _, b := range e.Browsers() {
			all = append(all, b.Name())
		}
		return all, nil
	}
	for _, name := range names {
		if e.Browser(name) == nil {
			return nil, engine.NewInvalidBrowserError(name)
		}
	}
	return names, nil
}

func startPlayback(e *engine.Engine, browsers []string) {
	for _, name := range browsers {
		if err := e.Process(engine.Command{Type: engine.CommandSetPlayback, BrowserID: name, Enabled: true}); err != nil {
			slog.Warn("could not start playback", "browser", name, "error", err)
		}
	}
}

// rebuild replaces the workspace with a freshly built scene and restarts
// playback. It runs on the engine loop. The scene is built into a scratch
// engine first, so a scene that fails to build leaves the workspace as it
// was.
func rebuild(e *engine.Engine, desc ir.Scene, names []string) error {
	if err := engine.New().Build(desc); err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	e.Reset()
	if err := e.Build(desc); err != nil {
		return fmt.Errorf("rebuild: %w", err)
	}
	browsers, err := playTargets(e, names)
	if err != nil {
		slog.Warn("browser missing after reload, playing all", "error", err)
		browsers, _ = playTargets(e, nil)
	}
	startPlayback(e, browsers)
	return nil
}
