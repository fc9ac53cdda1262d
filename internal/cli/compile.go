package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/slicer/sequences/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the compiled scene plus its content hash.
type CompilationResult struct {
	Scene ir.Scene `json:"scene"`
	Hash  string   `json:"hash"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	SequenceCount int
	ItemCount     int
	BrowserCount  int
	EntryCount    int // synchronized entries across all browsers
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <scene>",
		Short: "Compile a scene description to canonical JSON",
		Long: `Compile a CUE scene description to its canonical JSON form.

The output is byte-stable for equal descriptions, and its hash is the one
"save" stores with a session.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadScene(path, LoadModeCollectAll)
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}
	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loadResult.FileCount, path)

	desc := loadResult.Scene
	for _, seq := range desc.Sequences {
		formatter.VerboseLog("Compiled sequence: %s (%d item(s))", seq.Name, len(seq.Items))
	}
	for _, b := range desc.Browsers {
		formatter.VerboseLog("Compiled browser: %s", b.Name)
	}

	canonical, err := ir.MarshalCanonical(desc.Object())
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, fmt.Sprintf("encoding scene: %v", err))
	}
	hash, err := ir.SceneHash(desc)
	if err != nil {
		return outputCompileError(formatter, ErrCodeGeneric, err.Error())
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, canonical, 0644); err != nil {
			return outputCompileError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	result := &CompilationResult{Scene: desc, Hash: hash}
	return outputCompileSuccess(formatter, result, calculateStats(desc), opts.Output)
}

// calculateStats computes summary statistics from a compiled scene.
func calculateStats(desc ir.Scene) CompilationStats {
	stats := CompilationStats{
		SequenceCount: len(desc.Sequences),
		BrowserCount:  len(desc.Browsers),
	}
	for _, seq := range desc.Sequences {
		stats.ItemCount += len(seq.Items)
	}
	for _, b := range desc.Browsers {
		stats.EntryCount += len(b.Synchronized)
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d sequence(s), %d browser(s)\n\n", stats.SequenceCount, stats.BrowserCount)

	if len(result.Scene.Sequences) > 0 {
		fmt.Fprintln(w, "Sequences:")
		for _, seq := range result.Scene.Sequences {
			fmt.Fprintf(w, "  %s: %d item(s), index %s\n", seq.Name, len(seq.Items), indexSummary(seq))
		}
		fmt.Fprintln(w)
	}

	if len(result.Scene.Browsers) > 0 {
		fmt.Fprintln(w, "Browsers:")
		for _, b := range result.Scene.Browsers {
			fmt.Fprintf(w, "  %s: master %s, %d synchronized\n", b.Name, b.Master, len(b.Synchronized))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Hash: %s\n", result.Hash)
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote canonical JSON to %s\n", outputFile)
	}
	return nil
}

// indexSummary renders index metadata with the sequence defaults filled in.
func indexSummary(seq ir.SequenceSpec) string {
	name, unit, typ := seq.IndexName, seq.IndexUnit, seq.IndexType
	if name == "" {
		name = "time"
	}
	if unit == "" {
		unit = "s"
	}
	if typ == "" {
		typ = "numeric"
	}
	return fmt.Sprintf("%s [%s, %s]", name, unit, typ)
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputCompileErrors outputs every error that stopped compilation.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	exitErr := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		code, message := parseLoadError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}
	return exitErr
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Field != "" {
			return loadErr.Code, loadErr.Field + ": " + loadErr.Message
		}
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}
