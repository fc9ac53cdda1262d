package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slicer/sequences/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Sequences int                        `json:"sequences"`
	Browsers  int                        `json:"browsers"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
	Warnings  []compiler.FeedbackWarning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scene>",
		Short: "Validate a scene description",
		Long: `Validate a CUE scene description without building it.

Reports every schema and cross-reference error (unknown sequences,
incompatible index metadata, duplicate index values, bad playback settings)
and warns about proxies that feed changes back between sequences.

<scene> is a .cue file or a directory holding one CUE package.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loadResult, loadErrors := LoadScene(path, LoadModeCollectAll)
	if loadResult == nil {
		return outputValidateError(formatter, loadErrors[0])
	}

	formatter.VerboseLog("Loaded %d CUE file(s) from %s", loadResult.FileCount, path)

	result := ValidationResult{
		Valid:     len(loadErrors) == 0,
		Sequences: len(loadResult.Scene.Sequences),
		Browsers:  len(loadResult.Scene.Browsers),
		Errors:    toValidationErrors(loadErrors),
	}
	if result.Valid {
		result.Warnings = compiler.AnalyzeFeedback(loadResult.Scene)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// toValidationErrors converts loader errors to the compiler's error shape
// so compile and validation errors print the same way.
func toValidationErrors(errs []error) []compiler.ValidationError {
	out := make([]compiler.ValidationError, 0, len(errs))
	for _, err := range errs {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			field := loadErr.Field
			if field == "" {
				field = "scene"
			}
			out = append(out, compiler.ValidationError{
				Field:   field,
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    loadErr.Line(),
			})
			continue
		}
		out = append(out, compiler.ValidationError{Field: "scene", Message: err.Error(), Code: ErrCodeGeneric})
	}
	return out
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	for _, w := range result.Warnings {
		formatter.Warn("%s", w.Message)
	}
	fmt.Fprintf(formatter.Writer, "✓ Scene valid (%d sequence(s), %d browser(s))\n", result.Sequences, result.Browsers)
	return nil
}

// outputValidateError outputs an error that stopped loading altogether.
func outputValidateError(formatter *OutputFormatter, err error) error {
	code := loadErrorCode(err)
	var loadErr *LoadError
	message := err.Error()
	if errors.As(err, &loadErr) {
		message = loadErr.Message
	}
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		if err := formatter.Failure(errs[0].Code, errs[0].Message, result); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return exitErr
}
