package cli

import (
	"errors"
	"fmt"
	"io"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/flexiq/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Resources []string                   `json:"resources,omitempty"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <mapping>",
		Short: "Validate CUE resource mappings",
		Long: `Validate a CUE resource mapping file or directory.

Checks CUE syntax, compiles every resource, then checks primary
attributes, field types and associations (kinds, keys, join keys and
declared targets). All problems are reported, not just the first.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadMappings(path, LoadModeCollectAll)

	// Nothing loaded at all (missing path, no files, CUE syntax)
	if loadResult == nil && len(loadErrors) > 0 {
		var loadErr *LoadError
		if errors.As(loadErrors[0], &loadErr) {
			return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
		}
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, loadErrors[0].Error(), nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", len(loadResult.Files), path)

	validationErrors := validateAll(loadResult, loadErrors, formatter)
	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	return outputValidateSuccess(formatter, loadResult)
}

// validateAll combines compile errors with the schema checks of the
// resources that compiled.
func validateAll(result *LoadResult, loadErrors []error, formatter *OutputFormatter) []compiler.ValidationError {
	var all []compiler.ValidationError

	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			all = append(all, compiler.ValidationError{
				Field:   "load",
				Message: loadErr.Message,
				Code:    loadErr.Code,
				Line:    lineOf(loadErr.Pos),
			})
			continue
		}
		all = append(all, compiler.ValidationError{Field: "load", Message: err.Error(), Code: ErrCodeGeneric})
	}

	for _, spec := range result.Resources {
		formatter.VerboseLog("Validating resource: %s (%d association(s))", spec.Name, len(spec.Associations))
	}
	all = append(all, compiler.Validate(result.Resources)...)

	return all
}

// lineOf extracts the line number from a CUE position.
func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result *LoadResult) error {
	names := make([]string, len(result.Resources))
	for i, spec := range result.Resources {
		names[i] = spec.Name
	}

	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true, Resources: names})
	}

	fmt.Fprintf(formatter.Writer, "✓ Mapping valid: %d resource(s)\n", len(names))
	for _, name := range names {
		fmt.Fprintf(formatter.Writer, "  %s\n", name)
	}
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.IsJSON() {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateMapping validates the mapping at path without printing anything.
// An error is returned only when nothing could be loaded.
func ValidateMapping(path string) ([]compiler.ValidationError, error) {
	loadResult, loadErrors := LoadMappings(path, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	silent := &OutputFormatter{Format: "text", Writer: io.Discard}
	return validateAll(loadResult, loadErrors, silent), nil
}
