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

	// Config is a flexiq.yaml file or a directory containing one.
	// Empty searches the working directory.
	Config string

	level *slog.LevelVar
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// RootOption configures the root command.
type RootOption func(*RootOptions)

// WithLogLevel lets --verbose lower the level of the installed log
// handler to debug.
func WithLogLevel(level *slog.LevelVar) RootOption {
	return func(o *RootOptions) {
		o.level = level
	}
}

// NewRootCommand creates the root command for the flexiq CLI.
func NewRootCommand(options ...RootOption) *cobra.Command {
	opts := &RootOptions{}
	for _, opt := range options {
		opt(opts)
	}

	cmd := &cobra.Command{
		Use:   "flexiq",
		Short: "flexiq - FlexiBee query toolkit",
		Long: `Build, inspect and run queries against the FlexiBee REST API.

Queries are described with CEL filters, selections and CUE resource
mappings, compiled into a single request per query, and optionally
journaled into SQLite for later inspection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Verbose && opts.level != nil {
				opts.level.Set(slog.LevelDebug)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file or directory (default: ./flexiq.yaml)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
