package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CountOptions holds flags for the count command.
type CountOptions struct {
	*RootOptions
	Filter string
}

// CountResult is the number of records matching a filter.
type CountResult struct {
	Resource string `json:"resource"`
	Filter   string `json:"filter,omitempty"`
	Count    int    `json:"count"`
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <resource>",
		Short: "Count records on the server",
		Long: `Count the records of one resource matching an optional CEL filter.

The count is read from the row count the server reports for a one-row
select, so no records are transferred.`,
		Example:       `  flexiq count faktura-vydana --filter 'datVyst >= "2024-01-01"'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "CEL filter")

	return cmd
}

func runCount(opts *CountOptions, resource string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	filter, err := parseFilter(opts.Filter)
	if err != nil {
		return commandFailure(formatter, err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return commandFailure(formatter, err)
	}
	defer s.Close()

	n, err := s.adapter.Count(ctx, resource, filter)
	if err != nil {
		return requestFailure(formatter, err)
	}

	if formatter.IsJSON() {
		return formatter.Success(CountResult{Resource: resource, Filter: opts.Filter, Count: n})
	}
	fmt.Fprintln(formatter.Writer, n)
	return nil
}
