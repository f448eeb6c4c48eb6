package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flexiq/internal/ir"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	*RootOptions
	QueryFlags
}

// GetResult holds the records returned by a select.
type GetResult struct {
	Resource string `json:"resource"`
	Count    int    `json:"count"`
	Records  []any  `json:"records"`
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "get <resource>",
		Short: "Select records from the server",
		Long: `Select records of one resource from the server configured in flexiq.yaml.

Records are filtered with a CEL expression, narrowed with a selection,
ordered and paged. Mapped associations are fetched in the same request
and attached to each record under their property name.

With --id a single record is read; a missing record exits with status 1.
Text output prints one JSON record per line.`,
		Example: `  flexiq get adresar --filter 'kod.startsWith("F")' --select id,kod,nazev
  flexiq get faktura-vydana --mapping mapping/ --assoc company --limit 10
  flexiq get adresar --id code:FIRMA`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, args[0], cmd)
		},
	}

	opts.QueryFlags.register(cmd)

	return cmd
}

func runGet(opts *GetOptions, resource string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	criteria, err := opts.criteria(resource)
	if err != nil {
		return commandFailure(formatter, err)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, opts.RootOptions)
	if err != nil {
		return commandFailure(formatter, err)
	}
	defer s.Close()

	var records []ir.Object
	if opts.ID != "" {
		record, found, err := s.adapter.SelectOne(ctx, resource, opts.ID, criteria)
		if err != nil {
			return requestFailure(formatter, err)
		}
		if !found {
			return formatter.Fail(ExitFailure, ErrCodeNotFound, fmt.Sprintf("record not found: %s/%s", resource, opts.ID), nil)
		}
		records = []ir.Object{record}
	} else {
		records, err = s.adapter.Select(ctx, resource, criteria)
		if err != nil {
			return requestFailure(formatter, err)
		}
	}
	formatter.VerboseLog("Selected %d record(s) from %s", len(records), resource)

	return outputRecords(formatter, resource, records)
}

// outputRecords prints records as one JSON document per line, or as a
// GetResult in JSON mode.
func outputRecords(formatter *OutputFormatter, resource string, records []ir.Object) error {
	if formatter.IsJSON() {
		result := GetResult{
			Resource: resource,
			Count:    len(records),
			Records:  make([]any, len(records)),
		}
		for i, rec := range records {
			result.Records[i] = ir.ToGo(rec)
		}
		return formatter.Success(result)
	}

	for _, rec := range records {
		data, err := ir.Marshal(rec)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("encoding record: %v", err), nil)
		}
		fmt.Fprintln(formatter.Writer, string(data))
	}
	return nil
}
