package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/flexiq/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Resource string // optional - filter to one resource
	Plan     string // optional - filter to one plan hash
	ID       string // optional - show a single entry with its body
	Failed   bool
	Limit    int
}

// TraceResult holds the journal timeline and its statistics.
type TraceResult struct {
	Timeline []store.Entry `json:"timeline"`
	Stats    TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for a timeline.
type TraceStats struct {
	Total     int            `json:"total"`
	Failed    int            `json:"failed"`
	Plans     int            `json:"plans"`
	Resources map[string]int `json:"resources"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect the request journal",
		Long: `Show the requests recorded in a journal database, in execution order.

Each line shows the logical sequence number, the request and the
response status. Requests sharing a plan hash had the same method, path
and parameters.

Examples:
  flexiq trace --db ./flexiq.db
  flexiq trace --db ./flexiq.db --resource adresar --failed
  flexiq trace --db ./flexiq.db --id 01928f3e-...
  flexiq trace --db ./flexiq.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Resource, "resource", "", "filter to one resource")
	cmd.Flags().StringVar(&opts.Plan, "plan", "", "filter to one plan hash")
	cmd.Flags().StringVar(&opts.ID, "id", "", "show a single entry")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only show failed requests")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of entries (0: all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	ctx := cmd.Context()

	if opts.Limit < 0 {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidFlag, "--limit must not be negative", nil)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, err.Error(), nil)
	}
	defer st.Close()

	if opts.ID != "" {
		entry, err := st.ReadEntry(ctx, opts.ID)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeNotFound, err.Error(), nil)
		}
		return outputEntry(formatter, entry)
	}

	entries, err := st.ReadEntries(ctx, store.Filter{
		Resource:   opts.Resource,
		PlanHash:   opts.Plan,
		FailedOnly: opts.Failed,
		Limit:      opts.Limit,
	})
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, err.Error(), nil)
	}
	formatter.VerboseLog("Read %d entries from %s", len(entries), opts.Database)

	result := TraceResult{
		Timeline: entries,
		Stats:    traceStats(entries),
	}
	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, result)
}

func traceStats(entries []store.Entry) TraceStats {
	stats := TraceStats{
		Total:     len(entries),
		Resources: make(map[string]int),
	}
	plans := make(map[string]struct{})
	for _, e := range entries {
		if failed(e) {
			stats.Failed++
		}
		plans[e.PlanHash] = struct{}{}
		stats.Resources[e.Resource]++
	}
	stats.Plans = len(plans)
	return stats
}

// failed matches the journal's FailedOnly filter.
func failed(e store.Entry) bool {
	return e.Error != "" || (e.Status != 200 && e.Status != 201)
}

func outputTraceText(formatter *OutputFormatter, result TraceResult) error {
	w := formatter.Writer

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No requests found.")
		return nil
	}

	fmt.Fprintln(w, "Timeline:")
	for _, e := range result.Timeline {
		fmt.Fprintf(w, "  [%d] %s %s → %s\n", e.Seq, e.Method, e.URL, statusText(e))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Stats:")
	fmt.Fprintf(w, "  Requests: %d (%d failed)\n", result.Stats.Total, result.Stats.Failed)
	fmt.Fprintf(w, "  Distinct plans: %d\n", result.Stats.Plans)

	resources := make([]string, 0, len(result.Stats.Resources))
	for r := range result.Stats.Resources {
		resources = append(resources, r)
	}
	sort.Strings(resources)
	for _, r := range resources {
		fmt.Fprintf(w, "  %s: %d\n", r, result.Stats.Resources[r])
	}
	return nil
}

func outputEntry(formatter *OutputFormatter, e store.Entry) error {
	if formatter.IsJSON() {
		return formatter.Success(e)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "id:        %s\n", e.ID)
	fmt.Fprintf(w, "seq:       %d\n", e.Seq)
	fmt.Fprintf(w, "operation: %s %s\n", e.Operation, e.Resource)
	fmt.Fprintf(w, "request:   %s %s\n", e.Method, e.URL)
	fmt.Fprintf(w, "plan:      %s\n", e.PlanHash)
	fmt.Fprintf(w, "status:    %s\n", statusText(e))
	if e.Body != "" {
		fmt.Fprintf(w, "body:      %s\n", e.Body)
	}
	return nil
}

func statusText(e store.Entry) string {
	switch {
	case e.Error != "" && e.Status != 0:
		return fmt.Sprintf("%d (%s)", e.Status, e.Error)
	case e.Error != "":
		return e.Error
	default:
		return fmt.Sprintf("%d", e.Status)
	}
}
