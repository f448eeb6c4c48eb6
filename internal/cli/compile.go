package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/flexiq/internal/config"
	"github.com/roach88/flexiq/internal/engine"
	"github.com/roach88/flexiq/internal/queryir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	QueryFlags
	Count  bool   // compile the row count request instead of a select
	Output string // output file path
}

// CompilationResult is the request a query compiles to.
type CompilationResult struct {
	Resource string   `json:"resource"`
	Method   string   `json:"method"`
	Path     string   `json:"path"`
	URL      string   `json:"url"`
	Params   []Param  `json:"params"`
	PlanHash string   `json:"plan_hash"`
	Warnings []string `json:"warnings,omitempty"`
}

// Param is one query parameter of a compiled request, in request order.
type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <resource>",
		Short: "Compile a query to its request without sending it",
		Long: `Compile a query against one resource to the HTTP request it would send.

The request path and parameters are printed together with the plan hash
under which the request is journaled. Nothing is sent to the server; only
the wire-format options of the configuration are used.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	opts.QueryFlags.register(cmd)
	cmd.Flags().BoolVar(&opts.Count, "count", false, "compile the row count request")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, resource string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	criteria, err := opts.criteria(resource)
	if err != nil {
		return commandFailure(formatter, err)
	}

	// Compiling never reaches the transport.
	a := engine.New(nil, cfg.EngineOptions())

	var q queryir.Query
	switch {
	case opts.Count:
		q = a.BuildCount(resource, criteria.Filter)
	case opts.ID != "":
		q = a.BuildSelectOne(resource, opts.ID, criteria)
	default:
		q = a.BuildSelect(resource, criteria)
	}
	formatter.VerboseLog("Compiling %s query on %s", q.Method, resource)
	check := queryir.Validate(q)

	_, plan, err := a.Compile(q)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeRequest, err.Error(), nil)
	}
	hash, err := plan.Hash()
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeRequest, err.Error(), nil)
	}

	result := &CompilationResult{
		Resource: resource,
		Method:   plan.Method,
		Path:     plan.Path,
		URL:      plan.URL(),
		Params:   make([]Param, len(plan.Params)),
		PlanHash: hash,
		Warnings: check.Warnings,
	}
	for i, p := range plan.Params {
		result.Params[i] = Param{Name: p.Name, Value: p.Value}
	}

	if opts.Output != "" {
		if err := writePlanToFile(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs the compiled request.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.IsJSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "%s %s\n", result.Method, result.URL)
	if len(result.Params) > 0 {
		fmt.Fprintln(formatter.Writer)
		for _, p := range result.Params {
			fmt.Fprintf(formatter.Writer, "  %s = %s\n", p.Name, p.Value)
		}
	}
	fmt.Fprintf(formatter.Writer, "\nplan: %s\n", result.PlanHash)
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "warning: %s\n", w)
	}

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote request plan to %s\n", outputFile)
	}
	return nil
}

// writePlanToFile writes the compiled request as indented JSON.
func writePlanToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
