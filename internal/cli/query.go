package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/flexiq/internal/celfilter"
	"github.com/roach88/flexiq/internal/compiler"
	"github.com/roach88/flexiq/internal/config"
	"github.com/roach88/flexiq/internal/engine"
	"github.com/roach88/flexiq/internal/queryir"
	"github.com/roach88/flexiq/internal/store"
	"github.com/roach88/flexiq/internal/transport"
)

// QueryFlags are the flags describing a select, shared by compile and get.
type QueryFlags struct {
	Filter  string   // CEL expression
	Select  string   // selection in wire syntax
	Order   []string // sort keys, "-" prefix for descending
	Limit   int
	Offset  int
	ID      string   // record id; turns the select into select-one
	Mapping string   // CUE mapping file or directory
	Assoc   []string // mapped association names
	Options []string // raw name=value query parameters
}

func (f *QueryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Filter, "filter", "", `CEL filter, e.g. 'kod.startsWith("FV") && !storno'`)
	cmd.Flags().StringVar(&f.Select, "select", "", "selection, e.g. 'id,kod,polozky(id,cenaMj)'")
	cmd.Flags().StringSliceVar(&f.Order, "order", nil, "sort keys; prefix with - for descending")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum number of records (0: all)")
	cmd.Flags().IntVar(&f.Offset, "offset", 0, "number of records to skip")
	cmd.Flags().StringVar(&f.ID, "id", "", "read one record by id or external id (code:...)")
	cmd.Flags().StringVar(&f.Mapping, "mapping", "", "CUE resource mapping file or directory")
	cmd.Flags().StringSliceVar(&f.Assoc, "assoc", nil, "mapped associations to fetch (requires --mapping)")
	cmd.Flags().StringArrayVar(&f.Options, "option", nil, "raw query parameter name=value (repeatable)")
}

// criteria builds select criteria from the flags. Without --select the
// mapped default selection of resource is used.
func (f *QueryFlags) criteria(resource string) (engine.Criteria, error) {
	var c engine.Criteria

	filter, err := parseFilter(f.Filter)
	if err != nil {
		return c, err
	}
	c.Filter = filter

	var mapping *compiler.Mapping
	if f.Mapping != "" {
		mapping, err = LoadMapping(f.Mapping)
		if err != nil {
			return c, err
		}
	} else if len(f.Assoc) > 0 {
		return c, flagError("--assoc requires --mapping")
	}

	if f.Select != "" {
		sel, err := queryir.ParseSelection(f.Select)
		if err != nil {
			return c, flagError("--select: %v", err)
		}
		c.Selection = sel
	} else if mapping != nil {
		if spec, ok := mapping.Resource(resource); ok {
			c.Selection = spec.Selection.Clone()
		}
	}

	for _, o := range f.Order {
		c.Order = append(c.Order, queryir.ParseOrder(o))
	}

	if f.Limit < 0 || f.Offset < 0 {
		return c, flagError("--limit and --offset must not be negative")
	}
	if f.Limit > 0 || f.Offset > 0 {
		c.Page = &queryir.Page{Offset: f.Offset, Limit: f.Limit}
	}

	if mapping != nil {
		c.Associations, err = mapping.Associations(resource, f.Assoc)
		if err != nil {
			return c, flagError("--assoc: %v", err)
		}
	}

	for _, opt := range f.Options {
		name, value, ok := strings.Cut(opt, "=")
		if !ok || name == "" {
			return c, flagError("--option %q: expected name=value", opt)
		}
		c.AddOption(name, value)
	}
	return c, nil
}

func parseFilter(text string) (queryir.Filter, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	parser, err := celfilter.NewParser()
	if err != nil {
		return nil, fmt.Errorf("filter parser: %w", err)
	}
	filter, err := parser.Parse(text)
	if err != nil {
		return nil, flagError("--filter: %v", err)
	}
	return filter, nil
}

// flagError marks a flag value that cannot be used.
func flagError(format string, args ...any) error {
	return &LoadError{Code: ErrCodeInvalidFlag, Message: fmt.Sprintf(format, args...)}
}

// session is a configured adapter talking to the server, with the
// journal it writes to, if any.
type session struct {
	adapter *engine.Adapter
	journal *store.Store
}

func (s *session) Close() error {
	if s.journal == nil {
		return nil
	}
	return s.journal.Close()
}

// openSession loads the configuration and connects an adapter. When a
// journal is configured the adapter clock resumes after its last entry so
// seq keeps increasing across runs.
func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}
	tcfg, err := cfg.Transport()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}
	client, err := transport.New(tcfg, transport.WithLogger(slog.Default()))
	if err != nil {
		return nil, &LoadError{Code: ErrCodeConfig, Message: err.Error()}
	}

	s := &session{}
	adapterOpts := []engine.AdapterOption{engine.WithLogger(slog.Default())}
	if cfg.Journal != "" {
		st, err := store.Open(cfg.Journal)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeJournal, Message: err.Error()}
		}
		last, err := st.MaxSeq(ctx)
		if err != nil {
			st.Close()
			return nil, &LoadError{Code: ErrCodeJournal, Message: err.Error()}
		}
		s.journal = st
		adapterOpts = append(adapterOpts,
			engine.WithJournal(st),
			engine.WithClock(engine.NewClockAt(last)),
		)
	}

	slog.Debug("session opened", "base_url", client.BaseURL(), "journal", cfg.Journal)
	s.adapter = engine.New(client, cfg.EngineOptions(), adapterOpts...)
	return s, nil
}

// requestFailure reports an adapter error. A rejection by the server
// exits with ExitFailure; everything else is a command error.
func requestFailure(formatter *OutputFormatter, err error) error {
	if status, ok := engine.IsRemoteError(err); ok {
		_ = formatter.Error(ErrCodeRemote, err.Error(), map[string]int{"status": status})
		return WrapExitError(ExitFailure, "request rejected", err)
	}
	_ = formatter.Error(ErrCodeRequest, err.Error(), nil)
	return WrapExitError(ExitCommandError, "request failed", err)
}

// commandFailure reports a LoadError (or any other setup error) and
// returns the command error.
func commandFailure(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return formatter.Fail(ExitCommandError, loadErr.Code, loadErr.Message, nil)
	}
	return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
}
