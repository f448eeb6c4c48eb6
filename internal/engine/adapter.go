package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/flexiq/internal/querywire"
	"github.com/roach88/flexiq/internal/store"
	"github.com/roach88/flexiq/internal/transport"
)

// Transport sends one request to the company base URL.
// Implemented by transport.Client (production) and testutil.RecordingTransport (tests).
type Transport interface {
	Send(ctx context.Context, req transport.Request) (transport.Response, error)
}

// Journal records executed requests.
// Implemented by store.Store.
type Journal interface {
	Append(ctx context.Context, e store.Entry) error
}

// IDGenerator generates unique request ids for the journal.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// Sequencer hands out strictly increasing sequence numbers.
// Implemented by Clock (production) and testutil.DeterministicClock (tests).
type Sequencer interface {
	Next() int64
}

// Options are the wire-format toggles of one FlexiBee deployment.
type Options struct {
	// CodeAsID replaces record ids with their "code:" external id in GET
	// responses.
	CodeAsID bool

	// DetailFullOnAssociations requests detail=full whenever a query
	// carries includes or relations.
	DetailFullOnAssociations bool

	// Dialect controls filter rendering.
	Dialect querywire.Dialect
}

// DefaultOptions returns the toggles the service is usually configured for.
func DefaultOptions() Options {
	return Options{
		CodeAsID:                 true,
		DetailFullOnAssociations: true,
		Dialect:                  querywire.DefaultDialect(),
	}
}

// Adapter turns query descriptions into FlexiBee requests, executes them
// through a Transport and interprets the responses.
//
// Thread-safety: Adapter holds no mutable state apart from its Sequencer
// and IDGenerator, both of which are safe for concurrent use. Transport and
// Journal implementations must be safe for concurrent use too.
type Adapter struct {
	transport Transport
	compiler  *querywire.Compiler
	opts      Options
	clock     Sequencer
	ids       IDGenerator
	journal   Journal
	logger    *slog.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithJournal records every executed request in j.
func WithJournal(j Journal) AdapterOption {
	return func(a *Adapter) {
		a.journal = j
	}
}

// WithClock replaces the logical clock (tests use a deterministic clock;
// the CLI resumes from the journal's highest seq).
func WithClock(c Sequencer) AdapterOption {
	return func(a *Adapter) {
		a.clock = c
	}
}

// WithIDGenerator replaces the request id generator.
func WithIDGenerator(g IDGenerator) AdapterOption {
	return func(a *Adapter) {
		a.ids = g
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// New creates an Adapter sending through t.
//
// Defaults: a Clock starting at 0, UUIDv7 request ids, no journal and
// slog.Default() for logging.
func New(t Transport, opts Options, options ...AdapterOption) *Adapter {
	a := &Adapter{
		transport: t,
		compiler:  querywire.NewCompiler(opts.Dialect),
		opts:      opts,
		clock:     NewClock(),
		ids:       UUIDv7Generator{},
		logger:    slog.Default(),
	}

	for _, opt := range options {
		opt(a)
	}
	return a
}

// Options returns the toggles the adapter was created with.
func (a *Adapter) Options() Options {
	return a.opts
}
