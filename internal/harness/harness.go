package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/roach88/flexiq/internal/assoc"
	"github.com/roach88/flexiq/internal/celfilter"
	"github.com/roach88/flexiq/internal/compiler"
	"github.com/roach88/flexiq/internal/engine"
	"github.com/roach88/flexiq/internal/ir"
	"github.com/roach88/flexiq/internal/queryir"
	"github.com/roach88/flexiq/internal/store"
	"github.com/roach88/flexiq/internal/testutil"
	"github.com/roach88/flexiq/internal/transport"
)

// Harness is the test execution engine.
// It runs scenarios against a recording transport with a deterministic
// clock and request ids, journaling into an in-memory store.
type Harness struct {
	store   *store.Store
	adapter *engine.Adapter
	replies *testutil.RecordingTransport
	tracer  *tracingTransport
	clock   *testutil.DeterministicClock
	mapping *compiler.Mapping
	filters *celfilter.Parser
	logger  *slog.Logger
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger for harness and adapter diagnostics.
// Runs are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// scenarioError marks a problem with the scenario itself (a bad filter,
// an unmapped association) as opposed to an adapter outcome.
type scenarioError struct {
	err error
}

func (e *scenarioError) Error() string { return e.err.Error() }
func (e *scenarioError) Unwrap() error { return e.err }

func invalid(format string, args ...any) error {
	return &scenarioError{err: fmt.Errorf(format, args...)}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load and validate the mapping, if any
// 2. Build an adapter over a recording transport
// 3. Run flow steps, queueing each step's replies and checking expect clauses
// 4. Evaluate assertions against the trace and journal
//
// An error is returned when the scenario cannot be executed at all;
// failed expectations are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&cfg)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h, err := newHarness(scenario, st, cfg.logger)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	result := NewResult()
	h.tracer.result = result

	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
	}

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

func newHarness(scenario *Scenario, st *store.Store, logger *slog.Logger) (*Harness, error) {
	h := &Harness{
		store:   st,
		replies: testutil.NewRecordingTransport(),
		clock:   testutil.NewDeterministicClock(),
		logger:  logger,
	}

	if scenario.Mapping != "" {
		m, err := compiler.LoadMapping(scenario.Mapping)
		if err != nil {
			return nil, fmt.Errorf("failed to load mapping: %w", err)
		}
		if errs := compiler.Validate(m.Resources); len(errs) > 0 {
			return nil, fmt.Errorf("invalid mapping: %w", errs[0])
		}
		h.mapping = m
	}

	filters, err := celfilter.NewParser()
	if err != nil {
		return nil, fmt.Errorf("failed to create filter parser: %w", err)
	}
	h.filters = filters

	options := engine.DefaultOptions()
	if o := scenario.Options; o != nil {
		if o.CodeAsID != nil {
			options.CodeAsID = *o.CodeAsID
		}
		if o.DetailFullOnAssociations != nil {
			options.DetailFullOnAssociations = *o.DetailFullOnAssociations
		}
		if o.LikeWithSimilar != nil {
			options.Dialect.LikeWithSimilar = *o.LikeWithSimilar
		}
	}

	h.tracer = &tracingTransport{next: h.replies, clock: h.clock}
	h.adapter = engine.New(h.tracer, options,
		engine.WithJournal(st),
		engine.WithClock(h.clock),
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator("req")),
		engine.WithLogger(logger),
	)
	return h, nil
}

// executeStep runs one flow step and validates its expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, step FlowStep, result *Result) error {
	for _, r := range step.Replies {
		reply, err := toReply(r)
		if err != nil {
			return fmt.Errorf("reply: %w", err)
		}
		h.replies.Queue(reply)
	}

	h.tracer.step = i
	h.tracer.operation = step.Operation

	value, err := h.invoke(ctx, step)
	var se *scenarioError
	if errors.As(err, &se) {
		return se.err
	}

	kind := ErrorKind(err)
	message := ""
	if err != nil {
		message = err.Error()
	}
	result.AddResultTrace(i, step.Operation, value, kind, message)

	if unused := h.replies.Drain(); unused > 0 {
		result.AddError(fmt.Sprintf("flow[%d] %s: %d queued replies were not used", i, step.Operation, unused))
	}

	h.checkExpect(i, step, value, err, result)

	h.logger.Info("flow step completed",
		"step", i,
		"operation", step.Operation,
		"resource", step.Resource,
		"error", kind,
	)
	return nil
}

// checkExpect compares a step outcome with its expect clause. A step
// without an expect clause must succeed.
func (h *Harness) checkExpect(i int, step FlowStep, value ir.Value, err error, result *Result) {
	kind := ErrorKind(err)
	exp := step.Expect
	if exp == nil {
		if err != nil {
			result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error: %v", i, step.Operation, err))
		}
		return
	}

	if exp.Error != kind {
		actual := "success"
		if err != nil {
			actual = fmt.Sprintf("%s (%v)", kind, err)
		}
		want := exp.Error
		if want == "" {
			want = "success"
		}
		result.AddError(fmt.Sprintf("flow[%d] %s: expected %s, got %s", i, step.Operation, want, actual))
		return
	}

	if exp.Status != 0 {
		status, _ := engine.IsRemoteError(err)
		if status != exp.Status {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected status %d, got %d", i, step.Operation, exp.Status, status))
		}
	}

	if exp.Result != nil && err == nil {
		actual := ir.ToGo(value)
		if !matchValue(actual, exp.Result) {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected result %v, got %v", i, step.Operation, exp.Result, actual))
		}
	}
}

// invoke runs the adapter operation named by step.
func (h *Harness) invoke(ctx context.Context, step FlowStep) (ir.Value, error) {
	switch step.Operation {
	case OpSelect:
		c, err := h.criteria(step)
		if err != nil {
			return nil, err
		}
		records, err := h.adapter.Select(ctx, step.Resource, c)
		if err != nil {
			return nil, err
		}
		out := make(ir.List, len(records))
		for i, r := range records {
			out[i] = r
		}
		return out, nil

	case OpSelectOne:
		c, err := h.criteria(step)
		if err != nil {
			return nil, err
		}
		record, found, err := h.adapter.SelectOne(ctx, step.Resource, step.ID, c)
		if err != nil || !found {
			return ir.Null{}, err
		}
		return record, nil

	case OpCount:
		filter, err := h.filter(step.Filter)
		if err != nil {
			return nil, err
		}
		n, err := h.adapter.Count(ctx, step.Resource, filter)
		return ir.Int(n), err

	case OpInsert:
		values, err := h.values(step)
		if err != nil {
			return nil, err
		}
		primary := ""
		if spec, ok := h.resource(step.Resource); ok {
			primary = spec.Primary
		}
		return h.adapter.Insert(ctx, step.Resource, values, primary)

	case OpUpdate:
		filter, err := h.filter(step.Filter)
		if err != nil {
			return nil, err
		}
		values, err := h.record(step.Resource, step.Values)
		if err != nil {
			return nil, err
		}
		n, err := h.adapter.Update(ctx, step.Resource, filter, values)
		return ir.Int(n), err

	case OpUpdateOne:
		values, err := h.record(step.Resource, step.Values)
		if err != nil {
			return nil, err
		}
		primary, err := ir.FromGo(step.Primary)
		if err != nil {
			return nil, invalid("primary: %v", err)
		}
		ok, err := h.adapter.UpdateOne(ctx, step.Resource, step.Column, primary, values)
		return ir.Bool(ok), err

	case OpDelete:
		filter, err := h.filter(step.Filter)
		if err != nil {
			return nil, err
		}
		n, err := h.adapter.Delete(ctx, step.Resource, filter)
		return ir.Int(n), err

	case OpDeleteOne:
		return ir.Null{}, h.adapter.DeleteOne(ctx, step.Resource, step.ID)

	case OpLink:
		return ir.Null{}, h.link(ctx, step)

	default:
		return nil, invalid("unknown operation %q", step.Operation)
	}
}

func (h *Harness) link(ctx context.Context, step FlowStep) error {
	if h.mapping == nil {
		return invalid("link requires a mapping")
	}
	assocs, err := h.mapping.Associations(step.Resource, []string{step.Association})
	if err != nil {
		return invalid("%v", err)
	}
	primary, err := ir.FromGo(step.Primary)
	if err != nil {
		return invalid("primary: %v", err)
	}
	keys := make([]ir.Value, len(step.Keys))
	for i, k := range step.Keys {
		keys[i], err = ir.FromGo(k)
		if err != nil {
			return invalid("keys[%d]: %v", i, err)
		}
	}
	action := engine.LinkAdd
	if step.Action != "" {
		action = engine.LinkAction(step.Action)
	}
	return h.adapter.ModifyManyToMany(ctx, assocs[0], primary, keys, action)
}

// criteria builds select criteria from a step. Without an explicit
// selection the mapped default selection is used.
func (h *Harness) criteria(step FlowStep) (engine.Criteria, error) {
	var c engine.Criteria

	filter, err := h.filter(step.Filter)
	if err != nil {
		return c, err
	}
	c.Filter = filter

	if step.Select != "" {
		sel, err := queryir.ParseSelection(step.Select)
		if err != nil {
			return c, invalid("select: %v", err)
		}
		c.Selection = sel
	} else if spec, ok := h.resource(step.Resource); ok {
		c.Selection = spec.Selection.Clone()
	}

	for _, o := range step.Order {
		c.Order = append(c.Order, queryir.ParseOrder(o))
	}

	if step.Limit != nil || step.Offset != nil {
		page := &queryir.Page{}
		if step.Limit != nil {
			page.Limit = *step.Limit
		}
		if step.Offset != nil {
			page.Offset = *step.Offset
		}
		c.Page = page
	}

	if len(step.Assoc) > 0 {
		if h.mapping == nil {
			return c, invalid("assoc requires a mapping")
		}
		assocs, err := h.mapping.Associations(step.Resource, step.Assoc)
		if err != nil {
			return c, invalid("%v", err)
		}
		c.Associations = assocs
	}

	for _, name := range sortedKeys(step.Options) {
		c.AddOption(name, step.Options[name])
	}
	return c, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (h *Harness) filter(text string) (queryir.Filter, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	f, err := h.filters.Parse(text)
	if err != nil {
		return nil, invalid("filter: %v", err)
	}
	return f, nil
}

func (h *Harness) resource(name string) (queryir.ResourceSpec, bool) {
	if h.mapping == nil {
		return queryir.ResourceSpec{}, false
	}
	return h.mapping.Resource(name)
}

// record converts step values into a PUT record using the mapped
// attribute types. Text in date and datetime attributes is parsed first,
// as RFC 3339 or a plain date, so it is sent in the service's format.
func (h *Harness) record(resource string, values map[string]any) (ir.Object, error) {
	spec, _ := h.resource(resource)
	typed := make(map[string]any, len(values))
	for name, v := range values {
		typed[name] = v
		s, ok := v.(string)
		if !ok {
			continue
		}
		switch spec.Fields[name] {
		case queryir.FieldDate, queryir.FieldDateTime:
			t, err := parseTime(s)
			if err != nil {
				return nil, invalid("values: %s: %v", name, err)
			}
			typed[name] = t
		}
	}
	out, err := engine.UnmapRecord(spec.Fields, typed)
	if err != nil {
		return nil, invalid("values: %v", err)
	}
	return out, nil
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(engine.DateFormat, s)
}

func (h *Harness) values(step FlowStep) (ir.Value, error) {
	if len(step.Records) == 0 {
		return h.record(step.Resource, step.Values)
	}
	out := make(ir.List, len(step.Records))
	for i, r := range step.Records {
		rec, err := h.record(step.Resource, r)
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

// toReply converts a reply clause into a canned transport reply. A 404
// is reported the way transport.Client reports it.
func toReply(r ReplyClause) (testutil.Reply, error) {
	status := r.Status
	if status == 0 {
		status = http.StatusOK
	}
	body := ir.Object{}
	if r.Body != nil {
		v, err := ir.FromGo(r.Body)
		if err != nil {
			return testutil.Reply{}, err
		}
		body = v.(ir.Object)
	}
	reply := testutil.Reply{
		Status:  status,
		Payload: ir.NewObject(ir.O(assoc.EnvelopeRoot, body)),
	}
	if status == http.StatusNotFound {
		reply.Err = transport.ErrRecordNotFound
	}
	return reply, nil
}

// Error kinds reported in traces and matched by expect clauses.
const (
	KindUnsupportedOperation = "unsupported_operation"
	KindDateConversion       = "date_conversion"
	KindUnexpectedResponse   = "unexpected_response"
	KindUnsupportedKind      = "unsupported_kind"
	KindUnexpectedJoinKey    = "unexpected_join_key"
	KindRemote               = "remote"
	KindCanceled             = "canceled"
	KindOther                = "error"
)

// ErrorKind classifies an adapter error. nil maps to "".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var ee *engine.Error
	switch {
	case engine.IsUnsupportedOperation(err):
		return KindUnsupportedOperation
	case engine.IsDateConversion(err):
		return KindDateConversion
	case errors.As(err, &ee) && ee.Code == engine.ErrCodeUnexpectedResponse:
		return KindUnexpectedResponse
	case assoc.IsUnsupportedKind(err):
		return KindUnsupportedKind
	case assoc.IsUnexpectedJoinKey(err):
		return KindUnexpectedJoinKey
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	if _, ok := engine.IsRemoteError(err); ok {
		return KindRemote
	}
	return KindOther
}

// tracingTransport records every request in the current Result before
// handing it to the recording transport.
type tracingTransport struct {
	next      engine.Transport
	clock     *testutil.DeterministicClock
	result    *Result
	step      int
	operation string
}

func (t *tracingTransport) Send(ctx context.Context, req transport.Request) (transport.Response, error) {
	resp, err := t.next.Send(ctx, req)
	if t.result != nil {
		t.result.AddRequestTrace(t.step, t.operation, req.Method, req.URL, req.Body, resp.Status, t.clock.Current())
	}
	return resp, err
}
