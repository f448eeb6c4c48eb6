package harness

import "github.com/roach88/flexiq/internal/ir"

// Trace event types.
const (
	EventRequest = "request"
	EventResult  = "result"
)

// TraceEvent is either a request sent to the server or the outcome of a
// flow step.
type TraceEvent struct {
	Type string `json:"type"` // "request" or "result"

	// Step is the index of the flow step that produced the event.
	Step      int    `json:"step"`
	Operation string `json:"operation,omitempty"`

	// Request fields. Seq is the journal sequence number.
	Method string   `json:"method,omitempty"`
	URL    string   `json:"url,omitempty"`
	Body   ir.Value `json:"body,omitempty"`
	Status int      `json:"status,omitempty"`
	Seq    int64    `json:"seq,omitempty"`

	// Result fields. Error holds the error kind; Message the full text.
	Value   ir.Value `json:"value,omitempty"`
	Error   string   `json:"error,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains all requests and step results in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Requests returns the request events of the trace.
func (r *Result) Requests() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == EventRequest {
			out = append(out, e)
		}
	}
	return out
}

// AddRequestTrace adds a sent request to the trace.
func (r *Result) AddRequestTrace(step int, operation, method, url string, body ir.Value, status int, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:      EventRequest,
		Step:      step,
		Operation: operation,
		Method:    method,
		URL:       url,
		Body:      body,
		Status:    status,
		Seq:       seq,
	})
}

// AddResultTrace adds a step outcome to the trace.
func (r *Result) AddResultTrace(step int, operation string, value ir.Value, errKind, message string) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:      EventResult,
		Step:      step,
		Operation: operation,
		Value:     value,
		Error:     errKind,
		Message:   message,
	})
}
