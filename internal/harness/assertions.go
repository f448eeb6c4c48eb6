package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/flexiq/internal/ir"
	"github.com/roach88/flexiq/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nRequests sent:\n")
		n := 0
		for _, event := range e.Trace {
			if event.Type == EventRequest {
				n++
				fmt.Fprintf(&buf, "  [%d] %s %s\n", n, event.Method, event.URL)
			}
		}
	}

	return buf.String()
}

// assertRequestContains checks that a request with the given URL (and
// method and body, when set) was sent. Bodies use subset semantics.
func assertRequestContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type != EventRequest || event.URL != assertion.URL {
			continue
		}
		if assertion.Method != "" && !strings.EqualFold(event.Method, assertion.Method) {
			continue
		}
		if len(assertion.Body) > 0 && !matchValue(ir.ToGo(event.Body), assertion.Body) {
			continue
		}
		return nil
	}

	expected := assertion.URL
	if assertion.Method != "" {
		expected = strings.ToUpper(assertion.Method) + " " + expected
	}
	if len(assertion.Body) > 0 {
		expected += fmt.Sprintf(" with body %v", assertion.Body)
	}
	return &AssertionError{
		Type:     AssertRequestContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertRequestOrder checks that URLs were requested in the given order.
// Requests don't need to be consecutive (intervening requests are allowed).
func assertRequestOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next == len(assertion.URLs) {
			break
		}
		if event.Type == EventRequest && event.URL == assertion.URLs[next] {
			next++
		}
	}

	if next < len(assertion.URLs) {
		return &AssertionError{
			Type:     AssertRequestOrder,
			Expected: fmt.Sprintf("requests in order: %v", assertion.URLs),
			Actual:   fmt.Sprintf("missing or out of order: %s", assertion.URLs[next]),
			Trace:    trace,
		}
	}
	return nil
}

// assertRequestCount checks the number of requests sent, optionally
// restricted to one method.
func assertRequestCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type != EventRequest {
			continue
		}
		if assertion.Method != "" && !strings.EqualFold(event.Method, assertion.Method) {
			continue
		}
		count++
	}

	if count != assertion.Count {
		what := "requests"
		if assertion.Method != "" {
			what = strings.ToUpper(assertion.Method) + " requests"
		}
		return &AssertionError{
			Type:     AssertRequestCount,
			Expected: fmt.Sprintf("%d %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d %s", count, what),
			Trace:    trace,
		}
	}
	return nil
}

// assertJournal checks that exactly one journal entry matches Where and
// that it carries the Expect values (subset semantics).
func assertJournal(ctx context.Context, st *store.Store, assertion Assertion) error {
	entries, err := st.ReadEntries(ctx, store.Filter{})
	if err != nil {
		return &AssertionError{
			Type:     AssertJournal,
			Expected: "readable journal",
			Actual:   fmt.Sprintf("read error: %v", err),
		}
	}

	var matched []map[string]any
	for _, e := range entries {
		row := entryFields(e)
		if matchValue(row, assertion.Where) {
			matched = append(matched, row)
		}
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(matched) {
	case 0:
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("entry where %s", whereDesc),
			Actual:   "entry not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertJournal,
			Expected: fmt.Sprintf("exactly one entry where %s", whereDesc),
			Actual:   fmt.Sprintf("%d entries matched (assertion is ambiguous)", len(matched)),
		}
	}

	row := matched[0]
	for _, key := range sortedAnyKeys(assertion.Expect) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := row[key]
		if !exists {
			return &AssertionError{
				Type:     AssertJournal,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q is not a journal field", key),
			}
		}
		if !matchValue(actualValue, expectedValue) {
			return &AssertionError{
				Type:     AssertJournal,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}
	return nil
}

// entryFields exposes a journal entry under its JSON field names.
func entryFields(e store.Entry) map[string]any {
	return map[string]any{
		"id":        e.ID,
		"seq":       e.Seq,
		"resource":  e.Resource,
		"operation": e.Operation,
		"method":    e.Method,
		"url":       e.URL,
		"plan_hash": e.PlanHash,
		"body":      e.Body,
		"status":    int64(e.Status),
		"error":     e.Error,
		"failed":    e.Error != "",
	}
}

// formatWhereClause creates a human-readable description of WHERE conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	parts := make([]string, 0, len(where))
	for _, k := range sortedAnyKeys(where) {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// matchValue reports whether actual matches expected:
//   - maps use subset semantics (extra keys in actual are ignored)
//   - lists must have the same length and match element-wise
//   - numbers compare by value regardless of Go type
//
// actual is a plain Go value as produced by ir.ToGo; expected is decoded YAML.
func matchValue(actual, expected any) bool {
	if expected == nil {
		return actual == nil
	}

	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for key, ev := range exp {
			av, exists := act[key]
			if !exists || !matchValue(av, ev) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !matchValue(act[i], exp[i]) {
				return false
			}
		}
		return true
	}

	if en, ok := toFloat(expected); ok {
		an, ok := toFloat(actual)
		return ok && en == an
	}
	return reflect.DeepEqual(actual, expected)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// AssertionContext provides context for evaluating assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides journal access for journal assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRequestContains:
			err = assertRequestContains(result.Trace, assertion)
		case AssertRequestOrder:
			err = assertRequestOrder(result.Trace, assertion)
		case AssertRequestCount:
			err = assertRequestCount(result.Trace, assertion)
		case AssertJournal:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: journal requires database context", i)
			} else {
				err = assertJournal(actx.Ctx, actx.Store, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
