package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flexiq/internal/ir"
	"github.com/roach88/flexiq/internal/store"
)

func TestMatchValue(t *testing.T) {
	tests := []struct {
		name     string
		actual   any
		expected any
		want     bool
	}{
		{"nil matches nil", nil, nil, true},
		{"nil expected", "x", nil, false},
		{"string", "FIRMA", "FIRMA", true},
		{"string mismatch", "FIRMA", "JINA", false},
		{"int64 against int", int64(3), 3, true},
		{"float against int", 2.0, 2, true},
		{"number against text", "3", 3, false},
		{"bool", true, true, true},
		{"map subset", map[string]any{"id": "1", "kod": "A"}, map[string]any{"kod": "A"}, true},
		{"map missing key", map[string]any{"id": "1"}, map[string]any{"kod": "A"}, false},
		{"map against scalar", "A", map[string]any{"kod": "A"}, false},
		{"nested map", map[string]any{"a": map[string]any{"b": int64(1), "c": 2}}, map[string]any{"a": map[string]any{"b": 1}}, true},
		{"list", []any{"a", int64(1)}, []any{"a", 1}, true},
		{"list length", []any{"a", "b"}, []any{"a"}, false},
		{"list of maps", []any{map[string]any{"id": "1", "x": "y"}}, []any{map[string]any{"id": "1"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchValue(tt.actual, tt.expected))
		})
	}
}

func sampleTrace() []TraceEvent {
	r := NewResult()
	r.AddRequestTrace(0, OpCount, "GET", "adresar.json?detail=id", nil, 200, 1)
	r.AddResultTrace(0, OpCount, ir.Int(1), "", "")
	r.AddRequestTrace(1, OpInsert, "PUT", "adresar.json?code-in-response=true",
		ir.NewObject(ir.O("winstrom", ir.NewObject(ir.O("adresar", ir.NewObject(
			ir.O("@update", ir.String("fail")),
			ir.O("kod", ir.String("A")),
		))))), 201, 2)
	r.AddResultTrace(1, OpInsert, ir.String("A"), "", "")
	r.AddRequestTrace(2, OpDeleteOne, "DELETE", "adresar/5.json", nil, 200, 3)
	return r.Trace
}

func TestAssertRequestContains(t *testing.T) {
	trace := sampleTrace()

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   bool
	}{
		{"url only", Assertion{URL: "adresar/5.json"}, false},
		{"method is case-insensitive", Assertion{Method: "delete", URL: "adresar/5.json"}, false},
		{"wrong method", Assertion{Method: "GET", URL: "adresar/5.json"}, true},
		{"body subset", Assertion{URL: "adresar.json?code-in-response=true", Body: map[string]any{
			"winstrom": map[string]any{"adresar": map[string]any{"kod": "A"}},
		}}, false},
		{"body mismatch", Assertion{URL: "adresar.json?code-in-response=true", Body: map[string]any{
			"winstrom": map[string]any{"adresar": map[string]any{"kod": "B"}},
		}}, true},
		{"unknown url", Assertion{URL: "cenik.json"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertion.Type = AssertRequestContains
			err := assertRequestContains(trace, tt.assertion)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "Requests sent:")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAssertRequestOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertRequestOrder(trace, Assertion{URLs: []string{"adresar.json?detail=id", "adresar/5.json"}}))

	err := assertRequestOrder(trace, Assertion{URLs: []string{"adresar/5.json", "adresar.json?detail=id"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing or out of order: adresar.json?detail=id")
}

func TestAssertRequestCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertRequestCount(trace, Assertion{Count: 3}))
	assert.NoError(t, assertRequestCount(trace, Assertion{Method: "put", Count: 1}))

	err := assertRequestCount(trace, Assertion{Method: "GET", Count: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 GET requests")
}

func TestAssertJournal(t *testing.T) {
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.Append(ctx, store.Entry{
		ID: "req-0001", Seq: 1, Resource: "adresar", Operation: "count",
		Method: "GET", URL: "adresar.json", PlanHash: "h1", Status: 200,
	}))
	require.NoError(t, st.Append(ctx, store.Entry{
		ID: "req-0002", Seq: 2, Resource: "adresar", Operation: "delete-one",
		Method: "DELETE", URL: "adresar/5.json", PlanHash: "h2", Status: 400, Error: "rejected",
	}))

	tests := []struct {
		name    string
		where   map[string]any
		expect  map[string]any
		wantErr string
	}{
		{"match by seq", map[string]any{"seq": 1}, map[string]any{"id": "req-0001", "status": 200}, ""},
		{"failed entry", map[string]any{"operation": "delete-one"}, map[string]any{"failed": true, "error": "rejected"}, ""},
		{"no match", map[string]any{"seq": 9}, map[string]any{"status": 200}, "entry not found"},
		{"ambiguous", map[string]any{"resource": "adresar"}, map[string]any{"status": 200}, "2 entries matched"},
		{"wrong value", map[string]any{"seq": 2}, map[string]any{"status": 200}, `field "status" = 400`},
		{"unknown field", map[string]any{"seq": 2}, map[string]any{"latency": 5}, "not a journal field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertJournal(ctx, st, Assertion{Type: AssertJournal, Where: tt.where, Expect: tt.expect})
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEvaluateAssertions_JournalNeedsStore(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertJournal, Expect: map[string]any{"status": 200}}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "journal requires database context")
}

func TestFormatWhereClause(t *testing.T) {
	assert.Equal(t, "(no conditions)", formatWhereClause(nil))
	assert.Equal(t, "operation=count AND seq=1", formatWhereClause(map[string]any{"seq": 1, "operation": "count"}))
}
