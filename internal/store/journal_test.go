package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func testEntry(id string, seq int64) Entry {
	return Entry{
		ID:        id,
		Seq:       seq,
		Resource:  "adresar",
		Operation: "select",
		Method:    "GET",
		URL:       "adresar.json?code-as-id=true",
		PlanHash:  "hash-a",
		Status:    200,
	}
}

func TestAppend_ReadBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := testEntry("req-1", 1)
	e.Method = "PUT"
	e.Operation = "insert"
	e.Body = `{"winstrom":{"adresar":{"kod":"NOVA"}}}`
	e.Status = 201
	if err := s.Append(ctx, e); err != nil {
		t.Fatalf("Append() failed: %v", err)
	}

	got, err := s.ReadEntry(ctx, "req-1")
	if err != nil {
		t.Fatalf("ReadEntry() failed: %v", err)
	}
	if got != e {
		t.Errorf("ReadEntry() = %+v, want %+v", got, e)
	}
}

func TestAppend_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	e := testEntry("req-1", 1)
	if err := s.Append(ctx, e); err != nil {
		t.Fatalf("first Append() failed: %v", err)
	}
	e.Status = 500
	if err := s.Append(ctx, e); err != nil {
		t.Fatalf("duplicate Append() should be silently ignored: %v", err)
	}

	got, err := s.ReadEntry(ctx, "req-1")
	if err != nil {
		t.Fatalf("ReadEntry() failed: %v", err)
	}
	if got.Status != 200 {
		t.Errorf("duplicate append overwrote status: got %d", got.Status)
	}
}

func TestReadEntry_Unknown(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadEntry(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestReadEntries_OrderedBySeqThenID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, e := range []Entry{
		testEntry("req-c", 2),
		testEntry("req-b", 1),
		testEntry("req-a", 2),
	} {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append(%s) failed: %v", e.ID, err)
		}
	}

	entries, err := s.ReadEntries(ctx, Filter{})
	if err != nil {
		t.Fatalf("ReadEntries() failed: %v", err)
	}

	want := []string{"req-b", "req-a", "req-c"}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, id := range want {
		if entries[i].ID != id {
			t.Errorf("entries[%d].ID = %s, want %s", i, entries[i].ID, id)
		}
	}
}

func TestReadEntries_Filter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ok := testEntry("req-1", 1)
	other := testEntry("req-2", 2)
	other.Resource = "faktura-vydana"
	other.PlanHash = "hash-b"
	failed := testEntry("req-3", 3)
	failed.Status = 400
	transportErr := testEntry("req-4", 4)
	transportErr.Status = 0
	transportErr.Error = "connection refused"

	for _, e := range []Entry{ok, other, failed, transportErr} {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append(%s) failed: %v", e.ID, err)
		}
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"req-1", "req-2", "req-3", "req-4"}},
		{"by resource", Filter{Resource: "faktura-vydana"}, []string{"req-2"}},
		{"by plan hash", Filter{PlanHash: "hash-a"}, []string{"req-1", "req-3", "req-4"}},
		{"failed only", Filter{FailedOnly: true}, []string{"req-3", "req-4"}},
		{"limit", Filter{Limit: 2}, []string{"req-1", "req-2"}},
		{"no match", Filter{Resource: "cenik"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := s.ReadEntries(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ReadEntries() failed: %v", err)
			}
			if entries == nil {
				t.Fatal("ReadEntries() returned nil, want empty slice")
			}
			got := make([]string, len(entries))
			for i, e := range entries {
				got[i] = e.ID
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestMaxSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.MaxSeq(ctx)
	if err != nil {
		t.Fatalf("MaxSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("MaxSeq() on empty journal = %d, want 0", seq)
	}

	for _, e := range []Entry{testEntry("req-1", 3), testEntry("req-2", 7)} {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append() failed: %v", err)
		}
	}

	seq, err = s.MaxSeq(ctx)
	if err != nil {
		t.Fatalf("MaxSeq() failed: %v", err)
	}
	if seq != 7 {
		t.Errorf("MaxSeq() = %d, want 7", seq)
	}
}
