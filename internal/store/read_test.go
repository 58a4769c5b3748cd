package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/roach88/multimethod/internal/ir"
	"github.com/roach88/multimethod/internal/tracequery"
)

func TestReadCalls_EmptyStoreReturnsEmptySlice(t *testing.T) {
	s := createTestStore(t)

	records, err := s.ReadCalls(context.Background(), CallFilter{})
	if err != nil {
		t.Fatalf("ReadCalls() failed: %v", err)
	}
	if records == nil {
		t.Error("ReadCalls() returned nil, want empty slice")
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestReadCalls_Filters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a := createTestRecord(t, "tok-1", "describe", 1, ir.Array{ir.Int(1)})
	a.Applied = []string{"m-int"}
	b := createTestRecord(t, "tok-2", "describe", 2, ir.Array{ir.Int(2)})
	b.Outcome = "error"
	b.Result = nil
	b.FailureCode = "NO_APPLICABLE_METHOD"
	c := createTestRecord(t, "tok-3", "measure", 3, ir.Array{ir.Int(3)})
	c.Applied = []string{"m-int", "m-any"}

	if err := s.WriteCall(ctx, a); err != nil {
		t.Fatalf("WriteCall(a): %v", err)
	}
	if err := s.WriteCall(ctx, b); err != nil {
		t.Fatalf("WriteCall(b): %v", err)
	}
	if err := s.WriteCall(ctx, c); err != nil {
		t.Fatalf("WriteCall(c): %v", err)
	}

	tests := []struct {
		name   string
		filter CallFilter
		want   []string // expected tokens, in order
	}{
		{"all", CallFilter{}, []string{"tok-1", "tok-2", "tok-3"}},
		{"by generic", CallFilter{Generic: "describe"}, []string{"tok-1", "tok-2"}},
		{"by token", CallFilter{Token: "tok-2"}, []string{"tok-2"}},
		{"by outcome", CallFilter{Outcome: "error"}, []string{"tok-2"}},
		{"combined", CallFilter{Generic: "describe", Outcome: "ok"}, []string{"tok-1"}},
		{"limit", CallFilter{Limit: 2}, []string{"tok-1", "tok-2"}},
		{"by failure code", CallFilter{FailureCode: "NO_APPLICABLE_METHOD"}, []string{"tok-2"}},
		{"by applied method", CallFilter{Applied: "m-int"}, []string{"tok-1", "tok-3"}},
		{"min seq", CallFilter{MinSeq: 2}, []string{"tok-2", "tok-3"}},
		{"max seq", CallFilter{MaxSeq: 2}, []string{"tok-1", "tok-2"}},
		{"seq window", CallFilter{MinSeq: 2, MaxSeq: 2}, []string{"tok-2"}},
		{"no match", CallFilter{Generic: "absent"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := s.ReadCalls(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ReadCalls() failed: %v", err)
			}
			if len(records) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(records), len(tt.want))
			}
			for i, token := range tt.want {
				if records[i].Token != token {
					t.Errorf("records[%d].Token = %q, want %q", i, records[i].Token, token)
				}
			}
		})
	}
}

func TestReadCalls_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Insert out of seq order; reads must come back sorted.
	for _, seq := range []int64{3, 1, 2} {
		rec := createTestRecord(t, "tok", "describe", seq, ir.Array{ir.Int(seq)})
		if err := s.WriteCall(ctx, rec); err != nil {
			t.Fatalf("WriteCall(seq=%d): %v", seq, err)
		}
	}

	records, err := s.ReadCalls(ctx, CallFilter{})
	if err != nil {
		t.Fatalf("ReadCalls() failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, rec := range records {
		if rec.Seq != int64(i+1) {
			t.Errorf("records[%d].Seq = %d, want %d", i, rec.Seq, i+1)
		}
	}
}

func TestReadCall_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadCall(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadCall() error = %v, want sql.ErrNoRows", err)
	}
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("LastSeq() on empty store = %d, want 0", seq)
	}

	for _, n := range []int64{5, 2, 9} {
		rec := createTestRecord(t, "tok", "describe", n, ir.Array{ir.Int(n)})
		if err := s.WriteCall(ctx, rec); err != nil {
			t.Fatalf("WriteCall(seq=%d): %v", n, err)
		}
	}

	seq, err = s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 9 {
		t.Errorf("LastSeq() = %d, want 9", seq)
	}
}

func TestQueryCalls_CustomPredicate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, n := range []int64{1, 2, 3} {
		rec := createTestRecord(t, "tok", "describe", n, ir.Array{ir.Int(n)})
		if err := s.WriteCall(ctx, rec); err != nil {
			t.Fatalf("WriteCall(seq=%d): %v", n, err)
		}
	}

	records, err := s.QueryCalls(ctx, tracequery.And{Predicates: []tracequery.Predicate{
		tracequery.Equals{Field: "generic", Value: ir.String("describe")},
		tracequery.SeqRange{Min: 2},
	}}, 0)
	if err != nil {
		t.Fatalf("QueryCalls() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Seq != 2 || records[1].Seq != 3 {
		t.Errorf("seqs = %d, %d, want 2, 3", records[0].Seq, records[1].Seq)
	}
}

func TestQueryCalls_BadPredicate(t *testing.T) {
	s := createTestStore(t)

	_, err := s.QueryCalls(context.Background(), tracequery.Equals{Field: "nope", Value: ir.String("x")}, 0)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}
