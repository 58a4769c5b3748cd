package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/multimethod/internal/dispatch"
	"github.com/roach88/multimethod/internal/ir"
)

// createTestStore creates a file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord builds an ok-outcome call record with a real
// content-addressed ID.
func createTestRecord(t *testing.T, token, generic string, seq int64, args ir.Array) dispatch.CallRecord {
	t.Helper()
	id, err := ir.CallID(token, generic, args, seq)
	if err != nil {
		t.Fatalf("CallID() failed: %v", err)
	}
	return dispatch.CallRecord{
		CallID:  id,
		Token:   token,
		Generic: generic,
		Args:    args,
		Seq:     seq,
		Outcome: "ok",
		Result:  ir.String("done"),
	}
}

// createTestEngine builds an engine with a "describe" generic dispatching
// on the first argument's type.
func createTestEngine(t *testing.T, opts ...dispatch.Option) *dispatch.Engine {
	t.Helper()
	e := dispatch.New(opts...)
	g, err := e.DefineGeneric("describe")
	if err != nil {
		t.Fatalf("DefineGeneric() failed: %v", err)
	}
	intBinding := []ir.BindingSpec{{
		Arg:  0,
		Spec: ir.SpecializerSpec{Kind: ir.SpecType, Name: "int"},
	}}
	body := dispatch.Plain(func(_ []ir.Value) (ir.Value, error) {
		return ir.String("an int"), nil
	})
	if err := g.RegisterMethod(intBinding, nil, body); err != nil {
		t.Fatalf("RegisterMethod() failed: %v", err)
	}
	return e
}
