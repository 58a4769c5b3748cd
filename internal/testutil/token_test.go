package testutil

import (
	"testing"

	"github.com/roach88/multimethod/internal/dispatch"
)

var _ dispatch.TokenGenerator = (*PrefixTokenGenerator)(nil)

func TestPrefixTokenGenerator_Sequence(t *testing.T) {
	g := NewPrefixTokenGenerator("scenario")

	if tok := g.Generate(); tok != "scenario-0001" {
		t.Errorf("first Generate() = %q", tok)
	}
	if tok := g.Generate(); tok != "scenario-0002" {
		t.Errorf("second Generate() = %q", tok)
	}
}

func TestPrefixTokenGenerator_DefaultPrefix(t *testing.T) {
	g := NewPrefixTokenGenerator("")

	if tok := g.Generate(); tok != "test-call-0001" {
		t.Errorf("Generate() = %q", tok)
	}
}

func TestPrefixTokenGenerator_Reset(t *testing.T) {
	g := NewPrefixTokenGenerator("run")
	g.Generate()
	g.Generate()

	g.Reset()

	if tok := g.Generate(); tok != "run-0001" {
		t.Errorf("Generate() after Reset = %q", tok)
	}
}
