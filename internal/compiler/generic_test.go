package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/multimethod/internal/ir"
)

func TestCompileGenericBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		generic: describe: {
			doc: "Renders a human description of a value"

			method: [{
				on: [{arg: 0, type: "int"}]
				body: "describe-int"
			}, {
				on: [{arg: 0, eql: 5}]
				qualifiers: ["before"]
				convention: "plain"
				body: "log-five"
			}]
		}
	`)

	require.NoError(t, v.Err())
	spec, err := CompileGeneric(v.LookupPath(cue.ParsePath("generic.describe")))
	require.NoError(t, err)

	assert.Equal(t, "describe", spec.Name)
	assert.Equal(t, "Renders a human description of a value", spec.Doc)
	require.Len(t, spec.Methods, 2)

	m0 := spec.Methods[0]
	assert.Equal(t, "describe-int", m0.Body)
	require.Len(t, m0.Bindings, 1)
	assert.Equal(t, 0, m0.Bindings[0].Arg)
	assert.Equal(t, ir.SpecializerSpec{Kind: ir.SpecType, Name: "int"}, m0.Bindings[0].Spec)

	m1 := spec.Methods[1]
	assert.Equal(t, []string{"before"}, m1.Qualifiers)
	assert.Equal(t, ir.SpecializerSpec{Kind: ir.SpecEql, Value: ir.Int(5)}, m1.Bindings[0].Spec)
}

func TestCompileGenericContextsAndPrecedence(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		generic: parse: {
			contexts: ["mode"]
			precedence: ["ctx:mode", "0"]
			method: [{
				on: [
					{arg: 0, type: "string"},
					{context: "mode", eql: "strict"},
				]
				body: "parse-strict"
			}]
		}
	`)

	require.NoError(t, v.Err())
	spec, err := CompileGeneric(v.LookupPath(cue.ParsePath("generic.parse")))
	require.NoError(t, err)

	assert.Equal(t, []string{"mode"}, spec.Contexts)
	assert.Equal(t, []string{"ctx:mode", "0"}, spec.Precedence)
	require.Len(t, spec.Methods[0].Bindings, 2)
	ctxBinding := spec.Methods[0].Bindings[1]
	assert.Equal(t, -1, ctxBinding.Arg)
	assert.Equal(t, "mode", ctxBinding.Context)
	assert.Equal(t, "ctx:mode", ctxBinding.KeyString())
}

func TestCompileGenericCatchAll(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		generic: fallback: {
			method: [{
				on: [{arg: 0, any: true}]
				body: "default"
			}]
		}
	`)

	spec, err := CompileGeneric(v.LookupPath(cue.ParsePath("generic.fallback")))
	require.NoError(t, err)
	assert.Equal(t, ir.SpecAny, spec.Methods[0].Bindings[0].Spec.Kind)
}

func TestCompileGenericEqlStructuredValue(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		generic: match: {
			method: [{
				on: [{arg: 0, eql: {kind: "point", coords: [1, 2]}}]
				body: "handle-point"
			}]
		}
	`)

	spec, err := CompileGeneric(v.LookupPath(cue.ParsePath("generic.match")))
	require.NoError(t, err)

	want := ir.Object{
		"kind":   ir.String("point"),
		"coords": ir.Array{ir.Int(1), ir.Int(2)},
	}
	assert.Equal(t, want, spec.Methods[0].Bindings[0].Spec.Value)
}

func TestCompileGenericMissingBody(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		generic: bad: {
			method: [{
				on: [{arg: 0, type: "int"}]
			}]
		}
	`)

	_, err := CompileGeneric(v.LookupPath(cue.ParsePath("generic.bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body")
	assert.Contains(t, err.Error(), "required")
}

func TestCompileGenericNoMethods(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		generic: empty: {
			doc: "methodless"
		}
	`)

	_, err := CompileGeneric(v.LookupPath(cue.ParsePath("generic.empty")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one method")
}

func TestCompileGenericRejectsFloats(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		generic: bad: {
			method: [{
				on: [{arg: 0, eql: 1.5}]
				body: "nope"
			}]
		}
	`)

	_, err := CompileGeneric(v.LookupPath(cue.ParsePath("generic.bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float")
}

func TestCompileGenericBindingKeyRequired(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		generic: bad: {
			method: [{
				on: [{type: "int"}]
				body: "nope"
			}]
		}
	`)

	_, err := CompileGeneric(v.LookupPath(cue.ParsePath("generic.bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argument index or a context name")
}

func TestCompileGenericExactlyOneSpecializer(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		generic: bad: {
			method: [{
				on: [{arg: 0, type: "int", eql: 5}]
				body: "nope"
			}]
		}
	`)

	_, err := CompileGeneric(v.LookupPath(cue.ParsePath("generic.bad")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one")
}

func TestCompileDefinitions(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		generic: {
			describe: {
				method: [{on: [{arg: 0, type: "int"}], body: "d-int"}]
			}
			format: {
				method: [{on: [{arg: 0, wrapper: "celsius"}], body: "f-celsius"}]
			}
		}
	`)

	specs, err := CompileDefinitions(v)
	require.NoError(t, err)
	require.Len(t, specs, 2)
	assert.Equal(t, "describe", specs[0].Name)
	assert.Equal(t, "format", specs[1].Name)
}

func TestCompileDefinitionsMissingTopLevel(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`other: {}`)

	_, err := CompileDefinitions(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generic")
}

func TestCompileErrorIncludesPosition(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`generic: bad: { method: [{on: [{arg: 0, type: "int"}]}] }`)

	_, err := CompileGeneric(v.LookupPath(cue.ParsePath("generic.bad")))
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.NotEmpty(t, ce.Field)
}
