package compiler

import (
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/multimethod/internal/dispatch"
	"github.com/roach88/multimethod/internal/ir"
)

func compileDefs(t *testing.T, src string) []*ir.GenericSpec {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	specs, err := CompileDefinitions(v)
	require.NoError(t, err)
	return specs
}

func TestRegister_EndToEnd(t *testing.T) {
	specs := compileDefs(t, `
		generic: describe: {
			method: [{
				on: [{arg: 0, eql: 5}]
				convention: "next-first"
				body: "describe-five"
			}, {
				on: [{arg: 0, type: "int"}]
				body: "describe-int"
			}]
		}
	`)

	behaviors := Behaviors{
		"describe-int": dispatch.Plain(func(_ []ir.Value) (ir.Value, error) {
			return ir.String("an int"), nil
		}),
		"describe-five": dispatch.NextFirst(func(next dispatch.Next, _ []ir.Value) (ir.Value, error) {
			inner, err := next.Call()
			if err != nil {
				return nil, err
			}
			return ir.String("exactly five, also ") + inner.(ir.String), nil
		}),
	}

	e := dispatch.New()
	require.NoError(t, Register(e, specs, behaviors, nil))

	got, err := e.Invoke("describe", ir.Int(5))
	require.NoError(t, err)
	assert.Equal(t, ir.String("exactly five, also an int"), got)

	got, err = e.Invoke("describe", ir.Int(9))
	require.NoError(t, err)
	assert.Equal(t, ir.String("an int"), got)
}

func TestRegister_ContextProvider(t *testing.T) {
	specs := compileDefs(t, `
		generic: parse: {
			contexts: ["mode"]
			method: [{
				on: [{context: "mode", eql: "strict"}]
				body: "strict"
			}, {
				body: "lenient"
			}]
		}
	`)

	behaviors := Behaviors{
		"strict":  dispatch.Plain(func(_ []ir.Value) (ir.Value, error) { return ir.String("strict"), nil }),
		"lenient": dispatch.Plain(func(_ []ir.Value) (ir.Value, error) { return ir.String("lenient"), nil }),
	}

	mode := ir.Value(ir.String("strict"))
	contexts := map[string]func() ir.Value{
		"mode": func() ir.Value { return mode },
	}

	e := dispatch.New()
	require.NoError(t, Register(e, specs, behaviors, contexts))

	got, err := e.Invoke("parse", ir.String("in"))
	require.NoError(t, err)
	assert.Equal(t, ir.String("strict"), got)

	mode = ir.String("anything-else")
	got, err = e.Invoke("parse", ir.String("in"))
	require.NoError(t, err)
	assert.Equal(t, ir.String("lenient"), got)

	// A declared context without a provider is a load error.
	err = Register(dispatch.New(), specs, behaviors, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider")
}

func TestRegister_UnknownBehavior(t *testing.T) {
	specs := compileDefs(t, `
		generic: describe: {
			method: [{on: [{arg: 0, type: "int"}], body: "missing"}]
		}
	`)

	err := Register(dispatch.New(), specs, Behaviors{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown behavior "missing"`)
}

func TestRegister_ConventionMismatch(t *testing.T) {
	specs := compileDefs(t, `
		generic: describe: {
			method: [{
				on: [{arg: 0, type: "int"}]
				convention: "curried"
				body: "plain-body"
			}]
		}
	`)

	behaviors := Behaviors{
		"plain-body": dispatch.Plain(func(_ []ir.Value) (ir.Value, error) { return ir.Null{}, nil }),
	}
	err := Register(dispatch.New(), specs, behaviors, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "convention")
}

func TestRegister_Precedence(t *testing.T) {
	specs := compileDefs(t, `
		generic: route: {
			precedence: ["1", "0"]
			method: [{
				on: [{arg: 0, type: "int"}, {arg: 1, eql: "fast"}]
				body: "fast-int"
			}, {
				on: [{arg: 1, eql: "slow"}]
				body: "slow"
			}]
		}
	`)

	behaviors := Behaviors{
		"fast-int": dispatch.Plain(func(_ []ir.Value) (ir.Value, error) { return ir.String("fast int"), nil }),
		"slow":     dispatch.Plain(func(_ []ir.Value) (ir.Value, error) { return ir.String("slow"), nil }),
	}

	e := dispatch.New()
	require.NoError(t, Register(e, specs, behaviors, nil))

	got, err := e.Invoke("route", ir.Int(3), ir.String("slow"))
	require.NoError(t, err)
	assert.Equal(t, ir.String("slow"), got)
}

func TestRegister_ValidationFailureAbortsEarly(t *testing.T) {
	specs := []*ir.GenericSpec{{
		Name: "bad",
		Methods: []ir.MethodSpec{{
			Qualifiers: []string{"sideways"},
			Body:       "b",
		}},
	}}

	e := dispatch.New()
	err := Register(e, specs, Behaviors{"b": dispatch.Plain(nil)}, nil)
	require.Error(t, err)
	assert.Nil(t, e.Generic("bad"), "engine must be untouched on validation failure")
}
