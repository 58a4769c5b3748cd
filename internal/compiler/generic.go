package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/multimethod/internal/ir"
)

// CompileGeneric parses a CUE value into a GenericSpec.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the generic-function struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`generic: describe: { ... }`)
//	spec, err := CompileGeneric(v.LookupPath(cue.ParsePath("generic.describe")))
func CompileGeneric(v cue.Value) (*ir.GenericSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.GenericSpec{}

	// The generic's name is the struct label (the path selector).
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		spec.Name = labels[len(labels)-1].String()
	}

	docVal := v.LookupPath(cue.ParsePath("doc"))
	if docVal.Exists() {
		doc, err := docVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Doc = doc
	}

	var err error
	spec.Contexts, err = parseStringList(v.LookupPath(cue.ParsePath("contexts")))
	if err != nil {
		return nil, err
	}
	spec.Precedence, err = parseStringList(v.LookupPath(cue.ParsePath("precedence")))
	if err != nil {
		return nil, err
	}

	spec.Methods, err = parseMethods(v)
	if err != nil {
		return nil, err
	}
	if len(spec.Methods) == 0 {
		return nil, &CompileError{
			Field:   "method",
			Message: "at least one method is required",
			Pos:     v.Pos(),
		}
	}

	return spec, nil
}

// CompileDefinitions parses a whole definition file: every entry under the
// top-level "generic" struct, in declaration order.
func CompileDefinitions(v cue.Value) ([]*ir.GenericSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	genVal := v.LookupPath(cue.ParsePath("generic"))
	if !genVal.Exists() {
		return nil, &CompileError{
			Field:   "generic",
			Message: "definition file has no top-level generic struct",
			Pos:     v.Pos(),
		}
	}

	iter, err := genVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var specs []*ir.GenericSpec
	for iter.Next() {
		spec, err := CompileGeneric(iter.Value())
		if err != nil {
			return nil, err
		}
		// The iterator label is authoritative; path selectors can quote it.
		spec.Name = iter.Label()
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, &CompileError{
			Field:   "generic",
			Message: "definition file declares no generic functions",
			Pos:     genVal.Pos(),
		}
	}
	return specs, nil
}

// parseMethods extracts the method list of a generic.
func parseMethods(v cue.Value) ([]ir.MethodSpec, error) {
	methodVal := v.LookupPath(cue.ParsePath("method"))
	if !methodVal.Exists() {
		return nil, nil
	}

	iter, err := methodVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var methods []ir.MethodSpec
	for i := 0; iter.Next(); i++ {
		m, err := parseMethod(iter.Value(), i)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// parseMethod parses one method entry: bindings ("on"), qualifiers,
// convention, and the body behavior name.
func parseMethod(v cue.Value, idx int) (ir.MethodSpec, error) {
	var m ir.MethodSpec

	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		return m, &CompileError{
			Field:   fmt.Sprintf("method[%d].body", idx),
			Message: "method body behavior name is required",
			Pos:     v.Pos(),
		}
	}
	body, err := bodyVal.String()
	if err != nil {
		return m, formatCUEError(err)
	}
	m.Body = body

	convVal := v.LookupPath(cue.ParsePath("convention"))
	if convVal.Exists() {
		conv, err := convVal.String()
		if err != nil {
			return m, formatCUEError(err)
		}
		m.Convention = conv
	}

	m.Qualifiers, err = parseStringList(v.LookupPath(cue.ParsePath("qualifiers")))
	if err != nil {
		return m, err
	}

	onVal := v.LookupPath(cue.ParsePath("on"))
	if onVal.Exists() {
		onIter, err := onVal.List()
		if err != nil {
			return m, formatCUEError(err)
		}
		for j := 0; onIter.Next(); j++ {
			b, err := parseBinding(onIter.Value(), idx, j)
			if err != nil {
				return m, err
			}
			m.Bindings = append(m.Bindings, b)
		}
	}

	return m, nil
}

// parseBinding parses one dispatch constraint: the key (arg index or
// context name) plus exactly one specializer field.
func parseBinding(v cue.Value, methodIdx, bindIdx int) (ir.BindingSpec, error) {
	field := fmt.Sprintf("method[%d].on[%d]", methodIdx, bindIdx)
	b := ir.BindingSpec{Arg: -1}

	argVal := v.LookupPath(cue.ParsePath("arg"))
	ctxVal := v.LookupPath(cue.ParsePath("context"))
	switch {
	case argVal.Exists() && ctxVal.Exists():
		return b, &CompileError{
			Field:   field,
			Message: "binding cannot name both an argument index and a context",
			Pos:     v.Pos(),
		}
	case argVal.Exists():
		arg, err := argVal.Int64()
		if err != nil {
			return b, formatCUEError(err)
		}
		if arg < 0 {
			return b, &CompileError{
				Field:   field + ".arg",
				Message: "argument index cannot be negative",
				Pos:     argVal.Pos(),
			}
		}
		b.Arg = int(arg)
	case ctxVal.Exists():
		name, err := ctxVal.String()
		if err != nil {
			return b, formatCUEError(err)
		}
		b.Context = name
	default:
		return b, &CompileError{
			Field:   field,
			Message: "binding requires an argument index or a context name",
			Pos:     v.Pos(),
		}
	}

	spec, err := parseSpecializer(v, field)
	if err != nil {
		return b, err
	}
	b.Spec = spec
	return b, nil
}

// parseSpecializer reads the one specializer field of a binding. Named
// kinds take a string; eql takes any canonical value; the catch-all is
// spelled `any: true`.
func parseSpecializer(v cue.Value, field string) (ir.SpecializerSpec, error) {
	var found []ir.SpecializerSpec

	if eqlVal := v.LookupPath(cue.ParsePath("eql")); eqlVal.Exists() {
		value, err := cueToValue(eqlVal)
		if err != nil {
			return ir.SpecializerSpec{}, err
		}
		found = append(found, ir.SpecializerSpec{Kind: ir.SpecEql, Value: value})
	}
	for _, kind := range []string{ir.SpecType, ir.SpecHead, ir.SpecDerived, ir.SpecWrapper} {
		kindVal := v.LookupPath(cue.ParsePath(kind))
		if !kindVal.Exists() {
			continue
		}
		name, err := kindVal.String()
		if err != nil {
			return ir.SpecializerSpec{}, formatCUEError(err)
		}
		found = append(found, ir.SpecializerSpec{Kind: kind, Name: name})
	}
	if anyVal := v.LookupPath(cue.ParsePath("any")); anyVal.Exists() {
		found = append(found, ir.SpecializerSpec{Kind: ir.SpecAny})
	}

	switch len(found) {
	case 1:
		return found[0], nil
	case 0:
		return ir.SpecializerSpec{}, &CompileError{
			Field:   field,
			Message: "binding requires exactly one specializer (any/eql/type/head/derived/wrapper)",
			Pos:     v.Pos(),
		}
	default:
		return ir.SpecializerSpec{}, &CompileError{
			Field:   field,
			Message: fmt.Sprintf("binding declares %d specializers, exactly one is allowed", len(found)),
			Pos:     v.Pos(),
		}
	}
}

// cueToValue converts a concrete CUE value to the canonical value model.
// Floats are forbidden - identity hashing depends on it.
func cueToValue(v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Int(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var arr ir.Array
		for iter.Next() {
			elem, err := cueToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := make(ir.Object)
		for iter.Next() {
			fv, err := cueToValue(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Label()] = fv
		}
		return obj, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   "value",
			Message: "float values are forbidden - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   "value",
			Message: fmt.Sprintf("unsupported value kind: %v", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

// parseStringList reads an optional list of strings.
func parseStringList(v cue.Value) ([]string, error) {
	if !v.Exists() {
		return nil, nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
