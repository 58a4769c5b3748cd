package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/multimethod/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func validSpec() *ir.GenericSpec {
	return &ir.GenericSpec{
		Name: "describe",
		Methods: []ir.MethodSpec{{
			Bindings: []ir.BindingSpec{
				{Arg: 0, Spec: ir.SpecializerSpec{Kind: ir.SpecType, Name: "int"}},
			},
			Body: "describe-int",
		}},
	}
}

func TestValidate_ValidSpec(t *testing.T) {
	assert.Empty(t, Validate(validSpec()))
}

func TestValidate_UnsupportedType(t *testing.T) {
	errs := Validate(42)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedIRType, errs[0].Code)
}

func TestValidate_NameRequired(t *testing.T) {
	spec := validSpec()
	spec.Name = "  "
	assert.Contains(t, codes(Validate(spec)), ErrGenericNameEmpty)
}

func TestValidate_MethodsRequired(t *testing.T) {
	spec := validSpec()
	spec.Methods = nil
	assert.Contains(t, codes(Validate(spec)), ErrGenericNoMethods)
}

func TestValidate_BodyRequired(t *testing.T) {
	spec := validSpec()
	spec.Methods[0].Body = ""
	assert.Contains(t, codes(Validate(spec)), ErrMethodBodyEmpty)
}

func TestValidate_Convention(t *testing.T) {
	spec := validSpec()
	spec.Methods[0].Convention = "telepathic"
	assert.Contains(t, codes(Validate(spec)), ErrBadConvention)

	spec.Methods[0].Convention = ir.ConventionCurried
	assert.Empty(t, Validate(spec))
}

func TestValidate_Qualifiers(t *testing.T) {
	cases := []struct {
		name  string
		quals []string
		ok    bool
	}{
		{"primary", nil, true},
		{"before", []string{ir.QualifierBefore}, true},
		{"around", []string{ir.QualifierAround}, true},
		{"tagged primary", []string{ir.QualifierTag, "x"}, true},
		{"tagged after", []string{ir.QualifierTag, "x", ir.QualifierAfter}, true},
		{"unknown", []string{"sideways"}, false},
		{"two roles", []string{ir.QualifierBefore, ir.QualifierAfter}, false},
		{"dangling tag", []string{ir.QualifierTag}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spec := validSpec()
			spec.Methods[0].Qualifiers = tc.quals
			errs := Validate(spec)
			if tc.ok {
				assert.Empty(t, errs)
			} else {
				assert.Contains(t, codes(errs), ErrBadQualifiers)
			}
		})
	}
}

func TestValidate_DuplicateDispatchKey(t *testing.T) {
	spec := validSpec()
	spec.Methods[0].Bindings = append(spec.Methods[0].Bindings,
		ir.BindingSpec{Arg: 0, Spec: ir.SpecializerSpec{Kind: ir.SpecType, Name: "string"}})
	assert.Contains(t, codes(Validate(spec)), ErrDuplicateKey)
}

func TestValidate_BadSpecializer(t *testing.T) {
	spec := validSpec()
	spec.Methods[0].Bindings[0].Spec = ir.SpecializerSpec{Kind: "telekinetic"}
	assert.Contains(t, codes(Validate(spec)), ErrBadSpecializer)

	spec.Methods[0].Bindings[0].Spec = ir.SpecializerSpec{Kind: ir.SpecEql} // missing value
	assert.Contains(t, codes(Validate(spec)), ErrBadSpecializer)
}

func TestValidate_DuplicateMethodIdentity(t *testing.T) {
	spec := validSpec()
	dup := spec.Methods[0]
	dup.Body = "different-body-same-identity"
	spec.Methods = append(spec.Methods, dup)
	assert.Contains(t, codes(Validate(spec)), ErrDuplicateMethod)
}

func TestValidate_PrecedenceKeys(t *testing.T) {
	spec := validSpec()
	spec.Precedence = []string{"0"}
	assert.Empty(t, Validate(spec))

	spec.Precedence = []string{"7"}
	assert.Contains(t, codes(Validate(spec)), ErrBadPrecedenceKey)
}

func TestValidate_UndeclaredContext(t *testing.T) {
	spec := validSpec()
	spec.Methods[0].Bindings = append(spec.Methods[0].Bindings, ir.BindingSpec{
		Arg: -1, Context: "mode",
		Spec: ir.SpecializerSpec{Kind: ir.SpecEql, Value: ir.String("strict")},
	})
	assert.Contains(t, codes(Validate(spec)), ErrUndeclaredContext)

	spec.Contexts = []string{"mode"}
	assert.Empty(t, Validate(spec))
}

func TestValidateAll_DuplicateGeneric(t *testing.T) {
	a := validSpec()
	b := validSpec()
	assert.Contains(t, codes(ValidateAll([]*ir.GenericSpec{a, b})), ErrDuplicateGeneric)
}

func TestLint_DispatchKeyMismatch(t *testing.T) {
	spec := validSpec()
	spec.Methods = append(spec.Methods, ir.MethodSpec{
		Bindings: []ir.BindingSpec{
			{Arg: 0, Spec: ir.SpecializerSpec{Kind: ir.SpecType, Name: "int"}},
			{Arg: 1, Spec: ir.SpecializerSpec{Kind: ir.SpecType, Name: "string"}},
		},
		Body: "two-arg",
	})

	warns := Lint(spec)
	require.Len(t, warns, 1)
	assert.Equal(t, WarnDispatchKeyMismatch, warns[0].Code)

	// Warnings never show up as validation errors.
	assert.Empty(t, Validate(spec))
}

func TestValidationError_Format(t *testing.T) {
	err := ValidationError{Field: "methods[0].body", Message: "required", Code: ErrMethodBodyEmpty}
	assert.Equal(t, "[E110] methods[0].body: required", err.Error())
}
