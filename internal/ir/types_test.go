package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpecializerValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    SpecializerSpec
		wantErr string // substring of first error, "" for valid
	}{
		{"catch-all", SpecializerSpec{Kind: SpecAny}, ""},
		{"eql with value", SpecializerSpec{Kind: SpecEql, Value: Int(5)}, ""},
		{"type with name", SpecializerSpec{Kind: SpecType, Name: "int"}, ""},
		{"unknown kind", SpecializerSpec{Kind: "regex"}, "invalid specializer kind"},
		{"eql missing value", SpecializerSpec{Kind: SpecEql}, "requires a value"},
		{"type missing name", SpecializerSpec{Kind: SpecType}, "requires a name"},
		{"catch-all with name", SpecializerSpec{Kind: SpecAny, Name: "x"}, "takes no value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.spec.Validate()
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			assert.NotEmpty(t, errs)
			assert.Contains(t, errs[0].Message, tt.wantErr)
		})
	}
}

func TestMethodSpecValidate(t *testing.T) {
	valid := MethodSpec{
		Bindings: []BindingSpec{
			{Arg: 0, Spec: SpecializerSpec{Kind: SpecType, Name: "int"}},
			{Arg: -1, Context: "mode", Spec: SpecializerSpec{Kind: SpecDerived, Name: "strict"}},
		},
		Convention: ConventionNextFirst,
		Body:       "sum",
	}
	assert.Empty(t, valid.Validate())
}

func TestMethodSpecValidateErrors(t *testing.T) {
	m := MethodSpec{
		Bindings: []BindingSpec{
			{Arg: 0, Spec: SpecializerSpec{Kind: SpecAny}},
			{Arg: 0, Spec: SpecializerSpec{Kind: SpecAny}},           // duplicate key
			{Arg: -1, Spec: SpecializerSpec{Kind: SpecAny}},          // nameless context
			{Arg: 1, Context: "m", Spec: SpecializerSpec{Kind: ""}},  // both arg and context
		},
		Convention: "varargs", // invalid
		Body:       "",        // missing
	}

	errs := m.Validate()
	assert.NotEmpty(t, errs)

	messages := make([]string, len(errs))
	for i, e := range errs {
		messages[i] = e.Error()
	}
	joined := ""
	for _, m := range messages {
		joined += m + "\n"
	}
	assert.Contains(t, joined, "behavior name is required")
	assert.Contains(t, joined, "invalid calling convention")
	assert.Contains(t, joined, "duplicate dispatch key")
	assert.Contains(t, joined, "context binding requires a context name")
	assert.Contains(t, joined, "cannot name both")
}

func TestBindingKeyString(t *testing.T) {
	assert.Equal(t, "0", BindingSpec{Arg: 0}.KeyString())
	assert.Equal(t, "2", BindingSpec{Arg: 2}.KeyString())
	assert.Equal(t, "ctx:mode", BindingSpec{Arg: -1, Context: "mode"}.KeyString())
}

func TestSpecializerDisplay(t *testing.T) {
	assert.Equal(t, "_", SpecializerSpec{Kind: SpecAny}.Display())
	assert.Equal(t, `(eql 5)`, SpecializerSpec{Kind: SpecEql, Value: Int(5)}.Display())
	assert.Equal(t, "(type int)", SpecializerSpec{Kind: SpecType, Name: "int"}.Display())
	assert.Equal(t, "(wrapper celsius)", SpecializerSpec{Kind: SpecWrapper, Name: "celsius"}.Display())
}
