package ir

import (
	"fmt"
	"strconv"
)

// Specializer kinds understood by the declarative surface. The dispatch
// layer's generalizer registry is open-ended; this list only names the
// kinds the definition compiler can spell.
const (
	SpecAny     = "any"     // catch-all, matches everything
	SpecEql     = "eql"     // exact-value match
	SpecHead    = "head"    // shaped array, leading literal match
	SpecType    = "type"    // nominal type-hierarchy match
	SpecDerived = "derived" // derived-symbol hierarchy match
	SpecWrapper = "wrapper" // tagged-wrapper match
)

// ValidSpecKinds defines the allowed specializer kind strings.
var ValidSpecKinds = map[string]bool{
	SpecAny:     true,
	SpecEql:     true,
	SpecHead:    true,
	SpecType:    true,
	SpecDerived: true,
	SpecWrapper: true,
}

// Qualifier roles in the standard method combination.
const (
	QualifierPrimary = ""       // unqualified
	QualifierBefore  = "before" // runs before primaries, most specific first
	QualifierAfter   = "after"  // runs after primaries, least specific first
	QualifierAround  = "around" // wraps everything, own next chain
	QualifierTag     = "tag"    // extra-tag pair: ("tag", <name>), stripped before classification
)

// Calling conventions for method bodies.
const (
	ConventionPlain     = "plain"      // body never sees the continuation
	ConventionCurried   = "curried"    // body takes the continuation once, returns the callable
	ConventionNextFirst = "next-first" // continuation passed as the leading parameter
)

// ValidConventions defines the allowed calling convention strings.
var ValidConventions = map[string]bool{
	ConventionPlain:     true,
	ConventionCurried:   true,
	ConventionNextFirst: true,
}

// SpecializerSpec describes one declared per-argument constraint.
//
// The populated fields depend on Kind:
//   - any:     nothing
//   - eql:     Value (the literal to match exactly)
//   - head:    Name (the leading literal of a shaped array)
//   - type:    Name (a nominal type name)
//   - derived: Name (a symbol in the derivation tree)
//   - wrapper: Name (a wrapper tag)
type SpecializerSpec struct {
	Kind  string `json:"kind"`
	Value Value  `json:"value,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Display renders a specializer for introspection listings.
func (s SpecializerSpec) Display() string {
	switch s.Kind {
	case SpecAny:
		return "_"
	case SpecEql:
		b, err := MarshalValue(s.Value)
		if err != nil {
			return "(eql ?)"
		}
		return fmt.Sprintf("(eql %s)", b)
	default:
		return fmt.Sprintf("(%s %s)", s.Kind, s.Name)
	}
}

// BindingSpec attaches a specializer to a dispatch key: either a positional
// argument index or a named context expression.
type BindingSpec struct {
	Arg     int             `json:"arg"`               // argument index; -1 for a context key
	Context string          `json:"context,omitempty"` // context key name when Arg == -1
	Spec    SpecializerSpec `json:"spec"`
}

// KeyString renders the dispatch key for display and hashing:
// "0", "1", ... for argument positions, "ctx:<name>" for context keys.
func (b BindingSpec) KeyString() string {
	if b.Arg < 0 {
		return "ctx:" + b.Context
	}
	return strconv.Itoa(b.Arg)
}

// MethodSpec describes a registered method of a generic function.
//
// Body names a behavior in the behavior table supplied at load time; the
// engine itself accepts arbitrary Go funcs and never sees this indirection.
type MethodSpec struct {
	Bindings   []BindingSpec `json:"bindings"`
	Qualifiers []string      `json:"qualifiers,omitempty"`
	Convention string        `json:"convention,omitempty"` // defaults to plain
	Body       string        `json:"body"`
}

// GenericSpec describes a generic function in the declarative surface.
type GenericSpec struct {
	Name       string       `json:"name"`
	Doc        string       `json:"doc,omitempty"`
	Contexts   []string     `json:"contexts,omitempty"`   // context keys this generic consults
	Precedence []string     `json:"precedence,omitempty"` // dispatch keys, checked-first order
	Methods    []MethodSpec `json:"methods"`
}

// ValidationError represents a validation error with field path and message.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a SpecializerSpec for structural consistency.
func (s SpecializerSpec) Validate() []ValidationError {
	var errs []ValidationError
	if !ValidSpecKinds[s.Kind] {
		errs = append(errs, ValidationError{
			Field:   "kind",
			Message: fmt.Sprintf("invalid specializer kind %q", s.Kind),
		})
		return errs
	}
	switch s.Kind {
	case SpecAny:
		if s.Value != nil || s.Name != "" {
			errs = append(errs, ValidationError{
				Field:   "kind",
				Message: "catch-all specializer takes no value or name",
			})
		}
	case SpecEql:
		if s.Value == nil {
			errs = append(errs, ValidationError{
				Field:   "value",
				Message: "eql specializer requires a value",
			})
		}
	default:
		if s.Name == "" {
			errs = append(errs, ValidationError{
				Field:   "name",
				Message: fmt.Sprintf("%s specializer requires a name", s.Kind),
			})
		}
	}
	return errs
}

// Validate checks a MethodSpec against schema rules. Returns all errors
// (not fail-fast) for better developer experience.
func (m *MethodSpec) Validate() []ValidationError {
	var errs []ValidationError

	if m.Body == "" {
		errs = append(errs, ValidationError{
			Field:   "body",
			Message: "method body behavior name is required",
		})
	}
	if m.Convention != "" && !ValidConventions[m.Convention] {
		errs = append(errs, ValidationError{
			Field:   "convention",
			Message: fmt.Sprintf("invalid calling convention %q", m.Convention),
		})
	}

	seenKeys := make(map[string]bool)
	for i, b := range m.Bindings {
		if b.Arg < 0 && b.Context == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("bindings[%d]", i),
				Message: "context binding requires a context name",
			})
		}
		if b.Arg >= 0 && b.Context != "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("bindings[%d]", i),
				Message: "binding cannot name both an argument index and a context",
			})
		}
		key := b.KeyString()
		if seenKeys[key] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("bindings[%d]", i),
				Message: fmt.Sprintf("duplicate dispatch key %q", key),
			})
		}
		seenKeys[key] = true
		for _, se := range b.Spec.Validate() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("bindings[%d].spec.%s", i, se.Field),
				Message: se.Message,
			})
		}
	}

	return errs
}
