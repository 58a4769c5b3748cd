package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/multimethod/internal/ir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// GenericSpec errors (E101-E109)
	ErrGenericNameEmpty  = "E101" // generic name is required
	ErrGenericNoMethods  = "E102" // at least one method required
	ErrDuplicateGeneric  = "E103" // duplicate generic name in one definition set
	ErrBadPrecedenceKey  = "E104" // precedence names a non-dispatchable key
	ErrUndeclaredContext = "E105" // method binds a context the generic never declares

	// MethodSpec errors (E110-E119)
	ErrMethodBodyEmpty    = "E110" // body behavior name is required
	ErrBadConvention      = "E111" // unknown calling convention
	ErrBadQualifiers      = "E112" // unsupported qualifier combination
	ErrBadBinding         = "E113" // malformed dispatch binding
	ErrDuplicateKey       = "E114" // duplicate dispatch key within a method
	ErrBadSpecializer     = "E115" // invalid specializer
	ErrDuplicateMethod    = "E116" // two methods share (specializers, qualifiers) identity
	ErrUnhashableEqlValue = "E117" // eql value cannot be canonically hashed
)

// Warning codes (W100-W199). Warnings never block registration.
const (
	WarnDispatchKeyMismatch = "W100" // methods disagree on which keys they constrain
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate validates compiled IR against registration rules.
// Returns all errors found (does not fail-fast).
// Supports GenericSpec and MethodSpec types.
func Validate(v any) []ValidationError {
	switch spec := v.(type) {
	case *ir.GenericSpec:
		return validateGenericSpec(spec)
	case ir.GenericSpec:
		return validateGenericSpec(&spec)
	case *ir.MethodSpec:
		return validateMethodSpec(spec, "")
	case ir.MethodSpec:
		return validateMethodSpec(&spec, "")
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

// ValidateAll validates a whole definition set, including cross-generic
// rules (duplicate names).
func ValidateAll(specs []*ir.GenericSpec) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, spec := range specs {
		if seen[spec.Name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("generic[%d]", i),
				Message: fmt.Sprintf("duplicate generic name %q", spec.Name),
				Code:    ErrDuplicateGeneric,
			})
		}
		seen[spec.Name] = true
		errs = append(errs, validateGenericSpec(spec)...)
	}
	return errs
}

func validateGenericSpec(spec *ir.GenericSpec) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(spec.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   "name",
			Message: "generic name is required and must be non-empty",
			Code:    ErrGenericNameEmpty,
		})
	}
	if len(spec.Methods) == 0 {
		errs = append(errs, ValidationError{
			Field:   "methods",
			Message: "at least one method is required",
			Code:    ErrGenericNoMethods,
		})
	}

	declaredCtx := make(map[string]bool)
	for _, c := range spec.Contexts {
		declaredCtx[c] = true
	}

	// Union of dispatch keys across methods: what precedence may name.
	dispatchable := make(map[string]bool)
	methodIDs := make(map[string]int)

	for i, m := range spec.Methods {
		field := fmt.Sprintf("methods[%d]", i)
		errs = append(errs, validateMethodSpec(&m, field)...)

		for _, b := range m.Bindings {
			dispatchable[b.KeyString()] = true
			if b.Arg < 0 && b.Context != "" && !declaredCtx[b.Context] {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("binds context %q which the generic does not declare", b.Context),
					Code:    ErrUndeclaredContext,
				})
			}
		}

		// E116/E117: replacement identity must be computable and unique
		// within one definition file - two entries with the same identity
		// would silently shadow each other at load time.
		id, err := ir.MethodID(m.Bindings, m.Qualifiers)
		if err != nil {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("eql value cannot be hashed: %v", err),
				Code:    ErrUnhashableEqlValue,
			})
			continue
		}
		if prev, dup := methodIDs[id]; dup {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("same specializers and qualifiers as methods[%d]; later entry would replace the earlier", prev),
				Code:    ErrDuplicateMethod,
			})
		}
		methodIDs[id] = i
	}

	// E104: precedence must name keys some method dispatches on.
	for i, key := range spec.Precedence {
		if !dispatchable[key] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("precedence[%d]", i),
				Message: fmt.Sprintf("key %q is not constrained by any method", key),
				Code:    ErrBadPrecedenceKey,
			})
		}
	}

	return errs
}

func validateMethodSpec(m *ir.MethodSpec, prefix string) []ValidationError {
	join := func(f string) string {
		if prefix == "" {
			return f
		}
		if f == "" {
			return prefix
		}
		return prefix + "." + f
	}

	var errs []ValidationError

	if m.Body == "" {
		errs = append(errs, ValidationError{
			Field:   join("body"),
			Message: "method body behavior name is required",
			Code:    ErrMethodBodyEmpty,
		})
	}
	if m.Convention != "" && !ir.ValidConventions[m.Convention] {
		errs = append(errs, ValidationError{
			Field:   join("convention"),
			Message: fmt.Sprintf("invalid calling convention %q", m.Convention),
			Code:    ErrBadConvention,
		})
	}

	if msg, ok := qualifierProblem(m.Qualifiers); ok {
		errs = append(errs, ValidationError{
			Field:   join("qualifiers"),
			Message: msg,
			Code:    ErrBadQualifiers,
		})
	}

	seenKeys := make(map[string]bool)
	for i, b := range m.Bindings {
		bf := join(fmt.Sprintf("bindings[%d]", i))
		if b.Arg < 0 && b.Context == "" {
			errs = append(errs, ValidationError{
				Field:   bf,
				Message: "context binding requires a context name",
				Code:    ErrBadBinding,
			})
		}
		if b.Arg >= 0 && b.Context != "" {
			errs = append(errs, ValidationError{
				Field:   bf,
				Message: "binding cannot name both an argument index and a context",
				Code:    ErrBadBinding,
			})
		}
		key := b.KeyString()
		if seenKeys[key] {
			errs = append(errs, ValidationError{
				Field:   bf,
				Message: fmt.Sprintf("duplicate dispatch key %q", key),
				Code:    ErrDuplicateKey,
			})
		}
		seenKeys[key] = true
		for _, se := range b.Spec.Validate() {
			errs = append(errs, ValidationError{
				Field:   bf + ".spec." + se.Field,
				Message: se.Message,
				Code:    ErrBadSpecializer,
			})
		}
	}

	return errs
}

// qualifierProblem classifies a qualifier list the way registration will:
// an optional leading ("tag", <name>) pair, then nothing (primary) or
// exactly one of before/after/around.
func qualifierProblem(quals []string) (string, bool) {
	rest := quals
	if len(rest) >= 1 && rest[0] == ir.QualifierTag {
		if len(rest) < 2 || rest[1] == "" {
			return `the "tag" qualifier requires a following name`, true
		}
		rest = rest[2:]
	}
	switch {
	case len(rest) == 0:
		return "", false
	case len(rest) == 1 && (rest[0] == ir.QualifierBefore ||
		rest[0] == ir.QualifierAfter || rest[0] == ir.QualifierAround):
		return "", false
	default:
		return fmt.Sprintf("unsupported qualifier combination %v", quals), true
	}
}

// Lint reports non-blocking warnings for a generic: currently only the
// dispatch-key mismatch, where methods disagree on which keys they
// constrain. Registration stays permissive (the plan unions the keys) but
// the mismatch is usually a declaration slip.
func Lint(spec *ir.GenericSpec) []ValidationError {
	var warns []ValidationError

	keySets := make([]map[string]bool, len(spec.Methods))
	for i, m := range spec.Methods {
		keySets[i] = make(map[string]bool)
		for _, b := range m.Bindings {
			keySets[i][b.KeyString()] = true
		}
	}
	for i := 1; i < len(keySets); i++ {
		if !sameKeySet(keySets[0], keySets[i]) {
			warns = append(warns, ValidationError{
				Field:   fmt.Sprintf("methods[%d]", i),
				Message: "dispatch keys differ from methods[0]; the dispatch plan will use the union",
				Code:    WarnDispatchKeyMismatch,
			})
		}
	}
	return warns
}

func sameKeySet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
