package dispatch

import (
	"errors"
	"fmt"

	"github.com/roach88/multimethod/internal/ir"
)

// DispatchError represents a failure detected by the resolution engine.
//
// All failures form a single family distinguished by Code:
//   - No applicable method: nothing matched the call's arguments
//   - No primary method: only before/after/around methods matched
//   - No next method: a continuation was invoked past the most general method
//   - Cyclic combination: combining a method subset re-entered itself
//     (recovered internally, surfaced only if recovery is impossible)
//   - Malformed registration: rejected at registration time, never deferred
//     to call time
//
// DispatchError includes structured fields for diagnostics and recovery.
type DispatchError struct {
	// Code identifies the failure category.
	Code DispatchErrorCode

	// Message is a human-readable description.
	Message string

	// Generic identifies the affected generic function.
	Generic string

	// Method identifies the offending method (for no-next-method).
	Method string

	// Args carries the call's actual arguments (for call-time failures).
	Args ir.Array
}

// DispatchErrorCode categorizes dispatch failures.
type DispatchErrorCode string

const (
	// ErrCodeNoApplicableMethod indicates no registered method matched.
	ErrCodeNoApplicableMethod DispatchErrorCode = "NO_APPLICABLE_METHOD"

	// ErrCodeNoPrimaryMethod indicates qualified methods matched but no
	// unqualified one did.
	ErrCodeNoPrimaryMethod DispatchErrorCode = "NO_PRIMARY_METHOD"

	// ErrCodeNoNextMethod indicates a continuation was invoked with no more
	// general method remaining.
	ErrCodeNoNextMethod DispatchErrorCode = "NO_NEXT_METHOD"

	// ErrCodeCyclicCombination indicates the combination engine re-entered
	// itself for the same method subset.
	ErrCodeCyclicCombination DispatchErrorCode = "CYCLIC_COMBINATION"

	// ErrCodeMalformedRegistration indicates an invalid registration
	// (unsupported qualifiers, bad precedence, invalid specializer).
	ErrCodeMalformedRegistration DispatchErrorCode = "MALFORMED_REGISTRATION"

	// ErrCodeUndefinedGeneric indicates invocation of an unknown name.
	ErrCodeUndefinedGeneric DispatchErrorCode = "UNDEFINED_GENERIC"

	// ErrCodeNameTaken indicates a name already denotes an unrelated
	// non-generic callable.
	ErrCodeNameTaken DispatchErrorCode = "NAME_TAKEN"
)

// Error implements the error interface.
func (e *DispatchError) Error() string {
	switch {
	case e.Generic != "" && e.Method != "":
		return fmt.Sprintf("%s: %s (generic=%s, method=%s)", e.Code, e.Message, e.Generic, e.Method)
	case e.Generic != "":
		return fmt.Sprintf("%s: %s (generic=%s)", e.Code, e.Message, e.Generic)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsNoApplicableMethod returns true if the error is a no-applicable-method
// failure. Uses errors.As to handle wrapped errors.
func IsNoApplicableMethod(err error) bool {
	var de *DispatchError
	return errors.As(err, &de) && de.Code == ErrCodeNoApplicableMethod
}

// IsNoPrimaryMethod returns true if the error is a no-primary-method
// failure. Uses errors.As to handle wrapped errors.
func IsNoPrimaryMethod(err error) bool {
	var de *DispatchError
	return errors.As(err, &de) && de.Code == ErrCodeNoPrimaryMethod
}

// IsNoNextMethod returns true if the error is a no-next-method failure.
// Uses errors.As to handle wrapped errors.
func IsNoNextMethod(err error) bool {
	var de *DispatchError
	return errors.As(err, &de) && de.Code == ErrCodeNoNextMethod
}

// IsMalformedRegistration returns true if the error is a registration-time
// rejection. Uses errors.As to handle wrapped errors.
func IsMalformedRegistration(err error) bool {
	var de *DispatchError
	return errors.As(err, &de) && de.Code == ErrCodeMalformedRegistration
}

// IsUndefinedGeneric returns true if the error reports invocation of an
// unknown name. Uses errors.As to handle wrapped errors.
func IsUndefinedGeneric(err error) bool {
	var de *DispatchError
	return errors.As(err, &de) && de.Code == ErrCodeUndefinedGeneric
}

// FailureCode extracts the DispatchErrorCode from an error, or "" if the
// error is not a DispatchError. Used by the trace recorder.
func FailureCode(err error) string {
	var de *DispatchError
	if errors.As(err, &de) {
		return string(de.Code)
	}
	return ""
}

// newMalformed builds a registration-time rejection for a generic function.
func newMalformed(generic, format string, args ...any) *DispatchError {
	return &DispatchError{
		Code:    ErrCodeMalformedRegistration,
		Generic: generic,
		Message: fmt.Sprintf(format, args...),
	}
}
