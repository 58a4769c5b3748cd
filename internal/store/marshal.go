package store

import (
	"fmt"

	"github.com/roach88/multimethod/internal/ir"
)

// marshalArgs converts an argument array to canonical JSON TEXT for storage.
// Canonical JSON keeps the stored text byte-identical to what the call ID
// was hashed over.
func marshalArgs(args ir.Array) (string, error) {
	if args == nil {
		args = ir.Array{}
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// marshalResult converts a result value to canonical JSON TEXT.
// A nil result (error outcome) maps to SQL NULL via the caller.
func marshalResult(v ir.Value) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs parses canonical JSON TEXT back to an argument array.
// Uses ir.UnmarshalValue, which decodes integers via json.Number to avoid
// float64 precision loss and restores {"$tag": ...} objects as Tagged.
func unmarshalArgs(data string) (ir.Array, error) {
	if data == "" {
		return ir.Array{}, nil
	}
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	arr, ok := v.(ir.Array)
	if !ok {
		return nil, fmt.Errorf("unmarshal args: expected array, got %T", v)
	}
	return arr, nil
}

// unmarshalResult parses canonical JSON TEXT back to a result value.
func unmarshalResult(data string) (ir.Value, error) {
	v, err := ir.UnmarshalValue([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return v, nil
}
