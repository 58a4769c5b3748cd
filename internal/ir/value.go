package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface representing constrained value types.
// Only Null, String, Int, Bool, Array, Object, and Tagged implement it.
// NO float variant - floats are forbidden in the IR (breaks determinism
// of canonical hashing).
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents a JSON null value.
// Using an explicit type ensures all Values satisfy the sealed interface.
type Null struct{}

func (Null) irValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String represents a string value.
type String string

func (String) irValue() {}

// Int represents an integer value. Always int64, never float64.
type Int int64

func (Int) irValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) irValue() {}

// Array represents an array of Value elements.
//
// Arrays whose first element is a String double as "shaped" composites:
// the head generalizer dispatches on that leading literal.
type Array []Value

func (Array) irValue() {}

// Object represents a map of string keys to Value elements.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) irValue() {}

// Tagged wraps a value under a named tag. The wrapper generalizer
// dispatches on the tag, ignoring the payload. Tags form a flat namespace;
// derivation between tags lives in the dispatch layer's symbol tree.
type Tagged struct {
	Tag   string
	Value Value
}

func (Tagged) irValue() {}

// Head returns the leading string literal of a shaped array, or "" if the
// array is empty or its first element is not a String.
func (arr Array) Head() string {
	if len(arr) == 0 {
		return ""
	}
	if s, ok := arr[0].(String); ok {
		return string(s)
	}
	return ""
}

// Pair represents a key-value pair for typed Object construction.
// This provides compile-time type safety - floats cannot be passed.
type Pair struct {
	Key   string
	Value Value
}

// NewObject creates an Object from typed key-value pairs.
// Example: NewObject(O("name", String("area")), O("count", Int(5)))
func NewObject(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// O is a shorthand Pair constructor for ergonomic Object literals.
func O(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
// CRITICAL: Must use unicode/utf16.Encode for correct surrogate handling.
func compareKeysRFC8785(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	n := min(len(ua), len(ub))
	for i := 0; i < n; i++ {
		if ua[i] != ub[i] {
			if ua[i] < ub[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(ua) < len(ub):
		return -1
	case len(ua) > len(ub):
		return 1
	default:
		return 0
	}
}

// Equal reports deep structural equality of two Values.
//
// This is the "eql" relation the exact-value generalizer relies on: two
// values that are Equal must hash to the same canonical identity and hence
// hit the same dispatch cache line.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, ae := range av {
			be, present := bv[k]
			if !present || !Equal(ae, be) {
				return false
			}
		}
		return true
	case Tagged:
		bv, ok := b.(Tagged)
		return ok && av.Tag == bv.Tag && Equal(av.Value, bv.Value)
	default:
		return false
	}
}

// KindOf returns the nominal kind name of a Value: "null", "string",
// "int", "bool", "array", "object", or "tagged". The typeOf generalizer
// builds its discriminants from these names.
func KindOf(v Value) string {
	switch v.(type) {
	case Null:
		return "null"
	case String:
		return "string"
	case Int:
		return "int"
	case Bool:
		return "bool"
	case Array:
		return "array"
	case Object:
		return "object"
	case Tagged:
		return "tagged"
	default:
		return ""
	}
}

// FromGo converts a plain Go value (as produced by encoding/json or
// yaml.v3 decoding into any) to a Value. Floats are rejected.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int64:
		return Int(val), nil
	case int:
		return Int(val), nil
	case bool:
		return Bool(val), nil
	case float64, float32:
		return nil, fmt.Errorf("floats are forbidden: %v", val)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			e, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			e, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// MustFromGo is like FromGo but panics on error. Use only in tests or when
// inputs are known to be valid.
func MustFromGo(v any) Value {
	val, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return val
}

// MarshalJSON implements json.Marshaler for Tagged.
// Tagged values serialize as {"$tag": ..., "value": ...}.
func (t Tagged) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"$tag":`)
	tag, err := json.Marshal(t.Tag)
	if err != nil {
		return nil, err
	}
	buf.Write(tag)
	buf.WriteString(`,"value":`)
	inner, err := MarshalValue(t.Value)
	if err != nil {
		return nil, err
	}
	buf.Write(inner)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for Object with sorted keys.
// NOT canonical JSON - use MarshalCanonical for identity hashing.
func (obj Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	keys := obj.SortedKeys()
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := MarshalValue(obj[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalValue serializes any Value to display JSON (sorted object keys,
// Tagged as {"$tag": ...}). NOT canonical - see MarshalCanonical.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return []byte(fmt.Sprintf("%d", int64(val))), nil
	case Bool:
		if val {
			return []byte("true"), nil
		}
		return []byte("false"), nil
	case Array:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			eb, err := MarshalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			buf.Write(eb)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case Object:
		return val.MarshalJSON()
	case Tagged:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unsupported Value type: %T", v)
	}
}

// UnmarshalValue parses display JSON into a Value. Objects carrying a
// "$tag" key decode as Tagged; everything else decodes structurally.
// Numbers with a fractional part or exponent are rejected.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return fromDecoded(raw)
}

// fromDecoded converts a json-decoded tree (with json.Number leaves) to a
// Value, decoding {"$tag": ...} objects as Tagged.
func fromDecoded(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case json.Number:
		s := val.String()
		if strings.ContainsAny(s, ".eE") {
			return nil, fmt.Errorf("floats are forbidden: %s", s)
		}
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", s, err)
		}
		return Int(n), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			e, err := fromDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = e
		}
		return arr, nil
	case map[string]any:
		if tag, ok := val["$tag"].(string); ok {
			inner, err := fromDecoded(val["value"])
			if err != nil {
				return nil, fmt.Errorf("tagged %q: %w", tag, err)
			}
			return Tagged{Tag: tag, Value: inner}, nil
		}
		obj := make(Object, len(val))
		for k, elem := range val {
			e, err := fromDecoded(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = e
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported decoded type: %T", v)
	}
}
