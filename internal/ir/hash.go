package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainMethod = "multimethod/method/v1"
	DomainSubset = "multimethod/subset/v1"
	DomainCall   = "multimethod/call/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalSpecializer renders a SpecializerSpec for hashing.
func canonicalSpecializer(s SpecializerSpec) Object {
	obj := Object{"kind": String(s.Kind)}
	if s.Value != nil {
		obj["value"] = s.Value
	}
	if s.Name != "" {
		obj["name"] = String(s.Name)
	}
	return obj
}

// MethodID computes the replacement identity of a method: the pair
// (specializers, qualifiers). Registering a method whose MethodID equals an
// existing entry's replaces that entry in place; the body and calling
// convention are deliberately EXCLUDED so a redefinition with a new body
// lands on the same identity.
//
// The ID is stable across processes given the same declaration.
// Returns an error if an eql value cannot be canonically marshaled.
func MethodID(bindings []BindingSpec, qualifiers []string) (string, error) {
	bound := make(Array, len(bindings))
	for i, b := range bindings {
		bound[i] = Object{
			"key":  String(b.KeyString()),
			"spec": canonicalSpecializer(b.Spec),
		}
	}
	quals := make(Array, len(qualifiers))
	for i, q := range qualifiers {
		quals[i] = String(q)
	}

	canonical, err := MarshalCanonical(Object{
		"bindings":   bound,
		"qualifiers": quals,
	})
	if err != nil {
		return "", fmt.Errorf("MethodID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainMethod, canonical), nil
}

// SubsetKey computes the combined-callable memo key for one applicable
// method subset of one generic function. Order matters: the same methods in
// a different specificity order are a different combination.
func SubsetKey(generic string, methodIDs []string) (string, error) {
	ids := make(Array, len(methodIDs))
	for i, id := range methodIDs {
		ids[i] = String(id)
	}

	canonical, err := MarshalCanonical(Object{
		"generic": String(generic),
		"methods": ids,
	})
	if err != nil {
		return "", fmt.Errorf("SubsetKey: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainSubset, canonical), nil
}

// CallID computes the content-addressed identity of one recorded dispatch,
// used by the trace store. The ID is stable across replays given the same
// inputs.
func CallID(token, generic string, args Array, seq int64) (string, error) {
	canonical, err := MarshalCanonical(Object{
		"token":   String(token),
		"generic": String(generic),
		"args":    args,
		"seq":     Int(seq),
	})
	if err != nil {
		return "", fmt.Errorf("CallID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainCall, canonical), nil
}

// ValueKey computes a canonical identity string for a single value, used by
// the eql generalizer as a discriminant component. Two values that are
// Equal always share a ValueKey.
func ValueKey(v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ValueKey: failed to marshal: %w", err)
	}
	return string(canonical), nil
}

// MustMethodID is like MethodID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustMethodID(bindings []BindingSpec, qualifiers []string) string {
	id, err := MethodID(bindings, qualifiers)
	if err != nil {
		panic(err)
	}
	return id
}

// MustSubsetKey is like SubsetKey but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSubsetKey(generic string, methodIDs []string) string {
	key, err := SubsetKey(generic, methodIDs)
	if err != nil {
		panic(err)
	}
	return key
}
