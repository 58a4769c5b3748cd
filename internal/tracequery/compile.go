package tracequery

import (
	"fmt"
	"strings"

	"github.com/roach88/multimethod/internal/ir"
)

// Fields lists the calls-table columns a predicate may reference.
// The whitelist doubles as an injection guard: Equals fields are the
// only identifiers that originate outside this package, and they never
// reach SQL without passing this check.
var Fields = map[string]bool{
	"id":             true,
	"token":          true,
	"generic":        true,
	"outcome":        true,
	"failure_code":   true,
	"seq":            true,
	"engine_version": true,
	"ir_version":     true,
}

// Compile renders a predicate as a SQL WHERE fragment with bind
// parameters. A nil predicate compiles to a tautology.
func Compile(p Predicate) (string, []any, error) {
	if p == nil {
		return "1 = 1", nil, nil
	}

	switch pred := p.(type) {
	case Equals:
		return compileEquals(pred)
	case *Equals:
		return compileEquals(*pred)
	case And:
		return compileAnd(pred)
	case *And:
		return compileAnd(*pred)
	case SeqRange:
		return compileSeqRange(pred)
	case *SeqRange:
		return compileSeqRange(*pred)
	case AppliedMethod:
		return compileAppliedMethod(pred)
	case *AppliedMethod:
		return compileAppliedMethod(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type %T", p)
	}
}

// CompileCalls renders a complete SELECT over the calls table: the
// predicate as WHERE, a deterministic ORDER BY (sequence, then call id
// with binary collation), and an optional LIMIT.
func CompileCalls(columns []string, p Predicate, limit int) (string, []any, error) {
	where, params, err := Compile(p)
	if err != nil {
		return "", nil, err
	}

	q := fmt.Sprintf(`SELECT %s FROM calls WHERE %s ORDER BY seq ASC, id COLLATE BINARY ASC`,
		strings.Join(columns, ", "), where)
	if limit > 0 {
		q += " LIMIT ?"
		params = append(params, limit)
	}
	return q, params, nil
}

func compileEquals(eq Equals) (string, []any, error) {
	if !Fields[eq.Field] {
		return "", nil, fmt.Errorf("unknown field %q", eq.Field)
	}
	param, err := valueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("field %q: %w", eq.Field, err)
	}
	return eq.Field + " = ?", []any{param}, nil
}

func compileAnd(and And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, sub := range and.Predicates {
		sql, subParams, err := Compile(sub)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, subParams...)
	}
	return "(" + strings.Join(parts, " AND ") + ")", params, nil
}

func compileSeqRange(r SeqRange) (string, []any, error) {
	switch {
	case r.Min > 0 && r.Max > 0:
		if r.Max < r.Min {
			return "", nil, fmt.Errorf("empty seq range [%d, %d]", r.Min, r.Max)
		}
		return "seq BETWEEN ? AND ?", []any{r.Min, r.Max}, nil
	case r.Min > 0:
		return "seq >= ?", []any{r.Min}, nil
	case r.Max > 0:
		return "seq <= ?", []any{r.Max}, nil
	default:
		return "1 = 1", nil, nil
	}
}

func compileAppliedMethod(a AppliedMethod) (string, []any, error) {
	if a.MethodID == "" {
		return "", nil, fmt.Errorf("applied-method predicate needs a method id")
	}
	return "EXISTS (SELECT 1 FROM applied_methods WHERE call_id = calls.id AND method_id = ?)",
		[]any{a.MethodID}, nil
}

// valueToParam converts a literal to a SQL bind parameter. Only scalar
// values are comparable against calls-table columns.
func valueToParam(v ir.Value) (any, error) {
	switch val := v.(type) {
	case ir.String:
		return string(val), nil
	case ir.Int:
		return int64(val), nil
	case ir.Bool:
		return bool(val), nil
	case nil:
		return nil, fmt.Errorf("missing comparison value")
	default:
		return nil, fmt.Errorf("%T is not comparable against a call column", v)
	}
}
