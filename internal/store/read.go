package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/multimethod/internal/dispatch"
	"github.com/roach88/multimethod/internal/ir"
	"github.com/roach88/multimethod/internal/tracequery"
)

// callColumns is the column list scanCall expects, in order.
var callColumns = []string{
	"id", "token", "generic", "args", "seq", "outcome", "result",
	"failure_code", "dispatcher_misses", "combine_builds",
}

// CallFilter narrows ReadCalls. Zero-value fields are not applied.
type CallFilter struct {
	Generic     string // exact generic name
	Token       string // exact call token
	Outcome     string // "ok" or "error"
	FailureCode string // exact failure code, e.g. "NO_APPLICABLE_METHOD"
	Applied     string // method id that ran during the call
	MinSeq      int64  // lowest seq, 0 = unbounded
	MaxSeq      int64  // highest seq, 0 = unbounded
	Limit       int    // max rows, 0 = unlimited
}

// predicate lowers the filter into the trace query language.
func (f CallFilter) predicate() tracequery.Predicate {
	and := tracequery.And{}
	if f.Generic != "" {
		and.Predicates = append(and.Predicates, tracequery.Equals{Field: "generic", Value: ir.String(f.Generic)})
	}
	if f.Token != "" {
		and.Predicates = append(and.Predicates, tracequery.Equals{Field: "token", Value: ir.String(f.Token)})
	}
	if f.Outcome != "" {
		and.Predicates = append(and.Predicates, tracequery.Equals{Field: "outcome", Value: ir.String(f.Outcome)})
	}
	if f.FailureCode != "" {
		and.Predicates = append(and.Predicates, tracequery.Equals{Field: "failure_code", Value: ir.String(f.FailureCode)})
	}
	if f.Applied != "" {
		and.Predicates = append(and.Predicates, tracequery.AppliedMethod{MethodID: f.Applied})
	}
	if f.MinSeq > 0 || f.MaxSeq > 0 {
		and.Predicates = append(and.Predicates, tracequery.SeqRange{Min: f.MinSeq, Max: f.MaxSeq})
	}
	return and
}

// ReadCalls returns call records matching the filter.
// Results are ordered deterministically: ORDER BY seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadCalls(ctx context.Context, filter CallFilter) ([]dispatch.CallRecord, error) {
	return s.QueryCalls(ctx, filter.predicate(), filter.Limit)
}

// QueryCalls returns call records matching an arbitrary trace query
// predicate, with the same deterministic ordering as ReadCalls.
func (s *Store) QueryCalls(ctx context.Context, p tracequery.Predicate, limit int) ([]dispatch.CallRecord, error) {
	query, args, err := tracequery.CompileCalls(callColumns, p, limit)
	if err != nil {
		return nil, fmt.Errorf("compile call query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	var records []dispatch.CallRecord
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}

	// Applied-method lists come from a second query per call. Traces are
	// read far less often than they are written, so the N+1 is acceptable.
	for i := range records {
		applied, err := s.readAppliedMethods(ctx, records[i].CallID)
		if err != nil {
			return nil, err
		}
		records[i].Applied = applied
	}

	if records == nil {
		records = []dispatch.CallRecord{}
	}
	return records, nil
}

// ReadCall retrieves a single call record by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadCall(ctx context.Context, id string) (dispatch.CallRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, token, generic, args, seq, outcome, result, failure_code,
		       dispatcher_misses, combine_builds
		FROM calls
		WHERE id = ?
	`, id)

	rec, err := scanCall(row)
	if err != nil {
		return dispatch.CallRecord{}, err
	}
	rec.Applied, err = s.readAppliedMethods(ctx, rec.CallID)
	if err != nil {
		return dispatch.CallRecord{}, err
	}
	return rec, nil
}

// LastSeq returns the highest recorded seq, or 0 for an empty store.
// Used to resume the logical clock past everything already recorded.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM calls`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Store) readAppliedMethods(ctx context.Context, callID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT method_id FROM applied_methods
		WHERE call_id = ?
		ORDER BY position ASC
	`, callID)
	if err != nil {
		return nil, fmt.Errorf("query applied methods: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan applied method: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied methods: %w", err)
	}
	return ids, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCall(sc scanner) (dispatch.CallRecord, error) {
	var (
		rec        dispatch.CallRecord
		argsJSON   string
		resultJSON sql.NullString
	)
	err := sc.Scan(
		&rec.CallID,
		&rec.Token,
		&rec.Generic,
		&argsJSON,
		&rec.Seq,
		&rec.Outcome,
		&resultJSON,
		&rec.FailureCode,
		&rec.DispatcherMisses,
		&rec.CombineBuilds,
	)
	if err != nil {
		return dispatch.CallRecord{}, fmt.Errorf("scan call: %w", err)
	}

	rec.Args, err = unmarshalArgs(argsJSON)
	if err != nil {
		return dispatch.CallRecord{}, err
	}
	if resultJSON.Valid {
		rec.Result, err = unmarshalResult(resultJSON.String)
		if err != nil {
			return dispatch.CallRecord{}, err
		}
	}
	return rec, nil
}
