package store

import (
	"context"
	"fmt"

	"github.com/roach88/multimethod/internal/dispatch"
	"github.com/roach88/multimethod/internal/ir"
)

// WriteCall inserts a call record and its applied-method list in one
// transaction. Uses ON CONFLICT(id) DO NOTHING for idempotency - a record
// with the same content-addressed ID is silently ignored. Other constraint
// violations (e.g. NOT NULL) still return errors.
//
// Args and Result are serialized to canonical JSON per RFC 8785 so the
// stored text is deterministic across writers.
func (s *Store) WriteCall(ctx context.Context, rec dispatch.CallRecord) error {
	argsJSON, err := marshalArgs(rec.Args)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	// NULL result on error outcomes keeps "no result" distinct from a
	// recorded null result.
	var resultJSON any
	if rec.Outcome == "ok" {
		text, err := marshalResult(rec.Result)
		if err != nil {
			return fmt.Errorf("write call: %w", err)
		}
		resultJSON = text
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write call: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO calls
		(id, token, generic, args, seq, outcome, result, failure_code,
		 dispatcher_misses, combine_builds, engine_version, ir_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.CallID,
		rec.Token,
		rec.Generic,
		argsJSON,
		rec.Seq,
		rec.Outcome,
		resultJSON,
		rec.FailureCode,
		rec.DispatcherMisses,
		rec.CombineBuilds,
		ir.EngineVersion,
		ir.IRVersion,
	)
	if err != nil {
		return fmt.Errorf("write call: %w", err)
	}

	// Skip applied methods when the call row was a duplicate; the original
	// write already carried them.
	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write call: rows affected: %w", err)
	}
	if inserted > 0 {
		for pos, methodID := range rec.Applied {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO applied_methods (call_id, position, method_id)
				VALUES (?, ?, ?)
			`, rec.CallID, pos, methodID); err != nil {
				return fmt.Errorf("write call: applied method %d: %w", pos, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write call: commit: %w", err)
	}

	return nil
}

// RecordCall implements dispatch.Recorder, letting the store be attached
// to an engine via dispatch.WithRecorder. The engine calls this synchronously
// inside Invoke, so there is no caller-supplied context to thread through.
func (s *Store) RecordCall(rec dispatch.CallRecord) error {
	return s.WriteCall(context.Background(), rec)
}
