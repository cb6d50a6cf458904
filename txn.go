// Package pgtx provides safe transaction lifecycle management on top of pgx.
//
// A Txn is decided exactly once: it moves from StateActive to StateCommitted
// or StateRolledBack and never back. Deferring Close right after Begin
// guarantees an undecided transaction is rolled back however the scope ends,
// so the connection can never leak.
package pgtx

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/atomic"
)

// State is the lifecycle state of a Txn.
type State int32

const (
	StateActive State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled back"
	}
	return "unknown"
}

// Txn owns one open database transaction. It is not safe for concurrent use;
// ownership moves into a unit of work and back, it is never shared.
type Txn struct {
	tx         pgx.Tx
	state      atomic.Int32
	savepoints []*Savepoint
	seq        int
	id         string
	opts       Options
}

// Begin opens a transaction on source and returns its handle. The caller is
// expected to defer Close on it immediately.
func Begin(ctx context.Context, source Beginner, opts ...Option) (*Txn, error) {
	opt := defaultOptions()
	for _, v := range opts {
		v(&opt)
	}

	tx, err := source.Begin(ctx)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Err: err}
	}
	return &Txn{tx: tx, id: uuid.NewString(), opts: opt}, nil
}

// ID identifies the transaction in log events.
func (t *Txn) ID() string { return t.id }

// State reports the current lifecycle state.
func (t *Txn) State() State { return State(t.state.Load()) }

// Executor exposes the open transaction for issuing statements. It fails with
// ErrTxnConsumed once the transaction is decided; no driver call is made.
func (t *Txn) Executor() (Executor, error) {
	if t.State() != StateActive {
		return nil, ErrTxnConsumed
	}
	return t.tx, nil
}

// Commit decides the transaction. On driver failure nothing is durable: the
// handle is forced to StateRolledBack, a best-effort rollback releases the
// connection, and the commit error is returned. A commit cannot be retried on
// the same handle either way.
func (t *Txn) Commit(ctx context.Context) error {
	if !t.state.CompareAndSwap(int32(StateActive), int32(StateCommitted)) {
		return ErrTxnConsumed
	}

	if err := t.tx.Commit(ctx); err != nil {
		t.state.Store(int32(StateRolledBack))
		// pgx may have closed the tx already when commit fails
		if rbErr := t.tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			t.opts.Logger.Error().Str("txn_id", t.id).Err(rbErr).Msg("rollback after failed commit")
		}
		return &Error{Kind: KindCommit, TxnID: t.id, Err: err}
	}
	return nil
}

// Rollback decides the transaction. The handle is terminal afterwards even if
// the driver reports a failure; the failure is surfaced, not retried.
func (t *Txn) Rollback(ctx context.Context) error {
	if !t.state.CompareAndSwap(int32(StateActive), int32(StateRolledBack)) {
		return ErrTxnConsumed
	}

	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return &Error{Kind: KindRollback, TxnID: t.id, Err: err}
	}
	return nil
}

// Close rolls the transaction back if it is still undecided and is a no-op
// otherwise, so it is safe to defer unconditionally. It runs on its own
// context: cleanup still fires when the caller's context is already cancelled.
// Failures have no caller to return to and go to the configured logger.
func (t *Txn) Close() {
	if !t.state.CompareAndSwap(int32(StateActive), int32(StateRolledBack)) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		t.opts.Logger.Error().Str("txn_id", t.id).Err(err).Msg("rollback of abandoned transaction")
	}
}
