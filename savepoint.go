package pgtx

import (
	"context"
	"fmt"
)

// Savepoint marks a point inside an open transaction that can be rolled back
// to without aborting the whole transaction. Savepoints form a stack on their
// owning Txn and must be resolved innermost first.
type Savepoint struct {
	name  string
	depth int
	owner *Txn
}

// Name is the identifier issued to the database.
func (s *Savepoint) Name() string { return s.name }

// Depth is the nesting level the savepoint was created at, starting at 1.
func (s *Savepoint) Depth() int { return s.depth }

// Depth reports how many savepoints are currently open on the transaction.
func (t *Txn) Depth() int { return len(t.savepoints) }

// Savepoint creates a savepoint at the current nesting depth. Names are
// derived from the depth plus a per-transaction counter, so reopening a scope
// at the same depth never reuses a name.
func (t *Txn) Savepoint(ctx context.Context) (*Savepoint, error) {
	if t.State() != StateActive {
		return nil, ErrTxnConsumed
	}

	sp := &Savepoint{
		name:  fmt.Sprintf("%s_%d_%d", t.opts.SavepointPrefix, len(t.savepoints)+1, t.seq+1),
		depth: len(t.savepoints) + 1,
		owner: t,
	}
	if _, err := t.tx.Exec(ctx, "SAVEPOINT "+sp.name); err != nil {
		return nil, &Error{Kind: KindSavepoint, TxnID: t.id, Err: err}
	}

	// the stack and the counter only move once the statement is in
	t.seq++
	t.savepoints = append(t.savepoints, sp)
	return sp, nil
}

// Release resolves a successful savepoint scope. Statements issued since the
// savepoint stay part of the enclosing transaction.
func (t *Txn) Release(ctx context.Context, sp *Savepoint) error {
	if err := t.requireTop(sp); err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, "RELEASE SAVEPOINT "+sp.name); err != nil {
		return &Error{Kind: KindSavepoint, TxnID: t.id, Err: err}
	}
	t.savepoints = t.savepoints[:len(t.savepoints)-1]
	return nil
}

// RollbackTo resolves a failed savepoint scope, undoing only the statements
// issued since the savepoint. The enclosing transaction stays active.
func (t *Txn) RollbackTo(ctx context.Context, sp *Savepoint) error {
	if err := t.requireTop(sp); err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp.name); err != nil {
		return &Error{Kind: KindSavepoint, TxnID: t.id, Err: err}
	}
	t.savepoints = t.savepoints[:len(t.savepoints)-1]
	return nil
}

// requireTop fails fast on a misuse before any driver call: resolving a
// savepoint from another transaction, on a decided transaction, or out of
// creation order would silently reorder the database's savepoint stack.
func (t *Txn) requireTop(sp *Savepoint) error {
	if sp == nil || sp.owner != t {
		return ErrSavepointNotOwned
	}
	if t.State() != StateActive {
		return ErrTxnConsumed
	}
	if n := len(t.savepoints); n == 0 || t.savepoints[n-1] != sp {
		return ErrSavepointOrder
	}
	return nil
}
