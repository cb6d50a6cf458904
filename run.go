package pgtx

import "context"

// Run executes fn inside a transaction begun on source: commit when fn
// returns nil, rollback otherwise. A panic in fn unwinds through the deferred
// Close, so the transaction is rolled back before the panic propagates.
//
// When fn fails, its error is what the caller gets back; a rollback failure
// on top of it is only logged.
func Run(ctx context.Context, source Beginner, fn func(txn *Txn) error, opts ...Option) error {
	txn, err := Begin(ctx, source, opts...)
	if err != nil {
		return err
	}
	defer txn.Close()

	if err := fn(txn); err != nil {
		if rbErr := txn.Rollback(ctx); rbErr != nil {
			txn.opts.Logger.Error().Str("txn_id", txn.id).Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	return txn.Commit(ctx)
}

// WithResult is Run for units of work that produce a value. The value is only
// returned when the commit went through; a result from a unit of work whose
// commit failed was never durable.
func WithResult[T any](ctx context.Context, source Beginner, fn func(txn *Txn) (T, error), opts ...Option) (T, error) {
	var result T
	err := Run(ctx, source, func(txn *Txn) error {
		var fnErr error
		result, fnErr = fn(txn)
		return fnErr
	}, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// RunNested executes fn inside a savepoint on an already open transaction,
// on the same connection. Failure undoes only the statements fn issued since
// the savepoint; the enclosing transaction stays active either way and its
// own outcome is untouched.
func RunNested(ctx context.Context, txn *Txn, fn func(txn *Txn) error) error {
	sp, err := txn.Savepoint(ctx)
	if err != nil {
		return err
	}

	if err := fn(txn); err != nil {
		if rbErr := txn.RollbackTo(ctx, sp); rbErr != nil {
			txn.opts.Logger.Error().Str("txn_id", txn.id).Str("savepoint", sp.Name()).Err(rbErr).Msg("rollback to savepoint failed")
		}
		return err
	}
	return txn.Release(ctx, sp)
}

// NestedWithResult is RunNested for units of work that produce a value.
func NestedWithResult[T any](ctx context.Context, txn *Txn, fn func(txn *Txn) (T, error)) (T, error) {
	var result T
	err := RunNested(ctx, txn, func(txn *Txn) error {
		var fnErr error
		result, fnErr = fn(txn)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
