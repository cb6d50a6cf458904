package pgtx

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrTxnConsumed is returned when a transaction handle is used after its
	// outcome has been decided
	ErrTxnConsumed = errors.New("transaction already consumed")

	// ErrSavepointOrder is returned when a savepoint is resolved while it is not
	// the innermost one; savepoints resolve in reverse order of creation
	ErrSavepointOrder = errors.New("savepoint resolved out of order")

	// ErrSavepointNotOwned is returned when a savepoint is resolved against a
	// transaction other than the one that created it
	ErrSavepointNotOwned = errors.New("savepoint not owned by this transaction")
)

// Kind classifies which driver operation an Error came from.
type Kind int

const (
	KindConnection Kind = iota + 1
	KindCommit
	KindRollback
	KindSavepoint
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindCommit:
		return "commit"
	case KindRollback:
		return "rollback"
	case KindSavepoint:
		return "savepoint"
	}
	return "unknown"
}

// Error wraps a driver failure with the operation it interrupted and the
// transaction it belongs to. The driver's error stays reachable through
// errors.As / errors.Is.
type Error struct {
	Kind  Kind
	TxnID string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
