package pgtx

import (
	"context"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
)

// fakeDB simulates visibility semantics: statements stay pending on their
// fakeTx until a commit moves them into committed.
type fakeDB struct {
	mu        sync.Mutex
	committed []string

	failCommit   bool
	failRollback bool
	failExec     string // Exec fails on statements containing this

	last *fakeTx
}

func newFakeDB() *fakeDB { return &fakeDB{} }

func (db *fakeDB) Begin(ctx context.Context) (pgx.Tx, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	tx := &fakeTx{db: db, marks: map[string]int{}}
	db.last = tx
	return tx, nil
}

func (db *fakeDB) rows() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]string(nil), db.committed...)
}

// fakeTx records every driver call in ops so tests can assert that fail-fast
// paths issue none.
type fakeTx struct {
	db      *fakeDB
	pending []string
	marks   map[string]int
	ops     []string
	closed  bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.ops = append(t.ops, sql)
	if t.closed {
		return pgconn.CommandTag{}, pgx.ErrTxClosed
	}
	if t.db.failExec != "" && strings.Contains(sql, t.db.failExec) {
		return pgconn.CommandTag{}, errors.New("exec refused")
	}

	switch {
	case strings.HasPrefix(sql, "ROLLBACK TO SAVEPOINT "):
		name := strings.TrimPrefix(sql, "ROLLBACK TO SAVEPOINT ")
		at, ok := t.marks[name]
		if !ok {
			return pgconn.CommandTag{}, errors.Errorf("no such savepoint %s", name)
		}
		t.pending = t.pending[:at]
		t.dropMarksAfter(at)
		delete(t.marks, name)
	case strings.HasPrefix(sql, "RELEASE SAVEPOINT "):
		name := strings.TrimPrefix(sql, "RELEASE SAVEPOINT ")
		if _, ok := t.marks[name]; !ok {
			return pgconn.CommandTag{}, errors.Errorf("no such savepoint %s", name)
		}
		delete(t.marks, name)
	case strings.HasPrefix(sql, "SAVEPOINT "):
		t.marks[strings.TrimPrefix(sql, "SAVEPOINT ")] = len(t.pending)
	default:
		t.pending = append(t.pending, sql)
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (t *fakeTx) dropMarksAfter(at int) {
	for name, idx := range t.marks {
		if idx > at {
			delete(t.marks, name)
		}
	}
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.ops = append(t.ops, "commit")
	if t.closed {
		return pgx.ErrTxClosed
	}
	if t.db.failCommit {
		return errors.New("commit refused")
	}
	t.closed = true
	t.db.mu.Lock()
	t.db.committed = append(t.db.committed, t.pending...)
	t.db.mu.Unlock()
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.ops = append(t.ops, "rollback")
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.pending = nil
	if t.db.failRollback {
		return errors.New("rollback refused")
	}
	return nil
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("not supported")
}

func (t *fakeTx) Conn() *pgx.Conn { return nil }

func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not supported")
}

func (t *fakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not supported")
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not supported")
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }

func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
