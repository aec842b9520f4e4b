package tx

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dErrors "travelcred/pkg/domain-errors"
)

// DefaultTimeout bounds a transaction when the caller set no deadline.
const DefaultTimeout = 5 * time.Second

// Runner provides a transactional boundary. Implementations serialize all
// callers of the same runner for the full validate-then-write span.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Lock is an exclusive lock whose acquisition honours context cancellation.
type Lock struct {
	ch chan struct{}
}

func NewLock() *Lock {
	return &Lock{ch: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is held or ctx is done.
func (l *Lock) Acquire(ctx context.Context) error {
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "timed out waiting for registry lock")
	}
}

func (l *Lock) Release() {
	<-l.ch
}

func boundContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return ctx, func() {}, dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, cancel, nil
}

// MemoryRunner serializes in-memory mutations behind one lock. Stores used
// with it must perform every check before their first write so a failed
// callback leaves nothing behind.
type MemoryRunner struct {
	lock    *Lock
	timeout time.Duration
}

func NewMemoryRunner() *MemoryRunner {
	return &MemoryRunner{lock: NewLock()}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel, err := boundContext(ctx, r.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	if err := r.lock.Acquire(ctx); err != nil {
		return err
	}
	defer r.lock.Release()

	ctx, hooks := withHooks(ctx)
	if err := fn(ctx); err != nil {
		return err
	}
	hooks.run()
	return nil
}

// SQLRunner wraps each callback in a database transaction. An in-process lock
// orders commits within this process and a transaction-scoped advisory lock
// keyed by lockKey extends the critical section across processes.
// Commit hooks run after the advisory lock is released, so hooks of runners
// with different lock keys may run in either order.
type SQLRunner struct {
	db      *sql.DB
	lock    *Lock
	lockKey int64
	timeout time.Duration
}

func NewSQLRunner(db *sql.DB, lockKey int64) *SQLRunner {
	return &SQLRunner{db: db, lock: NewLock(), lockKey: lockKey}
}

func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel, err := boundContext(ctx, r.timeout)
	if err != nil {
		return err
	}
	defer cancel()

	if err := r.lock.Acquire(ctx); err != nil {
		return err
	}
	defer r.lock.Release()

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if _, err := sqlTx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, r.lockKey); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	ctx, hooks := withHooks(WithTx(ctx, sqlTx))
	if err := fn(ctx); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	hooks.run()
	return nil
}
