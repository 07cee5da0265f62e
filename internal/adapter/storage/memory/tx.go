package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"marketplace-settlement/internal/core/domain"
	"marketplace-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// lockTable hands out one exclusive lock per row key. Waiters give up when
// their context ends or the store's lock timeout passes.
type lockTable struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{slots: make(map[string]chan struct{})}
}

func (l *lockTable) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *lockTable) acquire(ctx context.Context, key string, timeout time.Duration) error {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("lock %s: %w: %w", key, ports.ErrLockTimeout, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("lock %s: %w", key, ports.ErrLockTimeout)
	}
}

func (l *lockTable) release(key string) {
	<-l.slot(key)
}

// Tx is a unit of work against the Store. Rows read FOR UPDATE stay locked
// until Commit or Rollback; writes are buffered and applied only on Commit.
// It satisfies pgx.Tx so the same repository ports serve both drivers. There
// is no SQL engine behind it: the statement methods fail with
// errors.ErrUnsupported.
type Tx struct {
	store *Store
	held  []string
	owned map[string]bool

	wallets  map[uuid.UUID]domain.Wallet
	products map[uuid.UUID]domain.Product
	orders   map[uuid.UUID]domain.Order
	deferred []func(s *Store)
	done     bool
}

func newTx(s *Store) *Tx {
	return &Tx{
		store:    s,
		owned:    make(map[string]bool),
		wallets:  make(map[uuid.UUID]domain.Wallet),
		products: make(map[uuid.UUID]domain.Product),
		orders:   make(map[uuid.UUID]domain.Order),
	}
}

// lock is re-entrant within one Tx.
func (t *Tx) lock(ctx context.Context, key string) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	if t.owned[key] {
		return nil
	}
	if err := t.store.locks.acquire(ctx, key, t.store.lockTimeout); err != nil {
		return err
	}
	t.owned[key] = true
	t.held = append(t.held, key)
	return nil
}

func (t *Tx) later(fn func(s *Store)) {
	t.deferred = append(t.deferred, fn)
}

// Commit publishes buffered writes atomically and releases row locks.
func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	s := t.store
	s.mu.Lock()
	for id, w := range t.wallets {
		s.wallets[id] = w
	}
	for id, p := range t.products {
		s.products[id] = p
	}
	for id, o := range t.orders {
		s.orders[id] = o
	}
	for _, fn := range t.deferred {
		fn(s)
	}
	s.mu.Unlock()

	t.finish()
	return nil
}

// Rollback discards buffered writes and releases row locks.
func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.finish()
	return nil
}

func (t *Tx) finish() {
	t.done = true
	for i := len(t.held) - 1; i >= 0; i-- {
		t.store.locks.release(t.held[i])
	}
	t.held = nil
}

func (s *Store) txOf(tx pgx.Tx) (*Tx, error) {
	mt, ok := tx.(*Tx)
	if !ok || mt.store != s {
		return nil, fmt.Errorf("memory: transaction does not belong to this store")
	}
	if mt.done {
		return nil, pgx.ErrTxClosed
	}
	return mt, nil
}

var _ pgx.Tx = (*Tx)(nil)

func unsupported(op string) error {
	return fmt.Errorf("memory tx: %s: %w", op, errors.ErrUnsupported)
}

// Begin would open a savepoint; nested units of work are not supported.
func (t *Tx) Begin(context.Context) (pgx.Tx, error) { return nil, unsupported("Begin") }

func (t *Tx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, unsupported("Exec")
}

func (t *Tx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, unsupported("Query")
}

func (t *Tx) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{err: unsupported("QueryRow")}
}

func (t *Tx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, unsupported("CopyFrom")
}

func (t *Tx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	return errBatch{err: unsupported("SendBatch")}
}

func (t *Tx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, unsupported("Prepare")
}

// LargeObjects returns the zero value; there is no connection to back it.
func (t *Tx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *Tx) Conn() *pgx.Conn { return nil }

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type errBatch struct{ err error }

func (b errBatch) Exec() (pgconn.CommandTag, error) { return pgconn.CommandTag{}, b.err }
func (b errBatch) Query() (pgx.Rows, error)         { return nil, b.err }
func (b errBatch) QueryRow() pgx.Row                { return errRow{err: b.err} }
func (b errBatch) Close() error                     { return b.err }
