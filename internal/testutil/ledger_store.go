package testutil

import (
	"context"
	"sync"

	ierr "github.com/numera/numera/internal/errors"
	"github.com/numera/numera/internal/types"
)

// DefaultMaxTxAttempts mirrors the commit retry budget of the production
// store client.
const DefaultMaxTxAttempts = 5

type ledgerItem struct {
	value   interface{}
	version int64
}

// InMemoryLedgerStore is an in-memory stand-in for the transactional ledger
// store. It keeps the production client's optimistic concurrency semantics:
// WithTx stages reads and writes, commit checks every read key against the
// version observed inside the transaction and every blind write against
// absence, and a failed check re-runs the closure on a fresh transaction.
// Closure errors are never retried.
//
// Repositories find the ambient transaction through the same context key the
// production client uses, so service code runs unmodified on top of it.
type InMemoryLedgerStore struct {
	mu    sync.Mutex
	items map[string]ledgerItem

	hookMu       sync.Mutex
	beforeCommit func()

	maxTxAttempts int
}

// NewInMemoryLedgerStore creates an empty store with the default commit
// retry budget.
func NewInMemoryLedgerStore() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{
		items:         make(map[string]ledgerItem),
		maxTxAttempts: DefaultMaxTxAttempts,
	}
}

// SetMaxTxAttempts overrides the commit retry budget. Tests that hammer one
// counter from many goroutines need more headroom than production traffic.
func (s *InMemoryLedgerStore) SetMaxTxAttempts(attempts int) {
	s.maxTxAttempts = attempts
}

// InjectBeforeCommit installs a hook that runs exactly once, before the next
// commit attempt takes the store lock. The hook uninstalls itself before it
// runs, so a hook that writes through the store does not fire for its own
// commit. Tests use it to interleave a competing committed write between a
// transaction's closure and its commit.
func (s *InMemoryLedgerStore) InjectBeforeCommit(fn func()) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.beforeCommit = fn
}

func (s *InMemoryLedgerStore) takeBeforeCommit() func() {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	fn := s.beforeCommit
	s.beforeCommit = nil
	return fn
}

// WithTx runs fn inside a transaction. An ambient transaction on the context
// is reused without committing; otherwise a new transaction is staged and
// committed when fn returns nil. Commit conflicts re-run fn up to the
// attempt budget; errors returned by fn are surfaced as-is without retrying.
func (s *InMemoryLedgerStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := s.TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	attempts := s.maxTxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxTxAttempts
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		tx := newLedgerTx(s)
		txCtx := context.WithValue(ctx, types.CtxDBTransaction, tx)

		if err = fn(txCtx); err != nil {
			return err
		}

		if hook := s.takeBeforeCommit(); hook != nil {
			hook()
		}

		if err = tx.commit(); err == nil {
			return nil
		}
		if !ierr.IsVersionConflict(err) {
			return err
		}
	}

	return ierr.WithError(err).
		WithHint("The operation kept colliding with concurrent ledger updates. Please try again.").
		WithReportableDetails(map[string]any{
			"attempts": attempts,
		}).
		Mark(ierr.ErrVersionConflict)
}

// TxFromContext returns the ambient transaction, or nil when the context
// carries none.
func (s *InMemoryLedgerStore) TxFromContext(ctx context.Context) *LedgerTx {
	if tx, ok := ctx.Value(types.CtxDBTransaction).(*LedgerTx); ok {
		return tx
	}
	return nil
}

// getCommitted reads the committed value at key outside any transaction.
func (s *InMemoryLedgerStore) getCommitted(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key]
	if !ok {
		return nil, false
	}
	return item.value, true
}

// scanCommitted returns a snapshot of every committed value.
func (s *InMemoryLedgerStore) scanCommitted() []interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make([]interface{}, 0, len(s.items))
	for _, item := range s.items {
		values = append(values, item.value)
	}
	return values
}

// Clear drops every committed item and any pending commit hook.
func (s *InMemoryLedgerStore) Clear() {
	s.mu.Lock()
	s.items = make(map[string]ledgerItem)
	s.mu.Unlock()

	s.hookMu.Lock()
	s.beforeCommit = nil
	s.hookMu.Unlock()
}

type ledgerRead struct {
	value   interface{}
	version int64
	exists  bool
}

// LedgerTx stages reads and writes for one optimistic transaction against
// the in-memory store. Reads are repeatable: the first observation of a key
// is cached and returned unchanged for every later Get. Reads never observe
// writes staged in the same transaction.
type LedgerTx struct {
	store *InMemoryLedgerStore

	mu     sync.Mutex
	reads  map[string]ledgerRead
	writes map[string]interface{}
}

func newLedgerTx(s *InMemoryLedgerStore) *LedgerTx {
	return &LedgerTx{
		store:  s,
		reads:  make(map[string]ledgerRead),
		writes: make(map[string]interface{}),
	}
}

// Get reads the committed value at key and records the observed version.
// The second return value reports whether the item exists.
func (t *LedgerTx) Get(key string) (interface{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if read, ok := t.reads[key]; ok {
		return read.value, read.exists
	}

	t.store.mu.Lock()
	item, ok := t.store.items[key]
	t.store.mu.Unlock()

	if !ok {
		t.reads[key] = ledgerRead{exists: false}
		return nil, false
	}
	t.reads[key] = ledgerRead{value: item.value, version: item.version, exists: true}
	return item.value, true
}

// Put stages a write of value at key. Staging a second write to the same
// key replaces the first.
func (t *LedgerTx) Put(key string, value interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes[key] = value
}

// commit applies the staged writes if every read key still carries the
// version observed during the transaction and every key written without a
// prior read is still absent. A failed check returns a version conflict and
// leaves the store untouched.
func (t *LedgerTx) commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	for key, read := range t.reads {
		current, ok := t.store.items[key]
		if ok != read.exists || (ok && current.version != read.version) {
			return txConflict(key)
		}
	}
	for key := range t.writes {
		if _, wasRead := t.reads[key]; wasRead {
			continue
		}
		if _, ok := t.store.items[key]; ok {
			return txConflict(key)
		}
	}

	for key, value := range t.writes {
		next := int64(1)
		if current, ok := t.store.items[key]; ok {
			next = current.version + 1
		}
		t.store.items[key] = ledgerItem{value: value, version: next}
	}
	return nil
}

func txConflict(key string) error {
	return ierr.NewError("transaction conflicts with a concurrent write").
		WithHint("Another update touched the same ledger records").
		WithReportableDetails(map[string]any{
			"key": key,
		}).
		Mark(ierr.ErrVersionConflict)
}
