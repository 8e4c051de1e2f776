package heap

import (
	"sync"

	"github.com/corey/jsig/internal/filekey"
)

// Txn is a reparse transaction. Writes through a ReparseMutator update only
// the current slot of each touched entry; the old slot keeps the last
// committed generation until Commit advances it. Rollback restores the
// current slot from old for every touched entry.
type Txn struct {
	h       *Heap
	initial bool
	done    bool

	mu        sync.Mutex
	touched   map[filekey.FileKey]*Entry
	unchanged filekey.Set
	notFound  filekey.Set
}

// touch records an entry as written this transaction.
func (t *Txn) touch(key filekey.FileKey, e *Entry) {
	t.mu.Lock()
	t.touched[key] = e
	t.mu.Unlock()
}

// RecordUnchanged projects the "unchanged" result classification back onto
// the heap at transaction close: those entries carry forward as-is.
func (t *Txn) RecordUnchanged(set filekey.Set) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key := range set {
		t.unchanged.Add(key)
		// Align generations so the next reparse still sees the committed
		// hash in the old slot.
		if e := t.h.entry(key, false); e != nil {
			e.mu.Lock()
			e.old = e.cur
			e.mu.Unlock()
		}
	}
}

// RecordNotFound writes NotFound into the current slot of every key in set.
func (t *Txn) RecordNotFound(set filekey.Set) {
	for key := range set {
		e := t.h.entry(key, true)
		e.mu.Lock()
		e.cur = slot{kind: KindNotFound, module: e.cur.module}
		e.mu.Unlock()
		t.touch(key, e)
		t.mu.Lock()
		t.notFound.Add(key)
		t.mu.Unlock()
	}
}

// RecordedUnchanged returns the keys recorded unchanged this transaction.
func (t *Txn) RecordedUnchanged() filekey.Set {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(filekey.Set, len(t.unchanged))
	out.Union(t.unchanged)
	return out
}

// Commit advances generations: for every touched entry, the current slot is
// copied into the old slot.
func (t *Txn) Commit() {
	t.mu.Lock()
	for _, e := range t.touched {
		e.mu.Lock()
		e.old = e.cur
		e.mu.Unlock()
	}
	t.mu.Unlock()
	t.close()
}

// Rollback discards every write of this transaction, restoring the current
// slot from the old generation.
func (t *Txn) Rollback() {
	t.mu.Lock()
	for _, e := range t.touched {
		e.mu.Lock()
		e.cur = e.old
		e.mu.Unlock()
	}
	t.mu.Unlock()
	t.close()
}

func (t *Txn) close() {
	t.h.txnMu.Lock()
	if t.h.txn == t {
		t.h.txn = nil
	}
	t.done = true
	t.h.txnMu.Unlock()
}
