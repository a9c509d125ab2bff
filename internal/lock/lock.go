// Package lock serializes mutations per ledger account.
//
// A Table hands out one mutex per account id. Callers that touch several
// accounts lock them all at once through Acquire, which takes the mutexes in
// sorted id order so two transfers A->B and B->A cannot deadlock.
package lock

import (
	"sort"
	"sync"
)

type entry struct {
	mu   sync.Mutex
	refs int
}

// Table is a set of per-key mutexes. The zero value is ready to use.
type Table struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewTable returns an empty lock table.
func NewTable() *Table {
	return &Table{entries: make(map[string]*entry)}
}

// Acquire locks every non-empty key and returns a function that releases them.
// Duplicate keys are locked once.
func (t *Table) Acquire(keys ...string) (release func()) {
	ordered := normalize(keys)

	held := make([]*entry, 0, len(ordered))
	for _, k := range ordered {
		e := t.ref(k)
		e.mu.Lock()
		held = append(held, e)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
			}
			for _, k := range ordered {
				t.unref(k)
			}
		})
	}
}

// Len returns the number of keys currently referenced.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Table) ref(key string) *entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries == nil {
		t.entries = make(map[string]*entry)
	}
	e, ok := t.entries[key]
	if !ok {
		e = &entry{}
		t.entries[key] = e
	}
	e.refs++
	return e
}

func (t *Table) unref(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(t.entries, key)
	}
}

func normalize(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
