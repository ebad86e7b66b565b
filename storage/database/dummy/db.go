package dummydb

import (
	"sync"

	"github.com/trezcool/littledragons/core/docstore"
)

type (
	// DB keeps every collection in memory. It is used by tests and by the memory engine.
	DB struct {
		mu     sync.Mutex
		tables map[string]*table
	}

	table struct {
		sync.RWMutex
		docs map[string]docstore.Doc

		subMu  sync.Mutex
		nextID int
		subs   map[int]chan struct{}
	}
)

var _ docstore.Database = (*DB)(nil) // interface compliance check

func Open() (*DB, error) {
	return &DB{tables: make(map[string]*table)}, nil
}

func (db *DB) Collection(name string) docstore.Collection {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.tables[name]
	if !ok {
		t = &table{docs: make(map[string]docstore.Doc), subs: make(map[int]chan struct{})}
		db.tables[name] = t
	}
	return &collection{name: name, db: t}
}

func (db *DB) Close() error { return nil }

func (t *table) subscribe() (<-chan struct{}, func()) {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	t.nextID++
	id := t.nextID
	ch := make(chan struct{}, 1)
	t.subs[id] = ch
	return ch, func() {
		t.subMu.Lock()
		delete(t.subs, id)
		t.subMu.Unlock()
	}
}

// notify wakes up every listener, coalescing bursts of changes.
func (t *table) notify() {
	t.subMu.Lock()
	defer t.subMu.Unlock()
	for _, ch := range t.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
