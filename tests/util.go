package testutil

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
	"github.com/trezcool/littledragons/core/statesync"
	"github.com/trezcool/littledragons/services/logger"
	"github.com/trezcool/littledragons/storage/database/dummy"
)

// OpenDB returns an empty in-memory database.
func OpenDB(t *testing.T) *dummydb.DB {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// WaitFor blocks until o holds a value satisfying pred and returns it.
func WaitFor[T any](t *testing.T, o *statesync.Observable[T], pred func(T) bool) T {
	t.Helper()
	ch := make(chan T, 1)
	unsubscribe := o.Subscribe(func(v T) {
		if pred(v) {
			select {
			case ch <- v:
			default:
			}
		}
	})
	defer unsubscribe()

	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatalf("WaitFor() timed out, last value: %+v", o.Value())
	}
	var zero T
	return zero
}

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Logger returns a logger writing to the test log, with error reporting disabled.
func Logger(t *testing.T) *Recorder {
	t.Helper()
	conf := core.NewTestConfig()
	var out io.Writer = testWriter{t: t}
	rl := logsvc.NewRollbarLogger(log.New(out, "", 0), conf)
	rl.Enable(false)
	return &Recorder{Logger: rl}
}

// Recorder is a core.Logger that remembers the messages logged at error level.
type Recorder struct {
	core.Logger

	mu     sync.Mutex
	errors []string
}

func (r *Recorder) Error(msg string, args ...interface{}) {
	r.mu.Lock()
	r.errors = append(r.errors, msg)
	r.mu.Unlock()
	r.Logger.Error(msg, args...)
}

func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

// FailingDB wraps a database so that the named collection operations fail with Err.
type FailingDB struct {
	docstore.Database
	Err error

	mu    sync.Mutex
	fails map[string]bool // {"<collection>.<op>": true}
}

func NewFailingDB(db docstore.Database, err error) *FailingDB {
	return &FailingDB{Database: db, Err: err, fails: make(map[string]bool)}
}

// Fail makes op ("set", "get", "delete", "query" or "listen") fail on collection.
func (db *FailingDB) Fail(collection, op string) {
	db.mu.Lock()
	db.fails[collection+"."+op] = true
	db.mu.Unlock()
}

// Heal makes every operation succeed again.
func (db *FailingDB) Heal() {
	db.mu.Lock()
	db.fails = make(map[string]bool)
	db.mu.Unlock()
}

func (db *FailingDB) failing(collection, op string) bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.fails[collection+"."+op]
}

func (db *FailingDB) Collection(name string) docstore.Collection {
	return &failingCollection{Collection: db.Database.Collection(name), db: db}
}

type failingCollection struct {
	docstore.Collection
	db *FailingDB
}

func (c *failingCollection) Set(ctx context.Context, id string, data json.RawMessage) error {
	if c.db.failing(c.Name(), "set") {
		return c.db.Err
	}
	return c.Collection.Set(ctx, id, data)
}

func (c *failingCollection) Get(ctx context.Context, id string) (docstore.Doc, error) {
	if c.db.failing(c.Name(), "get") {
		return docstore.Doc{}, c.db.Err
	}
	return c.Collection.Get(ctx, id)
}

func (c *failingCollection) Delete(ctx context.Context, id string) error {
	if c.db.failing(c.Name(), "delete") {
		return c.db.Err
	}
	return c.Collection.Delete(ctx, id)
}

func (c *failingCollection) Query(ctx context.Context, q docstore.Query) ([]docstore.Doc, error) {
	if c.db.failing(c.Name(), "query") {
		return nil, c.db.Err
	}
	return c.Collection.Query(ctx, q)
}

func (c *failingCollection) Listen(ctx context.Context, q docstore.Query, fn func([]docstore.Doc)) error {
	if c.db.failing(c.Name(), "listen") {
		return c.db.Err
	}
	return c.Collection.Listen(ctx, q, fn)
}
