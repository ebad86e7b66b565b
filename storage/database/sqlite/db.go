// Package sqlitedb stores the document collections in an embedded sqlite "documents" table.
// Listeners poll, sqlite having no change notifications across connections.
package sqlitedb

import (
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/trezcool/littledragons/core/docstore"
)

type DB struct {
	db           *sqlx.DB
	pollInterval time.Duration
}

var _ docstore.Database = (*DB)(nil) // interface compliance check

// Open opens (creating it if needed) the database file at path. The schema is created by the migrations.
func Open(path string, pollInterval time.Duration) (*DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	// one connection serializes writers
	db.SetMaxOpenConns(1)
	return &DB{db: db, pollInterval: pollInterval}, nil
}

// SQL returns the underlying connection pool, eg. for migrations.
func (db *DB) SQL() *sqlx.DB { return db.db }

func (db *DB) Collection(name string) docstore.Collection {
	return &collection{name: name, db: db}
}

func (db *DB) Close() error {
	return db.db.Close()
}
