// Package pgdb stores the document collections in a postgres "documents" table
// and delivers live updates through LISTEN/NOTIFY.
package pgdb

import (
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
)

// channel is notified with the collection name by the documents trigger.
const channel = "documents"

type DB struct {
	db     *sqlx.DB
	dsn    string
	logger core.Logger
}

var _ docstore.Database = (*DB)(nil) // interface compliance check

// Open connects to the database at dsn. The schema is created by the migrations.
func Open(dsn string, logger core.Logger) (*DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	db.SetMaxOpenConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &DB{db: db, dsn: dsn, logger: logger}, nil
}

func (db *DB) Collection(name string) docstore.Collection {
	return &collection{name: name, db: db}
}

func (db *DB) Close() error {
	return db.db.Close()
}
