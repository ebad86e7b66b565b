// Package database opens the document store selected by the configuration and migrates the SQL engines.
package database

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
	"github.com/trezcool/littledragons/storage/database/dummy"
	"github.com/trezcool/littledragons/storage/database/migrations"
	"github.com/trezcool/littledragons/storage/database/postgres"
	"github.com/trezcool/littledragons/storage/database/sqlite"
)

const (
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
	EngineMemory   = "memory"
)

var ErrUnknownEngine = errors.New("unknown database engine")

// Open opens the configured document store. The sqlite database is migrated on open;
// postgres is migrated by the admin "migrate" command.
func Open(conf *core.Config, logger core.Logger) (docstore.Database, error) {
	switch conf.Database.Engine {
	case EngineMemory:
		return dummydb.Open()
	case EngineSQLite:
		db, err := sqlitedb.Open(conf.Database.SQLitePath, docstore.DefaultPollInterval)
		if err != nil {
			return nil, err
		}
		if err := Migrate(db.SQL().DB, EngineSQLite); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	case EnginePostgres:
		return pgdb.Open(DSN(conf.Database.Name, false, conf), logger)
	}
	return nil, errors.Wrap(ErrUnknownEngine, conf.Database.Engine)
}

// DSN returns the postgres connection URL of dbName, as the admin user when admin is set.
func DSN(dbName string, admin bool, conf *core.Config) string {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   EnginePostgres,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// OpenSQL returns a plain connection to the configured SQL database, eg. for migrations.
func OpenSQL(conf *core.Config) (*sql.DB, error) {
	switch conf.Database.Engine {
	case EnginePostgres:
		return sql.Open(EnginePostgres, DSN(conf.Database.Name, false, conf))
	case EngineSQLite:
		db, err := sqlitedb.Open(conf.Database.SQLitePath, 0)
		if err != nil {
			return nil, err
		}
		return db.SQL().DB, nil
	}
	return nil, errors.Wrap(ErrUnknownEngine, conf.Database.Engine)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sql.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func createAppUser(db *sql.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	// check if app user exists
	var exists bool
	if err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", conf.Database.User).Scan(&exists); err != nil {
		return errors.Wrap(err, "checking app user")
	}

	// create app user if not exist
	if !exists {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err := db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sql.DB, conf *core.Config) error {
	// check if DB exists
	var exists bool
	if err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", conf.Database.Name).Scan(&exists); err != nil {
		return errors.Wrap(err, "checking DB")
	}

	// create DB if not exist
	if !exists {
		if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the postgres app user and database. It is a no-op for the other engines.
func CreateIfNotExist(conf *core.Config) error {
	if conf.Database.Engine != EnginePostgres {
		return nil
	}

	// connect as admin
	db, err := sql.Open(EnginePostgres, DSN("postgres", true, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err = ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(db, conf); err != nil {
		return errors.Wrap(err, "creating app user")
	}

	// create DB as app user
	appDB, err := sql.Open(EnginePostgres, DSN("postgres", false, conf))
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()
	if err = createDB(appDB, conf); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

// Migrate applies the pending migrations of engine.
func Migrate(db *sql.DB, engine string) error {
	return RunMigrations("up", db, engine)
}

// RunMigrations runs a goose command ("up", "down", "redo", "status"..) on the migrations of engine.
func RunMigrations(command string, db *sql.DB, engine string, args ...string) error {
	dialect := engine
	switch engine {
	case EnginePostgres:
	case EngineSQLite:
		dialect = "sqlite3"
	default:
		return errors.Wrap(ErrUnknownEngine, engine)
	}
	if err := goose.SetDialect(dialect); err != nil {
		return errors.Wrap(err, "setting migration dialect")
	}
	if err := goose.RunFS(command, db, migrations.FS, engine, args...); err != nil {
		return errors.Wrapf(err, "running migrations %s", command)
	}
	return nil
}
