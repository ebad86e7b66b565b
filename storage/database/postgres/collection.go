package pgdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/littledragons/core/docstore"
)

const pingInterval = 90 * time.Second

type row struct {
	ID        string    `db:"id"`
	Data      []byte    `db:"data"`
	UpdatedAt null.Time `db:"updated_at"`
}

func (r row) doc() docstore.Doc {
	return docstore.Doc{ID: r.ID, Data: json.RawMessage(r.Data), UpdatedAt: r.UpdatedAt.Time.UTC()}
}

type collection struct {
	name string
	db   *DB
}

var _ docstore.Collection = (*collection)(nil) // interface compliance check

func (c *collection) Name() string { return c.name }

func (c *collection) Set(ctx context.Context, id string, data json.RawMessage) error {
	if id == "" {
		return docstore.ErrMissingID
	}
	_, err := c.db.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		c.name, id, string(data),
	)
	return errors.Wrap(err, "upserting document")
}

func (c *collection) Get(ctx context.Context, id string) (docstore.Doc, error) {
	var r row
	err := c.db.db.GetContext(ctx, &r, `SELECT id, data, updated_at FROM documents WHERE collection = $1 AND id = $2`, c.name, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return docstore.Doc{}, docstore.ErrNotFound
		}
		return docstore.Doc{}, errors.Wrap(err, "selecting document")
	}
	return r.doc(), nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	_, err := c.db.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, c.name, id)
	return errors.Wrap(err, "deleting document")
}

// Query filters in SQL and orders in process, so that mixed-type fields sort like in every other store.
func (c *collection) Query(ctx context.Context, q docstore.Query) ([]docstore.Doc, error) {
	q, err := q.Normalized()
	if err != nil {
		return nil, err
	}
	where, args := whereClause(c.name, q.Where)

	var rows []row
	if err := c.db.db.SelectContext(ctx, &rows, "SELECT id, data, updated_at FROM documents WHERE "+where, args...); err != nil {
		return nil, errors.Wrap(err, "selecting documents")
	}
	docs := make([]docstore.Doc, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, r.doc())
	}
	return docstore.Filter(docs, q)
}

func (c *collection) Listen(ctx context.Context, q docstore.Query, fn func([]docstore.Doc)) error {
	listener := pq.NewListener(c.db.dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil && c.db.logger != nil {
			c.db.logger.Warn("Documents listener connection problem", err, map[string]interface{}{"event": ev})
		}
	})
	defer func() { _ = listener.Close() }()
	if err := listener.Listen(channel); err != nil {
		return errors.Wrap(err, "listening to documents")
	}

	var last []docstore.Doc
	first := true
	for {
		docs, err := c.Query(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if first || !docstore.SameDocs(last, docs) {
			first = false
			last = docs
			fn(docs)
		}

	wait:
		for {
			select {
			case <-ctx.Done():
				return nil
			case n := <-listener.Notify:
				// nil after a reconnection: notifications may have been missed
				if n == nil || n.Extra == c.name {
					break wait
				}
			case <-time.After(pingInterval):
				go func() { _ = listener.Ping() }()
			}
		}
	}
}

// whereClause renders conditions on JSON fields. A condition only matches values of its own JSON type.
// Field names are validated by docstore.Query.Normalized.
func whereClause(collection string, conds []docstore.Condition) (string, []interface{}) {
	clauses := []string{"collection = $1"}
	args := []interface{}{collection}
	for _, cond := range conds {
		args = append(args, cond.Value)
		param := fmt.Sprintf("$%d", len(args))
		op := string(cond.Op)
		if cond.Op == docstore.OpEq {
			op = "="
		}
		field := "data->'" + cond.Field + "'"
		text := "data->>'" + cond.Field + "'"

		switch cond.Value.(type) {
		case string:
			clauses = append(clauses, fmt.Sprintf(`(jsonb_typeof(%s) = 'string' AND %s COLLATE "C" %s %s)`, field, text, op, param))
		case float64:
			clauses = append(clauses, fmt.Sprintf(`(jsonb_typeof(%s) = 'number' AND (%s)::numeric %s %s)`, field, text, op, param))
		case bool:
			clauses = append(clauses, fmt.Sprintf(`(jsonb_typeof(%s) = 'boolean' AND (%s)::boolean %s %s)`, field, text, op, param))
		}
	}
	return strings.Join(clauses, " AND "), args
}
