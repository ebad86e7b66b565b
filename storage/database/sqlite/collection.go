package sqlitedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/littledragons/core/docstore"
)

type row struct {
	ID        string `db:"id"`
	Data      []byte `db:"data"`
	UpdatedAt int64  `db:"updated_at"` // unix millis
}

func (r row) doc() docstore.Doc {
	return docstore.Doc{ID: r.ID, Data: json.RawMessage(r.Data), UpdatedAt: time.UnixMilli(r.UpdatedAt).UTC()}
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
		INSERT INTO documents (collection, id, data, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		c.name, id, string(data), time.Now().UnixMilli(),
	)
	return errors.Wrap(err, "upserting document")
}

func (c *collection) Get(ctx context.Context, id string) (docstore.Doc, error) {
	var r row
	err := c.db.db.GetContext(ctx, &r, `SELECT id, data, updated_at FROM documents WHERE collection = ? AND id = ?`, c.name, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return docstore.Doc{}, docstore.ErrNotFound
		}
		return docstore.Doc{}, errors.Wrap(err, "selecting document")
	}
	return r.doc(), nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	_, err := c.db.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, c.name, id)
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
	return docstore.Poll(ctx, c.db.pollInterval, func(ctx context.Context) ([]docstore.Doc, error) {
		return c.Query(ctx, q)
	}, fn)
}

// whereClause renders conditions on JSON fields. A condition only matches values of its own JSON type.
// Field names are validated by docstore.Query.Normalized.
func whereClause(collection string, conds []docstore.Condition) (string, []interface{}) {
	clauses := []string{"collection = ?"}
	args := []interface{}{collection}
	for _, cond := range conds {
		op := string(cond.Op)
		if cond.Op == docstore.OpEq {
			op = "="
		}
		path := "'$." + cond.Field + "'"
		value := cond.Value

		var types string
		switch v := cond.Value.(type) {
		case string:
			types = "'text'"
		case float64:
			types = "'integer', 'real'"
		case bool:
			types = "'true', 'false'"
			value = 0
			if v {
				value = 1
			}
		}
		clauses = append(clauses, fmt.Sprintf("(json_type(data, %s) IN (%s) AND json_extract(data, %s) %s ?)", path, types, path, op))
		args = append(args, value)
	}
	return strings.Join(clauses, " AND "), args
}
