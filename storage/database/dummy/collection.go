package dummydb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/littledragons/core/docstore"
)

type collection struct {
	name string
	db   *table
}

var _ docstore.Collection = (*collection)(nil) // interface compliance check

func (c *collection) Name() string { return c.name }

func (c *collection) Set(ctx context.Context, id string, data json.RawMessage) error {
	if id == "" {
		return docstore.ErrMissingID
	}
	if _, err := docstore.Decode(data); err != nil {
		return errors.Wrap(err, "document is not a JSON object")
	}

	c.db.Lock()
	c.db.docs[id] = docstore.Doc{
		ID:        id,
		Data:      append(json.RawMessage(nil), data...),
		UpdatedAt: time.Now().UTC(),
	}
	c.db.Unlock()

	c.db.notify()
	return nil
}

func (c *collection) Get(ctx context.Context, id string) (docstore.Doc, error) {
	c.db.RLock()
	defer c.db.RUnlock()

	if doc, ok := c.db.docs[id]; ok {
		return doc, nil
	}
	return docstore.Doc{}, docstore.ErrNotFound
}

func (c *collection) Delete(ctx context.Context, id string) error {
	c.db.Lock()
	_, ok := c.db.docs[id]
	delete(c.db.docs, id)
	c.db.Unlock()

	if ok {
		c.db.notify()
	}
	return nil
}

func (c *collection) Query(ctx context.Context, q docstore.Query) ([]docstore.Doc, error) {
	q, err := q.Normalized()
	if err != nil {
		return nil, err
	}

	c.db.RLock()
	docs := make([]docstore.Doc, 0, len(c.db.docs))
	for _, d := range c.db.docs {
		docs = append(docs, d)
	}
	c.db.RUnlock()

	return docstore.Filter(docs, q)
}

func (c *collection) Listen(ctx context.Context, q docstore.Query, fn func([]docstore.Doc)) error {
	changed, unsubscribe := c.db.subscribe()
	defer unsubscribe()

	var last []docstore.Doc
	first := true
	for {
		docs, err := c.Query(ctx, q)
		if err != nil {
			return err
		}
		if first || !docstore.SameDocs(last, docs) {
			first = false
			last = docs
			fn(docs)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		}
	}
}
