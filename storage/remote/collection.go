package remotedb

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/littledragons/core/docstore"
)

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
	resp, err := c.db.send(ctx, rest.Put, collectionPath(c.name, id), data)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

func (c *collection) Get(ctx context.Context, id string) (docstore.Doc, error) {
	if id == "" {
		return docstore.Doc{}, docstore.ErrNotFound
	}
	resp, err := c.db.send(ctx, rest.Get, collectionPath(c.name, id), nil)
	if err != nil {
		return docstore.Doc{}, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return docstore.Doc{}, docstore.ErrNotFound
	}
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return docstore.Doc{}, err
	}

	var doc docstore.Doc
	if err := json.Unmarshal([]byte(resp.Body), &doc); err != nil {
		return docstore.Doc{}, errors.Wrap(err, "decoding document")
	}
	return doc, nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	if id == "" {
		return docstore.ErrMissingID
	}
	resp, err := c.db.send(ctx, rest.Delete, collectionPath(c.name, id), nil)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusNoContent)
}

func (c *collection) Query(ctx context.Context, q docstore.Query) ([]docstore.Doc, error) {
	body, err := json.Marshal(q) // validates q
	if err != nil {
		return nil, err
	}
	resp, err := c.db.send(ctx, rest.Post, collectionPath(c.name, "query"), body)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(resp, http.StatusOK); err != nil {
		return nil, err
	}

	var data struct {
		Documents []docstore.Doc `json:"documents"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &data); err != nil {
		return nil, errors.Wrap(err, "decoding documents")
	}
	if data.Documents == nil {
		data.Documents = []docstore.Doc{}
	}
	return data.Documents, nil
}

// Listen polls the query endpoint: the API has no change feed.
func (c *collection) Listen(ctx context.Context, q docstore.Query, fn func([]docstore.Doc)) error {
	if _, err := q.Normalized(); err != nil {
		return err
	}
	return docstore.Poll(ctx, c.db.pollInterval, func(ctx context.Context) ([]docstore.Doc, error) {
		return c.Query(ctx, q)
	}, fn)
}
