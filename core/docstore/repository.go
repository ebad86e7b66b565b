package docstore

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/littledragons/core"
)

var ErrMissingID = errors.New("missing document id")

type RepositoryOptions[E any] struct {
	Kind   string // reported by NotFoundError, eg. "event"
	ID     func(E) string
	WithID func(E, string) E
	// NaturalKey makes Add key documents by ID(e) instead of a generated uuid.
	NaturalKey bool
}

// Repository stores entities of type E as JSON documents of a collection.
type Repository[E any] struct {
	coll Collection
	opts RepositoryOptions[E]
}

func NewRepository[E any](coll Collection, opts RepositoryOptions[E]) *Repository[E] {
	return &Repository[E]{coll: coll, opts: opts}
}

func (r *Repository[E]) Collection() Collection { return r.coll }

// Add stores a new entity and returns it with its id set.
func (r *Repository[E]) Add(ctx context.Context, e E) (E, error) {
	var id string
	if r.opts.NaturalKey {
		if id = r.opts.ID(e); id == "" {
			return e, ErrMissingID
		}
	} else {
		id = uuid.New().String()
		e = r.opts.WithID(e, id)
	}
	if err := r.put(ctx, id, e); err != nil {
		return e, err
	}
	return e, nil
}

// Update replaces a stored entity.
func (r *Repository[E]) Update(ctx context.Context, e E) error {
	id := r.opts.ID(e)
	if id == "" {
		return ErrMissingID
	}
	return r.put(ctx, id, e)
}

func (r *Repository[E]) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrMissingID
	}
	if err := r.coll.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "deleting %s %s", r.opts.Kind, id)
	}
	return nil
}

// Get returns a *core.NotFoundError when no entity has the given id.
func (r *Repository[E]) Get(ctx context.Context, id string) (E, error) {
	var zero E
	if id == "" {
		return zero, core.NewNotFoundError(r.opts.Kind, id)
	}
	doc, err := r.coll.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return zero, core.NewNotFoundError(r.opts.Kind, id)
		}
		return zero, errors.Wrapf(err, "getting %s %s", r.opts.Kind, id)
	}
	return r.decode(doc)
}

func (r *Repository[E]) All(ctx context.Context, q Query) ([]E, error) {
	docs, err := r.coll.Query(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "querying %s", r.coll.Name())
	}
	return r.decodeAll(docs)
}

// Listen calls fn with the matching entities every time they change, until ctx is done.
func (r *Repository[E]) Listen(ctx context.Context, q Query, fn func([]E)) error {
	var decodeErr error
	listenCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := r.coll.Listen(listenCtx, q, func(docs []Doc) {
		items, err := r.decodeAll(docs)
		if err != nil {
			decodeErr = err
			cancel()
			return
		}
		fn(items)
	})
	if decodeErr != nil {
		return decodeErr
	}
	if err != nil {
		return errors.Wrapf(err, "listening to %s", r.coll.Name())
	}
	return nil
}

func (r *Repository[E]) put(ctx context.Context, id string, e E) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", r.opts.Kind)
	}
	if err := r.coll.Set(ctx, id, data); err != nil {
		return errors.Wrapf(err, "storing %s %s", r.opts.Kind, id)
	}
	return nil
}

func (r *Repository[E]) decode(doc Doc) (E, error) {
	var e E
	if err := json.Unmarshal(doc.Data, &e); err != nil {
		return e, errors.Wrapf(err, "decoding %s %s", r.opts.Kind, doc.ID)
	}
	if r.opts.WithID != nil {
		e = r.opts.WithID(e, doc.ID)
	}
	return e, nil
}

func (r *Repository[E]) decodeAll(docs []Doc) ([]E, error) {
	items := make([]E, 0, len(docs))
	for _, doc := range docs {
		e, err := r.decode(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, nil
}
