package event

import (
	"context"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
)

type Repository struct {
	repo *docstore.Repository[Event]
}

func NewRepository(db docstore.Database) *Repository {
	return &Repository{
		repo: docstore.NewRepository(db.Collection(docstore.Events), docstore.RepositoryOptions[Event]{
			Kind:   "event",
			ID:     Key,
			WithID: func(e Event, id string) Event { e.ID = id; return e },
		}),
	}
}

func (r *Repository) Add(ctx context.Context, e Event) (Event, error) {
	return r.repo.Add(ctx, e)
}

func (r *Repository) Update(ctx context.Context, e Event) error {
	return r.repo.Update(ctx, e)
}

func (r *Repository) Delete(ctx context.Context, e Event) error {
	return r.repo.Delete(ctx, e.ID)
}

func (r *Repository) Get(ctx context.Context, id string) (Event, error) {
	return r.repo.Get(ctx, id)
}

// All returns the events dated within dates, bounds included. A zero bound is open.
func (r *Repository) All(ctx context.Context, dates core.TimeRange) ([]Event, error) {
	var q docstore.Query
	if !dates.From.IsZero() {
		q.Where = append(q.Where, docstore.Gte("date", dates.From))
	}
	if !dates.To.IsZero() {
		q.Where = append(q.Where, docstore.Lte("date", dates.To))
	}
	return r.repo.All(ctx, q)
}
