// Package subject manages the school subjects, keyed by name.
package subject

import (
	"context"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
	"github.com/trezcool/littledragons/core/statesync"
)

type Subject struct {
	Name string `json:"name"`
}

func Less(a, b Subject) bool { return a.Name < b.Name }

type Repository struct {
	repo *docstore.Repository[Subject]
}

func NewRepository(db docstore.Database) *Repository {
	return &Repository{
		repo: docstore.NewRepository(db.Collection(docstore.Subjects), docstore.RepositoryOptions[Subject]{
			Kind:       "subject",
			ID:         func(s Subject) string { return s.Name },
			WithID:     func(s Subject, id string) Subject { s.Name = id; return s },
			NaturalKey: true,
		}),
	}
}

// Add registers a subject. Adding an existing subject is a no-op.
func (r *Repository) Add(ctx context.Context, s Subject) error {
	_, err := r.repo.Add(ctx, s)
	return err
}

func (r *Repository) All(ctx context.Context) ([]Subject, error) {
	return r.repo.All(ctx, docstore.Query{}.Order(core.Asc("name")))
}

func (r *Repository) Listen(ctx context.Context, fn func([]Subject)) error {
	return r.repo.Listen(ctx, docstore.Query{}, fn)
}

func NewListHolder(repo *Repository, logger core.Logger) *statesync.LiveHolder[Subject] {
	return statesync.NewLiveHolder(statesync.LiveOptions[Subject]{
		Name:   "school subjects",
		Logger: logger,
		Listen: repo.Listen,
		Less:   Less,
	})
}
