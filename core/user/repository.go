package user

import (
	"context"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
)

const Kind = "user"

// Repository stores accounts in the users collection, keyed by uid.
type Repository struct {
	repo *docstore.Repository[Account]
}

func NewRepository(db docstore.Database) *Repository {
	return &Repository{
		repo: docstore.NewRepository(db.Collection(docstore.Users), docstore.RepositoryOptions[Account]{
			Kind:       Kind,
			ID:         func(a Account) string { return a.UID },
			WithID:     func(a Account, id string) Account { a.UID = id; return a },
			NaturalKey: true,
		}),
	}
}

func (r *Repository) Add(ctx context.Context, acc Account) error {
	_, err := r.repo.Add(ctx, acc)
	return err
}

// Get returns a *core.NotFoundError of kind "user" for an unknown uid.
func (r *Repository) Get(ctx context.Context, uid string) (Account, error) {
	return r.repo.Get(ctx, uid)
}

func (r *Repository) Update(ctx context.Context, acc Account) error {
	return r.repo.Update(ctx, acc)
}

func (r *Repository) Delete(ctx context.Context, uid string) error {
	return r.repo.Delete(ctx, uid)
}

func (r *Repository) All(ctx context.Context) ([]Account, error) {
	return r.repo.All(ctx, docstore.Query{}.Order(core.Asc("email")))
}
