package student

import (
	"context"

	"github.com/trezcool/littledragons/core/docstore"
)

type Repository struct {
	repo *docstore.Repository[Student]
}

func NewRepository(db docstore.Database) *Repository {
	return &Repository{
		repo: docstore.NewRepository(db.Collection(docstore.Students), docstore.RepositoryOptions[Student]{
			Kind:   Kind,
			ID:     func(s Student) string { return s.ID },
			WithID: func(s Student, id string) Student { s.ID = id; return s },
		}),
	}
}

func (r *Repository) Add(ctx context.Context, s Student) (Student, error) {
	return r.repo.Add(ctx, s)
}

// Get returns a *core.NotFoundError of kind "student" for an unknown id.
func (r *Repository) Get(ctx context.Context, id string) (Student, error) {
	return r.repo.Get(ctx, id)
}

// Find returns the students of a class with the given names.
func (r *Repository) Find(ctx context.Context, firstName, lastName, classID string) ([]Student, error) {
	return r.repo.All(ctx, docstore.Where(
		docstore.Eq("firstName", firstName),
		docstore.Eq("lastName", lastName),
		docstore.Eq("classId", classID),
	))
}

func (r *Repository) All(ctx context.Context) ([]Student, error) {
	return r.repo.All(ctx, docstore.Query{})
}

// ByID returns every student keyed by id.
func (r *Repository) ByID(ctx context.Context) (map[string]Student, error) {
	students, err := r.All(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Student, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}
	return byID, nil
}

func (r *Repository) Listen(ctx context.Context, fn func([]Student)) error {
	return r.repo.Listen(ctx, docstore.Query{}, fn)
}
