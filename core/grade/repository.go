package grade

import (
	"context"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
)

type Repository struct {
	repo *docstore.Repository[Grade]
}

func NewRepository(db docstore.Database) *Repository {
	return &Repository{
		repo: docstore.NewRepository(db.Collection(docstore.Grades), docstore.RepositoryOptions[Grade]{
			Kind:   "grade",
			ID:     Key,
			WithID: func(g Grade, id string) Grade { g.ID = id; return g },
		}),
	}
}

func (r *Repository) Add(ctx context.Context, g Grade) (Grade, error) {
	return r.repo.Add(ctx, g)
}

func (r *Repository) Update(ctx context.Context, g Grade) error {
	return r.repo.Update(ctx, g)
}

func (r *Repository) Delete(ctx context.Context, g Grade) error {
	return r.repo.Delete(ctx, g.ID)
}

// ByTeacher returns the grades a teacher gave in a subject to a class.
func (r *Repository) ByTeacher(ctx context.Context, teacherID, classID, subjectID string) ([]Grade, error) {
	return r.repo.All(ctx, docstore.Where(
		docstore.Eq("teacherId", teacherID),
		docstore.Eq("classId", classID),
		docstore.Eq("subjectId", subjectID),
	).Order(core.Asc("date")))
}

// ByStudent returns the grades of a student in a subject.
func (r *Repository) ByStudent(ctx context.Context, studentID, subjectID string) ([]Grade, error) {
	return r.repo.All(ctx, docstore.Where(
		docstore.Eq("studentId", studentID),
		docstore.Eq("subjectId", subjectID),
	).Order(core.Asc("date")))
}
