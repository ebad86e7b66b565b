// Package schedule manages the lessons of a class.
package schedule

import (
	"context"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
)

type Schedule struct {
	ID        string         `json:"id,omitempty"`
	SubjectID string         `json:"subjectId"`
	ClassID   string         `json:"classId"`
	TeacherID string         `json:"teacherId"`
	StartTime core.Timestamp `json:"startTime"`
	EndTime   core.Timestamp `json:"endTime"`
}

func Key(s Schedule) string { return s.ID }

// Less orders schedules by start time, latest first.
func Less(a, b Schedule) bool {
	return a.StartTime.After(b.StartTime.Time)
}

type Repository struct {
	repo *docstore.Repository[Schedule]
}

func NewRepository(db docstore.Database) *Repository {
	return &Repository{
		repo: docstore.NewRepository(db.Collection(docstore.Schedules), docstore.RepositoryOptions[Schedule]{
			Kind:   "schedule",
			ID:     Key,
			WithID: func(s Schedule, id string) Schedule { s.ID = id; return s },
		}),
	}
}

func (r *Repository) Add(ctx context.Context, s Schedule) (Schedule, error) {
	return r.repo.Add(ctx, s)
}

func (r *Repository) Update(ctx context.Context, s Schedule) error {
	return r.repo.Update(ctx, s)
}

func (r *Repository) Delete(ctx context.Context, s Schedule) error {
	return r.repo.Delete(ctx, s.ID)
}

// ByClass returns the schedules of a class starting within [span.From, span.To). A zero bound is open.
func (r *Repository) ByClass(ctx context.Context, classID string, span core.TimeRange) ([]Schedule, error) {
	return r.repo.All(ctx, inSpan(span, docstore.Eq("classId", classID)))
}

// ByTeacher returns the schedules a teacher gives to a class starting within [span.From, span.To). A zero bound is open.
func (r *Repository) ByTeacher(ctx context.Context, teacherID, classID string, span core.TimeRange) ([]Schedule, error) {
	return r.repo.All(ctx, inSpan(span, docstore.Eq("teacherId", teacherID), docstore.Eq("classId", classID)))
}

// inSpan adds the bounds of span to conds, latest first. A zero bound is open.
func inSpan(span core.TimeRange, conds ...docstore.Condition) docstore.Query {
	if !span.From.IsZero() {
		conds = append(conds, docstore.Gte("startTime", span.From))
	}
	if !span.To.IsZero() {
		conds = append(conds, docstore.Lt("startTime", span.To))
	}
	return docstore.Where(conds...).Order(core.Desc("startTime"))
}
