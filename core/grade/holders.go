package grade

import (
	"context"
	"strings"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/statesync"
	"github.com/trezcool/littledragons/core/student"
	"github.com/trezcool/littledragons/core/user"
)

// Params select the grades of a list: a teacher sees the grades they gave to the
// viewer's class, a parent the grades of their child.
type Params struct {
	Viewer    user.Viewer
	SubjectID string
}

type ListHolder struct {
	list *statesync.ListHolder[Item, Params]
}

func NewListHolder(repo *Repository, students *student.Repository, logger core.Logger) *ListHolder {
	fetch := func(ctx context.Context, p Params) ([]Item, error) {
		var (
			grades []Grade
			err    error
		)
		if p.Viewer.Role == user.RoleParent {
			grades, err = repo.ByStudent(ctx, p.Viewer.ChildID, p.SubjectID)
		} else {
			grades, err = repo.ByTeacher(ctx, p.Viewer.UserID, p.Viewer.ClassID, p.SubjectID)
		}
		if err != nil {
			return nil, err
		}
		byID, err := students.ByID(ctx)
		if err != nil {
			return nil, err
		}

		items := make([]Item, 0, len(grades))
		for _, g := range grades {
			if s, ok := byID[g.StudentID]; ok {
				items = append(items, Item{Student: s, Grade: g})
			}
		}
		return items, nil
	}

	return &ListHolder{
		list: statesync.NewListHolder(statesync.ListOptions[Item, Params]{
			Name:   "grades",
			Logger: logger,
			Fetch:  fetch,
			Remove: func(ctx context.Context, it Item) error { return repo.Delete(ctx, it.Grade) },
			Key:    itemKey,
			Less:   Less,
			Precheck: func(p Params) error {
				if p.Viewer.Role == user.RoleParent && p.Viewer.ChildID == "" {
					return user.ErrChildNotFound
				}
				return nil
			},
		}),
	}
}

func (h *ListHolder) State() *statesync.Observable[statesync.ListState[Item, Params]] {
	return h.list.State()
}

func (h *ListHolder) DeleteOutcome() *statesync.Observable[statesync.DeleteOutcome] {
	return h.list.DeleteOutcome()
}

func (h *ListHolder) Load(ctx context.Context, viewer user.Viewer, subjectID string, force bool) {
	h.list.Load(ctx, Params{Viewer: viewer, SubjectID: subjectID}, force)
}

func (h *ListHolder) Delete(ctx context.Context, it Item) {
	h.list.Delete(ctx, it)
}

const (
	FieldSubject = "subjectId"
	FieldStudent = "studentId"
	FieldValue   = "gradeValue"
	FieldClass   = "classId"
)

type Draft struct {
	ID        string // empty for a new grade
	SubjectID string
	StudentID string
	ClassID   string
	Value     int
	Date      core.Timestamp
}

// UIDProvider returns the uid of the signed-in user.
type UIDProvider interface {
	UserUID() string
}

// AddHolder records a grade given by the signed-in teacher.
type AddHolder struct {
	*statesync.Form[Draft]
}

func NewAddHolder(repo *Repository, auth UIDProvider, logger core.Logger, validator *core.Validator) *AddHolder {
	return &AddHolder{
		Form: statesync.NewForm(statesync.FormOptions[Draft]{
			Name:      "grade",
			Logger:    logger,
			Validator: validator,
			Trim: func(d *Draft) {
				d.SubjectID = strings.TrimSpace(d.SubjectID)
				d.StudentID = strings.TrimSpace(d.StudentID)
				d.ClassID = strings.TrimSpace(d.ClassID)
			},
			Rules: func(d Draft) []core.FieldRule {
				return []core.FieldRule{
					{Field: FieldSubject, Value: d.SubjectID, Tag: "required"},
					{Field: FieldStudent, Value: d.StudentID, Tag: "required"},
					{Field: FieldValue, Value: d.Value, Tag: "min=2,max=5"},
					{Field: FieldClass, Value: d.ClassID, Tag: "required"},
				}
			},
			Save: func(ctx context.Context, d Draft) error {
				date := d.Date
				if date.IsZero() {
					date = core.Now()
				}
				g := Grade{
					ID:         d.ID,
					TeacherID:  auth.UserUID(),
					ClassID:    d.ClassID,
					StudentID:  d.StudentID,
					SubjectID:  d.SubjectID,
					GradeValue: d.Value,
					Date:       date,
				}
				if g.ID != "" {
					return repo.Update(ctx, g)
				}
				_, err := repo.Add(ctx, g)
				return err
			},
		}),
	}
}

// Edit loads an existing grade into the draft.
func (h *AddHolder) Edit(g Grade) {
	h.Load(Draft{
		ID:        g.ID,
		SubjectID: g.SubjectID,
		StudentID: g.StudentID,
		ClassID:   g.ClassID,
		Value:     g.GradeValue,
		Date:      g.Date,
	})
}

func (h *AddHolder) SetExistingID(id string) {
	h.Update("id", func(d *Draft) { d.ID = id })
}

func (h *AddHolder) UpdateSubjectID(id string) {
	h.Update(FieldSubject, func(d *Draft) { d.SubjectID = id })
}

func (h *AddHolder) UpdateStudentID(id string) {
	h.Update(FieldStudent, func(d *Draft) { d.StudentID = id })
}

func (h *AddHolder) UpdateClassID(id string) {
	h.Update(FieldClass, func(d *Draft) { d.ClassID = id })
}

func (h *AddHolder) UpdateValue(v int) {
	h.Update(FieldValue, func(d *Draft) { d.Value = v })
}

func (h *AddHolder) UpdateDate(date core.Timestamp) {
	h.Update("date", func(d *Draft) { d.Date = date })
}
