package schedule

import (
	"context"
	"strings"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/statesync"
	"github.com/trezcool/littledragons/core/subject"
	"github.com/trezcool/littledragons/core/user"
)

type Params struct {
	Viewer user.Viewer
	Span   core.TimeRange
}

type ListHolder struct {
	list *statesync.ListHolder[Schedule, Params]
}

func NewListHolder(repo *Repository, logger core.Logger) *ListHolder {
	return &ListHolder{
		list: statesync.NewListHolder(statesync.ListOptions[Schedule, Params]{
			Name:   "schedules",
			Logger: logger,
			Fetch: func(ctx context.Context, p Params) ([]Schedule, error) {
				if p.Viewer.Role == user.RoleParent {
					return repo.ByClass(ctx, p.Viewer.ClassID, p.Span)
				}
				return repo.ByTeacher(ctx, p.Viewer.UserID, p.Viewer.ClassID, p.Span)
			},
			Remove: repo.Delete,
			Key:    Key,
			Less:   Less,
			Precheck: func(p Params) error {
				if p.Viewer.Role == user.RoleParent && p.Viewer.ClassID == "" {
					return user.ErrChildNotFound
				}
				return nil
			},
		}),
	}
}

func (h *ListHolder) State() *statesync.Observable[statesync.ListState[Schedule, Params]] {
	return h.list.State()
}

func (h *ListHolder) DeleteOutcome() *statesync.Observable[statesync.DeleteOutcome] {
	return h.list.DeleteOutcome()
}

func (h *ListHolder) Load(ctx context.Context, viewer user.Viewer, span core.TimeRange, force bool) {
	h.list.Load(ctx, Params{Viewer: viewer, Span: span}, force)
}

func (h *ListHolder) Delete(ctx context.Context, s Schedule) {
	h.list.Delete(ctx, s)
}

const (
	FieldSubject   = "subjectId"
	FieldTimeRange = "timeRange"
)

type Draft struct {
	ID        string // empty for a new schedule
	ClassID   string
	SubjectID string
	StartTime core.Timestamp
	EndTime   core.Timestamp
}

// UIDProvider returns the uid of the signed-in user.
type UIDProvider interface {
	UserUID() string
}

// AddHolder creates or edits a schedule of the signed-in teacher. The subject is
// registered on every submission.
type AddHolder struct {
	*statesync.Form[Draft]
}

func NewAddHolder(repo *Repository, subjects *subject.Repository, auth UIDProvider, logger core.Logger, validator *core.Validator) *AddHolder {
	return &AddHolder{
		Form: statesync.NewForm(statesync.FormOptions[Draft]{
			Name:      "schedule",
			Logger:    logger,
			Validator: validator,
			Trim: func(d *Draft) {
				d.ClassID = strings.TrimSpace(d.ClassID)
				d.SubjectID = strings.TrimSpace(d.SubjectID)
			},
			Rules: func(d Draft) []core.FieldRule {
				return []core.FieldRule{
					{Field: FieldSubject, Value: d.SubjectID, Tag: "required"},
					{Field: FieldTimeRange, Value: d.EndTime.Time, Other: d.StartTime.Time, Tag: "gtefield"},
				}
			},
			Save: func(ctx context.Context, d Draft) error {
				if err := subjects.Add(ctx, subject.Subject{Name: d.SubjectID}); err != nil {
					return err
				}
				s := Schedule{
					ID:        d.ID,
					SubjectID: d.SubjectID,
					ClassID:   d.ClassID,
					TeacherID: auth.UserUID(),
					StartTime: d.StartTime,
					EndTime:   d.EndTime,
				}
				if s.ID != "" {
					return repo.Update(ctx, s)
				}
				_, err := repo.Add(ctx, s)
				return err
			},
		}),
	}
}

// Edit loads an existing schedule into the draft.
func (h *AddHolder) Edit(s Schedule) {
	h.Load(Draft{ID: s.ID, ClassID: s.ClassID, SubjectID: s.SubjectID, StartTime: s.StartTime, EndTime: s.EndTime})
}

func (h *AddHolder) SetExistingID(id string) {
	h.Update("id", func(d *Draft) { d.ID = id })
}

// SetClassID selects the class the schedule is for.
func (h *AddHolder) SetClassID(id string) {
	h.Update("classId", func(d *Draft) { d.ClassID = id })
}

func (h *AddHolder) UpdateSubjectID(id string) {
	h.Update(FieldSubject, func(d *Draft) { d.SubjectID = id })
}

func (h *AddHolder) UpdateStartTime(t core.Timestamp) {
	h.Update(FieldTimeRange, func(d *Draft) { d.StartTime = t })
}

func (h *AddHolder) UpdateEndTime(t core.Timestamp) {
	h.Update(FieldTimeRange, func(d *Draft) { d.EndTime = t })
}
