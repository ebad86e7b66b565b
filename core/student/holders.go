package student

import (
	"context"
	"strings"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/schoolclass"
	"github.com/trezcool/littledragons/core/statesync"
)

func NewListHolder(repo *Repository, logger core.Logger) *statesync.LiveHolder[Student] {
	return statesync.NewLiveHolder(statesync.LiveOptions[Student]{
		Name:   "students",
		Logger: logger,
		Listen: repo.Listen,
		Less:   Less,
	})
}

const (
	FieldName  = "name"
	FieldClass = "classId"
)

type Draft struct {
	Name    string // "First Last"
	ClassID string
}

// AddHolder registers a student in an existing class. Submitting for an unknown
// class fails with a *core.NotFoundError of kind "class".
type AddHolder struct {
	*statesync.Form[Draft]
}

func NewAddHolder(repo *Repository, classes *schoolclass.Repository, logger core.Logger, validator *core.Validator) *AddHolder {
	return &AddHolder{
		Form: statesync.NewForm(statesync.FormOptions[Draft]{
			Name:      "student",
			Logger:    logger,
			Validator: validator,
			Trim: func(d *Draft) {
				d.Name = strings.TrimSpace(d.Name)
				d.ClassID = strings.TrimSpace(d.ClassID)
			},
			Rules: func(d Draft) []core.FieldRule {
				return []core.FieldRule{
					{Field: FieldName, Value: d.Name, Tag: "required,fullname"},
					{Field: FieldClass, Value: d.ClassID, Tag: "required,schoolclass"},
				}
			},
			Save: func(ctx context.Context, d Draft) error {
				if _, err := classes.Get(ctx, d.ClassID); err != nil {
					return err
				}
				first, last, _ := core.SplitFullName(d.Name)
				_, err := repo.Add(ctx, Student{FirstName: first, LastName: last, ClassID: d.ClassID})
				return err
			},
		}),
	}
}

func (h *AddHolder) UpdateName(name string) {
	h.Update(FieldName, func(d *Draft) { d.Name = name })
}

func (h *AddHolder) UpdateClassID(classID string) {
	h.Update(FieldClass, func(d *Draft) { d.ClassID = classID })
}
