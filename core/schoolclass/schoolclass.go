// Package schoolclass manages the school classes ("7А", "11БВ"), keyed by name.
package schoolclass

import (
	"context"
	"strings"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
	"github.com/trezcool/littledragons/core/statesync"
)

const Kind = "class"

type SchoolClass struct {
	Name string `json:"name"`
}

func Less(a, b SchoolClass) bool { return a.Name < b.Name }

type Repository struct {
	repo *docstore.Repository[SchoolClass]
}

func NewRepository(db docstore.Database) *Repository {
	return &Repository{
		repo: docstore.NewRepository(db.Collection(docstore.Classes), docstore.RepositoryOptions[SchoolClass]{
			Kind:       Kind,
			ID:         func(c SchoolClass) string { return c.Name },
			WithID:     func(c SchoolClass, id string) SchoolClass { c.Name = id; return c },
			NaturalKey: true,
		}),
	}
}

func (r *Repository) Add(ctx context.Context, c SchoolClass) error {
	_, err := r.repo.Add(ctx, c)
	return err
}

// Get returns a *core.NotFoundError of kind "class" for an unknown name.
func (r *Repository) Get(ctx context.Context, name string) (SchoolClass, error) {
	return r.repo.Get(ctx, name)
}

func (r *Repository) All(ctx context.Context) ([]SchoolClass, error) {
	return r.repo.All(ctx, docstore.Query{}.Order(core.Asc("name")))
}

func (r *Repository) Listen(ctx context.Context, fn func([]SchoolClass)) error {
	return r.repo.Listen(ctx, docstore.Query{}, fn)
}

func NewListHolder(repo *Repository, logger core.Logger) *statesync.LiveHolder[SchoolClass] {
	return statesync.NewLiveHolder(statesync.LiveOptions[SchoolClass]{
		Name:   "school classes",
		Logger: logger,
		Listen: repo.Listen,
		Less:   Less,
	})
}

const FieldName = "name"

// AddHolder creates a school class.
type AddHolder struct {
	*statesync.Form[SchoolClass]
}

func NewAddHolder(repo *Repository, logger core.Logger, validator *core.Validator) *AddHolder {
	return &AddHolder{
		Form: statesync.NewForm(statesync.FormOptions[SchoolClass]{
			Name:      "school class",
			Logger:    logger,
			Validator: validator,
			Trim:      func(c *SchoolClass) { c.Name = strings.TrimSpace(c.Name) },
			Rules: func(c SchoolClass) []core.FieldRule {
				return []core.FieldRule{{Field: FieldName, Value: c.Name, Tag: "required,schoolclass"}}
			},
			Save: repo.Add,
		}),
	}
}

func (h *AddHolder) UpdateName(name string) {
	h.Update(FieldName, func(c *SchoolClass) { c.Name = name })
}
