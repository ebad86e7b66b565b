// Package notification manages the announcements teachers send to parents.
package notification

import (
	"context"
	"strings"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/docstore"
	"github.com/trezcool/littledragons/core/statesync"
)

type Notification struct {
	ID        string         `json:"id,omitempty"`
	Title     string         `json:"title"`
	Timestamp core.Timestamp `json:"timestamp"`
}

func Key(n Notification) string { return n.ID }

// Less orders notifications by timestamp, latest first.
func Less(a, b Notification) bool {
	return a.Timestamp.After(b.Timestamp.Time)
}

type Repository struct {
	repo *docstore.Repository[Notification]
}

func NewRepository(db docstore.Database) *Repository {
	return &Repository{
		repo: docstore.NewRepository(db.Collection(docstore.Notifications), docstore.RepositoryOptions[Notification]{
			Kind:   "notification",
			ID:     Key,
			WithID: func(n Notification, id string) Notification { n.ID = id; return n },
		}),
	}
}

func (r *Repository) Add(ctx context.Context, n Notification) (Notification, error) {
	return r.repo.Add(ctx, n)
}

func (r *Repository) Delete(ctx context.Context, n Notification) error {
	return r.repo.Delete(ctx, n.ID)
}

func (r *Repository) All(ctx context.Context) ([]Notification, error) {
	return r.repo.All(ctx, docstore.Query{}.Order(core.Asc("timestamp")))
}

type ListHolder struct {
	list *statesync.ListHolder[Notification, struct{}]
}

func NewListHolder(repo *Repository, logger core.Logger) *ListHolder {
	return &ListHolder{
		list: statesync.NewListHolder(statesync.ListOptions[Notification, struct{}]{
			Name:   "notifications",
			Logger: logger,
			Fetch:  func(ctx context.Context, _ struct{}) ([]Notification, error) { return repo.All(ctx) },
			Remove: repo.Delete,
			Key:    Key,
			Less:   Less,
		}),
	}
}

func (h *ListHolder) State() *statesync.Observable[statesync.ListState[Notification, struct{}]] {
	return h.list.State()
}

func (h *ListHolder) DeleteOutcome() *statesync.Observable[statesync.DeleteOutcome] {
	return h.list.DeleteOutcome()
}

func (h *ListHolder) Load(ctx context.Context, force bool) {
	h.list.Load(ctx, struct{}{}, force)
}

func (h *ListHolder) Delete(ctx context.Context, n Notification) {
	h.list.Delete(ctx, n)
}

const FieldTitle = "title"

type Draft struct {
	Title     string
	Timestamp core.Timestamp
}

type AddHolder struct {
	*statesync.Form[Draft]
}

func NewAddHolder(repo *Repository, logger core.Logger, validator *core.Validator) *AddHolder {
	return &AddHolder{
		Form: statesync.NewForm(statesync.FormOptions[Draft]{
			Name:      "notification",
			Logger:    logger,
			Validator: validator,
			Trim:      func(d *Draft) { d.Title = strings.TrimSpace(d.Title) },
			Rules: func(d Draft) []core.FieldRule {
				return []core.FieldRule{{Field: FieldTitle, Value: d.Title, Tag: "required"}}
			},
			Save: func(ctx context.Context, d Draft) error {
				_, err := repo.Add(ctx, Notification{Title: d.Title, Timestamp: d.Timestamp})
				return err
			},
		}),
	}
}

func (h *AddHolder) UpdateTitle(title string) {
	h.Update(FieldTitle, func(d *Draft) { d.Title = title })
}

// Submit sends the notification stamped with ts. The draft is left as is while a send is in flight.
func (h *AddHolder) Submit(ctx context.Context, ts core.Timestamp) {
	if h.State().Value().Status == statesync.SubmitInProgress {
		return
	}
	h.Update("timestamp", func(d *Draft) { d.Timestamp = ts })
	h.Form.Submit(ctx)
}
