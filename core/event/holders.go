package event

import (
	"context"
	"strings"
	"sync"

	"github.com/trezcool/littledragons/core"
	"github.com/trezcool/littledragons/core/statesync"
)

// ListHolder holds the events of the selected date range.
type ListHolder struct {
	list *statesync.ListHolder[Event, core.TimeRange]

	mu    sync.Mutex
	dates core.TimeRange
}

func NewListHolder(repo *Repository, logger core.Logger) *ListHolder {
	return &ListHolder{
		list: statesync.NewListHolder(statesync.ListOptions[Event, core.TimeRange]{
			Name:   "events",
			Logger: logger,
			Fetch:  repo.All,
			Remove: repo.Delete,
			Key:    Key,
			Less:   Less,
		}),
	}
}

func (h *ListHolder) State() *statesync.Observable[statesync.ListState[Event, core.TimeRange]] {
	return h.list.State()
}

func (h *ListHolder) DeleteOutcome() *statesync.Observable[statesync.DeleteOutcome] {
	return h.list.DeleteOutcome()
}

// SetDateRange selects the range the next load fetches.
func (h *ListHolder) SetDateRange(dates core.TimeRange) {
	h.mu.Lock()
	h.dates = dates
	h.mu.Unlock()
}

func (h *ListHolder) Load(ctx context.Context, force bool) {
	h.mu.Lock()
	dates := h.dates
	h.mu.Unlock()
	h.list.Load(ctx, dates, force)
}

func (h *ListHolder) Delete(ctx context.Context, e Event) {
	h.list.Delete(ctx, e)
}

const (
	FieldTitle = "title"
	FieldDate  = "date"
)

type Draft struct {
	ID    string // empty for a new event
	Title string
	Date  core.Timestamp
}

// AddHolder creates or edits an event.
type AddHolder struct {
	*statesync.Form[Draft]
}

func NewAddHolder(repo *Repository, logger core.Logger, validator *core.Validator) *AddHolder {
	return &AddHolder{
		Form: statesync.NewForm(statesync.FormOptions[Draft]{
			Name:      "event",
			Logger:    logger,
			Validator: validator,
			Trim:      func(d *Draft) { d.Title = strings.TrimSpace(d.Title) },
			Rules: func(d Draft) []core.FieldRule {
				return []core.FieldRule{{Field: FieldTitle, Value: d.Title, Tag: "required"}}
			},
			Save: func(ctx context.Context, d Draft) error {
				e := Event{ID: d.ID, Title: d.Title, Date: d.Date}
				if e.ID != "" {
					return repo.Update(ctx, e)
				}
				_, err := repo.Add(ctx, e)
				return err
			},
		}),
	}
}

// Edit loads an existing event into the draft.
func (h *AddHolder) Edit(e Event) {
	h.Load(Draft{ID: e.ID, Title: e.Title, Date: e.Date})
}

func (h *AddHolder) SetExistingID(id string) {
	h.Update("id", func(d *Draft) { d.ID = id })
}

func (h *AddHolder) UpdateTitle(title string) {
	h.Update(FieldTitle, func(d *Draft) { d.Title = title })
}

func (h *AddHolder) UpdateDate(date core.Timestamp) {
	h.Update(FieldDate, func(d *Draft) { d.Date = date })
}
