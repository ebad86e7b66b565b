package event

import "github.com/trezcool/littledragons/core"

// Event is a school event shown on the calendar.
type Event struct {
	ID    string         `json:"id,omitempty"`
	Title string         `json:"title"`
	Date  core.Timestamp `json:"date"`
}

// Less orders events from the most recent.
func Less(a, b Event) bool { return a.Date.After(b.Date.Time) }

func Key(e Event) string { return e.ID }
