package core

import (
	"strings"
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

func Asc(field string) DBOrdering  { return DBOrdering{Field: field, Ascending: true} }
func Desc(field string) DBOrdering { return DBOrdering{Field: field} }

// ParseOrdering parses a comma separated list of fields, "-" marking descending order: "-date,title".
func ParseOrdering(s string) []DBOrdering {
	var orderings []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" || field == "-" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		orderings = append(orderings, DBOrdering{Field: field, Ascending: !descending})
	}
	return orderings
}

// FormatOrdering is the inverse of ParseOrdering.
func FormatOrdering(orderings []DBOrdering) string {
	parts := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if ord.Ascending {
			parts = append(parts, ord.Field)
		} else {
			parts = append(parts, "-"+ord.Field)
		}
	}
	return strings.Join(parts, ",")
}
