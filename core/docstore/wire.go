package docstore

import (
	"encoding/json"
	"time"

	"github.com/trezcool/littledragons/core"
)

type (
	wireCondition struct {
		Field string      `json:"field"`
		Op    Op          `json:"op"`
		Value interface{} `json:"value"`
	}

	wireQuery struct {
		Where    []wireCondition `json:"where,omitempty"`
		Ordering string          `json:"ordering,omitempty"` // "-date,title"
	}

	wireDoc struct {
		ID        string          `json:"id"`
		Data      json.RawMessage `json:"data"`
		UpdatedAt int64           `json:"updatedAt,omitempty"` // unix millis
	}
)

// MarshalJSON encodes the normalized query, so that timestamps travel as unix milliseconds.
func (q Query) MarshalJSON() ([]byte, error) {
	norm, err := q.Normalized()
	if err != nil {
		return nil, err
	}
	w := wireQuery{Ordering: core.FormatOrdering(norm.OrderBy)}
	for _, c := range norm.Where {
		w.Where = append(w.Where, wireCondition{Field: c.Field, Op: c.Op, Value: c.Value})
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes and validates a query.
func (q *Query) UnmarshalJSON(data []byte) error {
	var w wireQuery
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := Query{OrderBy: core.ParseOrdering(w.Ordering)}
	for _, c := range w.Where {
		out.Where = append(out.Where, Condition{Field: c.Field, Op: c.Op, Value: c.Value})
	}
	norm, err := out.Normalized()
	if err != nil {
		return err
	}
	*q = norm
	return nil
}

func (d Doc) MarshalJSON() ([]byte, error) {
	w := wireDoc{ID: d.ID, Data: d.Data}
	if !d.UpdatedAt.IsZero() {
		w.UpdatedAt = d.UpdatedAt.UnixMilli()
	}
	if len(w.Data) == 0 {
		w.Data = json.RawMessage("{}")
	}
	return json.Marshal(w)
}

func (d *Doc) UnmarshalJSON(data []byte) error {
	var w wireDoc
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = Doc{ID: w.ID, Data: w.Data}
	if w.UpdatedAt != 0 {
		d.UpdatedAt = time.UnixMilli(w.UpdatedAt).UTC()
	}
	return nil
}
