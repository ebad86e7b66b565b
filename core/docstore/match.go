package docstore

import (
	"encoding/json"
	"sort"
)

// Decode unmarshals a document into a field map for in-process matching.
func Decode(data json.RawMessage) (map[string]interface{}, error) {
	fields := make(map[string]interface{})
	if len(data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Matches evaluates normalized conditions against decoded fields.
// A missing field or a value of another type never matches.
func Matches(fields map[string]interface{}, conds []Condition) bool {
	for _, c := range conds {
		v, ok := fields[c.Field]
		if !ok {
			return false
		}
		cmp, comparable := compare(v, c.Value)
		if !comparable {
			return false
		}
		switch c.Op {
		case OpEq:
			ok = cmp == 0
		case OpLt:
			ok = cmp < 0
		case OpLte:
			ok = cmp <= 0
		case OpGt:
			ok = cmp > 0
		case OpGte:
			ok = cmp >= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

// compare orders two decoded JSON values of the same type.
func compare(a, b interface{}) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		}
		return 0, true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// rank orders values of different types: missing/null, bools, numbers, strings.
func rank(v interface{}) int {
	switch v.(type) {
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	}
	return 0
}

// MatchedDoc is a document and its decoded fields.
type MatchedDoc struct {
	Doc
	Fields map[string]interface{}
}

// Filter decodes docs and keeps the ones matching q, sorted by q.OrderBy then by id.
// q must be normalized.
func Filter(docs []Doc, q Query) ([]Doc, error) {
	matched := make([]MatchedDoc, 0, len(docs))
	for _, d := range docs {
		fields, err := Decode(d.Data)
		if err != nil {
			return nil, err
		}
		if Matches(fields, q.Where) {
			matched = append(matched, MatchedDoc{Doc: d, Fields: fields})
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		for _, ord := range q.OrderBy {
			a, b := matched[i].Fields[ord.Field], matched[j].Fields[ord.Field]
			cmp, ok := compare(a, b)
			if !ok {
				cmp = rank(a) - rank(b)
			}
			if cmp == 0 {
				continue
			}
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
		return matched[i].ID < matched[j].ID
	})

	out := make([]Doc, len(matched))
	for i, m := range matched {
		out[i] = m.Doc
	}
	return out, nil
}
