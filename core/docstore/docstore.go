// Package docstore describes the document collections every feature persists to,
// and the typed repositories built on top of them.
package docstore

import (
	"context"
	"encoding/json"
	"regexp"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/littledragons/core"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidField = errors.New("invalid field name")
	ErrInvalidOp    = errors.New("invalid operator")

	fieldRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type Op string

const (
	OpEq  Op = "=="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

func (op Op) Valid() bool {
	switch op {
	case OpEq, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// Condition is a predicate on a top-level document field.
type Condition struct {
	Field string
	Op    Op
	Value interface{}
}

func Eq(field string, v interface{}) Condition  { return Condition{field, OpEq, v} }
func Lt(field string, v interface{}) Condition  { return Condition{field, OpLt, v} }
func Lte(field string, v interface{}) Condition { return Condition{field, OpLte, v} }
func Gt(field string, v interface{}) Condition  { return Condition{field, OpGt, v} }
func Gte(field string, v interface{}) Condition { return Condition{field, OpGte, v} }

// Query selects the documents matching every condition, in the given order.
type Query struct {
	Where   []Condition
	OrderBy []core.DBOrdering
}

func Where(conds ...Condition) Query { return Query{Where: conds} }

func (q Query) Order(orderings ...core.DBOrdering) Query {
	q.OrderBy = append(append([]core.DBOrdering(nil), q.OrderBy...), orderings...)
	return q
}

// Normalized validates q and converts its values to the types JSON decoding produces:
// timestamps become unix milliseconds, every number becomes a float64.
func (q Query) Normalized() (Query, error) {
	out := Query{OrderBy: q.OrderBy}
	for _, ord := range q.OrderBy {
		if !ValidField(ord.Field) {
			return Query{}, errors.Wrap(ErrInvalidField, ord.Field)
		}
	}
	for _, c := range q.Where {
		if !ValidField(c.Field) {
			return Query{}, errors.Wrap(ErrInvalidField, c.Field)
		}
		if !c.Op.Valid() {
			return Query{}, errors.Wrap(ErrInvalidOp, string(c.Op))
		}
		v, err := NormalizeValue(c.Value)
		if err != nil {
			return Query{}, errors.Wrapf(err, "condition on %s", c.Field)
		}
		out.Where = append(out.Where, Condition{Field: c.Field, Op: c.Op, Value: v})
	}
	return out, nil
}

func ValidField(name string) bool { return fieldRegex.MatchString(name) }

// NormalizeValue returns v as a string, a bool or a float64.
func NormalizeValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string, bool, float64:
		return val, nil
	case core.Timestamp:
		return float64(val.Millis()), nil
	case time.Time:
		return float64(core.NewTimestamp(val).Millis()), nil
	case int:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case float32:
		return float64(val), nil
	}
	return nil, errors.Errorf("unsupported condition value %T", v)
}

// Doc is a stored document. Data is a JSON object.
type Doc struct {
	ID        string
	Data      json.RawMessage
	UpdatedAt time.Time
}

type (
	// Collection is a named set of JSON documents keyed by id.
	Collection interface {
		Name() string
		// Set creates or replaces the document with the given id.
		Set(ctx context.Context, id string, data json.RawMessage) error
		// Get returns ErrNotFound for a missing document.
		Get(ctx context.Context, id string) (Doc, error)
		// Delete removes the document. Deleting a missing document is not an error.
		Delete(ctx context.Context, id string) error
		Query(ctx context.Context, q Query) ([]Doc, error)
		// Listen calls fn with the query's result, then again every time it changes.
		// It blocks until ctx is done (returning nil) or the collection fails.
		Listen(ctx context.Context, q Query, fn func([]Doc)) error
	}

	Database interface {
		Collection(name string) Collection
		Close() error
	}
)

// Collections used by the application.
const (
	Events        = "events"
	Grades        = "grades"
	Schedules     = "schedules"
	Notifications = "notifications"
	Students      = "students"
	Classes       = "classes"
	Subjects      = "subjects"
	Users         = "users"
	Credentials   = "credentials"
)

// IsKnownCollection reports whether name is one of the application's collections.
func IsKnownCollection(name string) bool {
	switch name {
	case Events, Grades, Schedules, Notifications, Students, Classes, Subjects, Users, Credentials:
		return true
	}
	return false
}
